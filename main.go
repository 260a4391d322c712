package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/frahmantamala/mollie-checkout/cmd"
)

func main() {
	cmd.Execute()
}
