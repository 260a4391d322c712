package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Payment operations",
	Long:  `Inspect payments at the gateway and replay webhook processing for support cases`,
}

var paymentStatusCmd = &cobra.Command{
	Use:   "status [payment-id]",
	Short: "Show the live gateway state of a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			p, err := deps.Gateway.GetPayment(ctx, args[0])
			if err != nil {
				return fmt.Errorf("gateway lookup failed: %w", err)
			}
			if p == nil {
				return fmt.Errorf("payment %s not found at gateway", args[0])
			}
			return printJSON(p)
		})
	},
}

var paymentWebhookCmd = &cobra.Command{
	Use:   "webhook [payment-id]",
	Short: "Process a payment as if its webhook had just arrived",
	Long:  `Runs the webhook decision for a payment locally. Useful when a gateway callback was lost.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			outcome, err := deps.Adapter.HandleWebhook(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("HTTP %d\n", outcome.StatusCode)
			return printJSON(outcome.Body())
		})
	},
}

var paymentTransactionsCmd = &cobra.Command{
	Use:   "transactions [order-id]",
	Short: "List the ledger transactions of an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orderID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q: %w", args[0], err)
		}
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			txs, err := deps.Adapter.ListTransactions(ctx, orderID)
			if err != nil {
				return err
			}
			return printJSON(txs)
		})
	},
}

var paymentTimeout time.Duration

func init() {
	paymentCmd.PersistentFlags().DurationVar(&paymentTimeout, "timeout", 30*time.Second, "overall timeout for the operation")
	paymentCmd.AddCommand(paymentStatusCmd)
	paymentCmd.AddCommand(paymentWebhookCmd)
	paymentCmd.AddCommand(paymentTransactionsCmd)
}

func withDependencies(fn func(ctx context.Context, deps *Dependencies) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), paymentTimeout)
	defer cancel()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close(context.Background())

	return fn(ctx, deps)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
