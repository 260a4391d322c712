package payment

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	errors "github.com/frahmantamala/mollie-checkout/internal"
)

const createIntentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["meta"],
  "additionalProperties": false,
  "properties": {
    "meta": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "amount": {
      "type": "integer",
      "minimum": 1
    }
  }
}`

// ContractMonitor checks request bodies against a JSON schema before they are decoded.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

func NewContractMonitor(schema string) (*ContractMonitor, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &ContractMonitor{schema: compiled}, nil
}

// NewCreateIntentContract returns the monitor for the create intent body.
func NewCreateIntentContract() (*ContractMonitor, error) {
	return NewContractMonitor(createIntentSchema)
}

// Validate returns nil for a conforming body and a validation AppError listing every violation otherwise.
func (cm *ContractMonitor) Validate(body []byte) *errors.AppError {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewValidationError("request body is not valid JSON", errors.ErrCodeValidationFailed)
	}
	if result.Valid() {
		return nil
	}

	details := errors.ValidationErrors{}
	for _, desc := range result.Errors() {
		details.Errors = append(details.Errors, errors.ValidationError{
			Field:   desc.Field(),
			Message: desc.String(),
			Code:    string(errors.ErrCodeValidationFailed),
		})
	}
	return errors.NewValidationError("request body does not match the contract", errors.ErrCodeValidationFailed).
		WithDetails(details)
}
