package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrLookup          = errors.New("lookup failed")
	ErrUnknownReason   = errors.New("unknown cancellation reason")
	ErrLogWrite        = errors.New("action log write failed")
	ErrProfileNotFound = errors.New("customer profile not found")
)
