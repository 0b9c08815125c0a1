package service

import (
	"fmt"
)

// ValidationError reports a missing or invalid input field. Field is a path
// such as "products[1].variantes[0].preco" so the caller can locate it.
type ValidationError struct {
	Record  int    `json:"registro"`
	Field   string `json:"campo"`
	Message string `json:"mensagem"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(record int, field, message string) *ValidationError {
	return &ValidationError{Record: record, Field: field, Message: message}
}

func productField(record int, name string) string {
	return fmt.Sprintf("products[%d].%s", record, name)
}

func variantField(record, variant int, name string) string {
	return fmt.Sprintf("products[%d].variantes[%d].%s", record, variant, name)
}

// BatchError wraps the error that stopped a batch import. Records before
// FailedRecord were committed when Partial is true.
type BatchError struct {
	Err              error
	FailedRecord     int
	CommittedRecords int
	Partial          bool
}

func (e *BatchError) Error() string {
	if e.Partial {
		return fmt.Sprintf("import stopped at record %d after committing %d records: %v",
			e.FailedRecord, e.CommittedRecords, e.Err)
	}
	return fmt.Sprintf("import failed at record %d: %v", e.FailedRecord, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
