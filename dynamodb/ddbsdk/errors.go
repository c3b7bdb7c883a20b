package ddbsdk

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRecord is the panic value of a Put dispatched without a record.
	ErrMissingRecord = errors.New("no record to put")
	// ErrNoKeyInputs is the panic value of an instance operation on a mapper
	// without KeyInputs.
	ErrNoKeyInputs = errors.New("mapper has no KeyInputs")
)

// ConversionError reports a returned item that could not be converted into
// the record type, or a record that could not be converted into an item.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// StoreError wraps an error returned by the transport. The SDK error is
// reachable with errors.As, e.g. into *types.ConditionalCheckFailedException.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
