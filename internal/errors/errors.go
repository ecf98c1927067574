// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUniverseTooSmall = errors.New("symbol universe too small")
	ErrRunNotFound      = errors.New("optimization run not found")
)

// DataError represents an error loading or preparing market data.
type DataError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *DataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("data error [%s] %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("data error [%s]: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(op, symbol string, err error) *DataError {
	return &DataError{Op: op, Symbol: symbol, Err: err}
}

// EvaluationError represents a failure while scoring a single genome.
type EvaluationError struct {
	GenomeID   string
	Generation int
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error [gen %d, genome %s]: %v", e.Generation, e.GenomeID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// NewEvaluationError creates a new EvaluationError.
func NewEvaluationError(genomeID string, generation int, err error) *EvaluationError {
	return &EvaluationError{GenomeID: genomeID, Generation: generation, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
