// Package knaveerr defines the error taxonomy shared across kNAVe:
// configuration errors, data errors, and internal soundness-invariant
// violations. The numeric core never returns errors on its hot path
// (every abstract operation is total); these types exist for the
// boundaries around it — config parsing, dataset loading, and the
// constructors that validate an abstract value before it enters the
// hot path.
package knaveerr

import "fmt"

// ConfigError reports an invalid or missing configuration key.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
}

// NewConfigError builds a ConfigError naming the offending key.
func NewConfigError(key, message string) error {
	return &ConfigError{Key: key, Message: message}
}

// DataError reports a problem with training/test data: an empty set,
// a mismatched feature count, or an unknown categorical level.
type DataError struct {
	Source  string // e.g. a file path, or "training set"
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s: %s", e.Source, e.Message)
}

// NewDataError builds a DataError naming the offending source.
func NewDataError(source, message string) error {
	return &DataError{Source: source, Message: message}
}

// InvariantError reports an internal numeric soundness violation —
// an RAF with r < 0, or an Interval with lb > ub — that should be
// impossible by construction. Seeing one means a bug in the abstract
// domain implementation, not a user error.
type InvariantError struct {
	Component string
	Message   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated in %s: %s", e.Component, e.Message)
}

// NewInvariantError builds an InvariantError for the named component.
func NewInvariantError(component, message string) error {
	return &InvariantError{Component: component, Message: message}
}
