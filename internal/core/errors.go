package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	KindConfigNotFound         ErrorKind = "config_not_found"
	KindConfigValidationFailed ErrorKind = "config_validation_failed"
	KindColumnMutationInvalid  ErrorKind = "column_mutation_invalid"
	KindRenderFailed           ErrorKind = "render_failed"
)

// Sentinel errors for errors.Is.
var (
	ErrConfigNotFound         = errors.New("table config not found")
	ErrConfigValidationFailed = errors.New("table config validation failed")
	ErrColumnMutationInvalid  = errors.New("invalid column mutation")
	ErrRenderFailed           = errors.New("table render failed")

	// ErrNoDocument is returned by a ConfigStore that holds no document for a
	// table type. The engine treats it as "use the defaults".
	ErrNoDocument = errors.New("no stored config document")
)

var kindSentinels = map[ErrorKind]error{
	KindConfigNotFound:         ErrConfigNotFound,
	KindConfigValidationFailed: ErrConfigValidationFailed,
	KindColumnMutationInvalid:  ErrColumnMutationInvalid,
	KindRenderFailed:           ErrRenderFailed,
}

// EngineError is a classified engine failure.
type EngineError struct {
	Kind      ErrorKind
	TableType string
	Cause     error
	Issues    []ValidationIssue
}

// NewEngineError builds an EngineError.
func NewEngineError(kind ErrorKind, tableType string, cause error, issues ...ValidationIssue) *EngineError {
	return &EngineError{Kind: kind, TableType: tableType, Cause: cause, Issues: issues}
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(kindSentinels[e.Kind].Error())
	if e.TableType != "" {
		fmt.Fprintf(&b, " (table %q)", e.TableType)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if len(e.Issues) > 0 {
		msgs := make([]string, len(e.Issues))
		for i, issue := range e.Issues {
			msgs[i] = issue.Message
		}
		fmt.Fprintf(&b, ": %s", strings.Join(msgs, "; "))
	}
	return b.String()
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for e.Kind.
func (e *EngineError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of a classified error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}
