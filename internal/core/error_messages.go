// error_messages.go maps technical errors to user-facing messages and
// decorates validation issues with severity and guidance.
//
// # Error Code Reference
//
// Each user-facing message has a code that support staff can look up.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Table not found: The table type is not configured
//	         Action: Check the table type name; a minimal table is shown instead
//	         Patterns: "table config not found", "unknown table type"
//
//	CFG002 - Invalid configuration: The table configuration has errors
//	         Action: Fix the listed problems; a repaired or default layout is shown
//	         Patterns: "validation failed"
//
//	CFG003 - Unreadable configuration: The configuration file could not be parsed
//	         Action: Check the YAML/JSON syntax of the configuration
//	         Patterns: "parse yaml", "parse json", "decode table config"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Invalid column change: The column edit was rejected
//	         Action: Review the column definition and try again
//	         Patterns: "invalid column mutation"
//
//	COL002 - Column not found: The column does not exist in this table
//	         Action: Reload the table configuration and retry
//	         Patterns: "column not found"
//
//	COL003 - Duplicate column: A column with this key already exists
//	         Action: Choose a different column key
//	         Patterns: "duplicate column key"
//
// # Render Errors (RND001-RND099)
//
//	RND001 - Render failed: The table could not be displayed normally
//	         Action: A simplified table is shown; please report this code
//	         Patterns: "table render failed"
//
// # Store Errors (STO001-STO099)
//
//	STO001 - Store unavailable: Configuration storage could not be reached
//	         Action: Please try again in a few moments
//	         Patterns: "connection refused", "dial tcp"
//
//	STO002 - Store timeout: Configuration storage did not respond
//	         Action: Please try again
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgConfigNotFound = UserMessage{
		Message: "Table type is not configured",
		Action:  "Check the table type name; a minimal table is shown instead",
		Code:    "CFG001",
	}
	msgConfigInvalid = UserMessage{
		Message: "The table configuration has errors",
		Action:  "Fix the listed problems; a repaired or default layout is shown",
		Code:    "CFG002",
	}
	msgColumnInvalid = UserMessage{
		Message: "The column change was rejected",
		Action:  "Review the column definition and try again",
		Code:    "COL001",
	}
	msgRenderFailed = UserMessage{
		Message: "The table could not be displayed normally",
		Action:  "A simplified table is shown; please report this code",
		Code:    "RND001",
	}
)

// kindMessages maps classified errors directly, before pattern matching.
var kindMessages = map[ErrorKind]UserMessage{
	KindConfigNotFound:         msgConfigNotFound,
	KindConfigValidationFailed: msgConfigInvalid,
	KindColumnMutationInvalid:  msgColumnInvalid,
	KindRenderFailed:           msgRenderFailed,
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Column Errors (COL002-COL003)
	// Specific column problems come before the generic mutation message.
	// =========================================================================
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "The column does not exist in this table",
			Action:  "Reload the table configuration and retry",
			Code:    "COL002",
		},
	},
	{
		pattern: "duplicate column key",
		msg: UserMessage{
			Message: "A column with this key already exists",
			Action:  "Choose a different column key",
			Code:    "COL003",
		},
	},
	{pattern: "invalid column mutation", msg: msgColumnInvalid},

	// =========================================================================
	// Configuration Errors (CFG001-CFG003)
	// =========================================================================
	{pattern: "table config not found", msg: msgConfigNotFound},
	{pattern: "unknown table type", msg: msgConfigNotFound},
	{pattern: "validation failed", msg: msgConfigInvalid},
	{
		pattern: "parse yaml",
		msg: UserMessage{
			Message: "The configuration file could not be parsed",
			Action:  "Check the YAML/JSON syntax of the configuration",
			Code:    "CFG003",
		},
	},
	{
		pattern: "parse json",
		msg: UserMessage{
			Message: "The configuration file could not be parsed",
			Action:  "Check the YAML/JSON syntax of the configuration",
			Code:    "CFG003",
		},
	},
	{
		pattern: "decode table config",
		msg: UserMessage{
			Message: "The configuration file could not be parsed",
			Action:  "Check the YAML/JSON syntax of the configuration",
			Code:    "CFG003",
		},
	},

	// =========================================================================
	// Render Errors (RND001)
	// =========================================================================
	{pattern: "table render failed", msg: msgRenderFailed},

	// =========================================================================
	// Store Errors (STO001-STO002)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Configuration storage could not be reached",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},
	{
		pattern: "dial tcp",
		msg: UserMessage{
			Message: "Configuration storage could not be reached",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Configuration storage did not respond",
			Action:  "Please try again",
			Code:    "STO002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Configuration storage did not respond",
			Action:  "Please try again",
			Code:    "STO002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Classified errors map by kind; column mutation errors are refined by
// pattern (COL002, COL003) first. Unclassified errors are pattern-matched,
// falling back to ERR000.
//
// Example:
//
//	err := NewEngineError(KindRenderFailed, "basic_info", cause)
//	msg := MapError(err)
//	// msg.Code == "RND001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	kind := KindOf(err)
	if msg, ok := kindMessages[kind]; ok && kind != KindColumnMutationInvalid {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if msg, ok := kindMessages[kind]; ok {
		return msg
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// DetailedError is a validation issue annotated for display.
type DetailedError struct {
	Message    string   `json:"message"`
	Code       string   `json:"code,omitempty"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion"`
	Context    string   `json:"context"`
}

type issueGuide struct {
	severity   Severity
	suggestion string
}

var issueGuides = map[string]issueGuide{
	CodeNoColumns:          {SeverityCritical, "Add at least one column with key, label and type"},
	CodeColumnNotObject:    {SeverityCritical, "Each column must be an object with key, label and type"},
	CodeMissingField:       {SeverityCritical, "Fill in the missing field; key, label and type are required"},
	CodeInvalidType:        {SeverityError, "Use one of: text, email, url, phone, number, date, date_range, select"},
	CodeMissingOptions:     {SeverityError, "Add an options map of value to label for select columns"},
	CodeInvalidOptions:     {SeverityError, "Options must map each stored value to a display label string"},
	CodeInvalidNumber:      {SeverityError, "Use a non-negative number"},
	CodeInvalidBoolean:     {SeverityError, "Use true or false"},
	CodeInvalidString:      {SeverityWarning, "Use a string value"},
	CodeDuplicateKey:       {SeverityError, "Give every column a unique key"},
	CodeWidthRange:         {SeverityWarning, "Make min_width less than or equal to max_width"},
	CodeUnknownCondition:   {SeverityWarning, "Use always, has_data, data_not_empty, data_equals, field_exists, custom or never"},
	CodeInvalidLayout:      {SeverityError, "Use key_value_pairs, standard_table, grouped_rows or service_table"},
	CodeInvalidBreakpoint:  {SeverityError, "Use one of xs, sm, md, lg, xl"},
	CodeInvalidColsPerRow:  {SeverityError, "Use a whole number from 1 to 4"},
	CodeInvalidStyling:     {SeverityWarning, "CSS class fields must be strings"},
	CodeInvalidFeature:     {SeverityWarning, "Feature flags must be true or false"},
	CodeInvalidSection:     {SeverityError, "layout, styling and features must be objects; merge must be a list"},
	CodeInvalidMergeRule:   {SeverityWarning, "Merge rules need a kind (horizontal, vertical, complex) and columns"},
	CodeUnknownMergeColumn: {SeverityWarning, "Merge rules may only reference configured columns"},
}

// CreateDetailedErrorMessages annotates each issue with severity, suggestion
// and context. Context is the column key when known, else tableType.
func CreateDetailedErrorMessages(issues []ValidationIssue, tableType string) []DetailedError {
	out := make([]DetailedError, 0, len(issues))
	for _, issue := range issues {
		guide, ok := issueGuides[issue.Code]
		if !ok {
			guide = guideFromText(issue.Message)
		}
		ctx := tableType
		if issue.ColumnKey != "" {
			ctx = issue.ColumnKey
		} else if issue.ColumnIndex != NoColumn {
			ctx = fmt.Sprintf("%s column %d", tableType, issue.ColumnIndex)
		}
		out = append(out, DetailedError{
			Message:    issue.Message,
			Code:       issue.Code,
			Severity:   guide.severity,
			Suggestion: guide.suggestion,
			Context:    ctx,
		})
	}
	return out
}

// DetailedFromStrings classifies plain error strings that carry no code, for
// messages arriving from outside the validator.
func DetailedFromStrings(messages []string, tableType string) []DetailedError {
	issues := make([]ValidationIssue, len(messages))
	for i, m := range messages {
		issues[i] = ValidationIssue{ColumnIndex: NoColumn, Message: m}
	}
	return CreateDetailedErrorMessages(issues, tableType)
}

func guideFromText(msg string) issueGuide {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "missing required"), strings.Contains(lower, "no columns"):
		return issueGuide{SeverityCritical, "Fill in the required configuration"}
	case strings.HasPrefix(lower, "invalid"), strings.Contains(lower, ": invalid"), strings.Contains(lower, "duplicate"):
		return issueGuide{SeverityError, "Correct the invalid value"}
	}
	return issueGuide{SeverityWarning, "Review the configuration"}
}

// HighestSeverity returns the most severe level among details, or "" if empty.
func HighestSeverity(details []DetailedError) Severity {
	rank := map[Severity]int{SeverityWarning: 1, SeverityError: 2, SeverityCritical: 3}
	var best Severity
	for _, d := range details {
		if rank[d.Severity] > rank[best] {
			best = d.Severity
		}
	}
	return best
}

// IssuesOf extracts validation issues carried by err.
func IssuesOf(err error) []ValidationIssue {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Issues
	}
	return nil
}
