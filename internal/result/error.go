package result

import (
	"regexp"
	"strconv"
	"strings"
)

// ErrorType is the coarse classification of a SQL error.
type ErrorType string

const (
	ErrSyntax     ErrorType = "syntax"
	ErrRuntime    ErrorType = "runtime"
	ErrConnection ErrorType = "connection"
	ErrMemory     ErrorType = "memory"
	ErrPermission ErrorType = "permission"
	ErrTimeout    ErrorType = "timeout"
)

// SQLError is the error shape surfaced to the UI. Line and column are filled
// when the engine message carries a position.
type SQLError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Line    int       `json:"line,omitempty"`
	Column  int       `json:"column,omitempty"`
	Code    string    `json:"code,omitempty"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *SQLError) Error() string {
	return string(e.Type) + ": " + e.Message
}

var lineColRe = regexp.MustCompile(`(?i)\bline[:\s]+(\d+)(?:[,:\s]+col(?:umn)?[:\s]+(\d+))?`)

// Classify maps a raw engine error onto a SQLError. The engine does not
// expose a structured error taxonomy for all error classes, so this is
// best-effort matching on message content.
func Classify(err error) *SQLError {
	msg := err.Error()
	lower := strings.ToLower(msg)

	sqlErr := &SQLError{Type: classifyMessage(lower), Message: msg}

	if m := lineColRe.FindStringSubmatch(msg); m != nil {
		sqlErr.Line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			sqlErr.Column, _ = strconv.Atoi(m[2])
		}
	}
	return sqlErr
}

func classifyMessage(lower string) ErrorType {
	switch {
	case containsAny(lower, "syntax error", "parser error", "parse error", "unexpected token"):
		return ErrSyntax
	case containsAny(lower, "out of memory", "memory limit", "allocation failure"):
		return ErrMemory
	case containsAny(lower, "permission denied", "access denied", "read-only", "readonly", "not authorized"):
		return ErrPermission
	case containsAny(lower, "timeout", "timed out", "canceled", "cancelled", "interrupted"):
		return ErrTimeout
	case containsAny(lower, "connection", "not established", "database is locked", "driver: bad"):
		return ErrConnection
	default:
		return ErrRuntime
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
