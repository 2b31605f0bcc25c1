package tiers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRangeNotFound indicates the referenced range does not exist in the category.
	ErrRangeNotFound = errors.New("tiers: range not found")
	// ErrUnknownCategory indicates the category has no registered policy.
	ErrUnknownCategory = errors.New("tiers: unknown category")
	// ErrNoMatchingRange is returned by the resolver when no active range covers the input.
	ErrNoMatchingRange = errors.New("tiers: no matching range")
	// ErrInvalidInput is returned by the resolver for negative or non-finite input.
	ErrInvalidInput = errors.New("tiers: invalid input")
)

// Form fields referenced by FieldError.
const (
	FieldLabel   = "label"
	FieldMin     = "min"
	FieldMax     = "max"
	FieldBase    = "base"
	FieldPerUnit = "perUnit"
	// FieldRange marks errors about the interval as a whole.
	FieldRange = "range"
)

// Validation codes.
const (
	CodeRequired       = "required"
	CodeNotANumber     = "not_a_number"
	CodeNegative       = "negative"
	CodeMaxNotAboveMin = "max_not_above_min"
	CodeOverlap        = "overlap"
	CodeUnboundedTaken = "unbounded_taken"
	CodeDuplicateMin   = "duplicate_min"
)

// FieldError describes one violated rule.
type FieldError struct {
	Field   string
	Code    string
	Message string
	// Conflict is set for overlap, unbounded and duplicate errors.
	ConflictID    string
	ConflictLabel string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every rule a candidate range violates.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "tiers: validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "tiers: validation failed: " + strings.Join(parts, "; ")
}

// Field returns the errors reported for one field.
func (e *ValidationError) Field(name string) []FieldError {
	if e == nil {
		return nil
	}
	var out []FieldError
	for _, fe := range e.Errors {
		if fe.Field == name {
			out = append(out, fe)
		}
	}
	return out
}

// Has reports whether a specific field/code pair was reported.
func (e *ValidationError) Has(field, code string) bool {
	for _, fe := range e.Field(field) {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// LastRuleError is returned when an operation would leave a category that
// requires at least one active range without any.
type LastRuleError struct {
	Category Category
	RangeID  string
}

func (e *LastRuleError) Error() string {
	return fmt.Sprintf("tiers: range %s is the last active range in %s", e.RangeID, e.Category)
}

// RemoteError wraps failures of the persistence service: transport errors,
// timeouts, non-2xx responses and explicit rejections.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("tiers: remote ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("failed")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Timeout reports whether the call exceeded its deadline.
func (e *RemoteError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) || e.Status == http.StatusGatewayTimeout
}

// UserMessage is the text shown to the operator. Messages returned by the
// service are passed through verbatim.
func (e *RemoteError) UserMessage() string {
	switch {
	case strings.TrimSpace(e.Message) != "":
		return e.Message
	case e.Timeout():
		return "サーバーからの応答がタイムアウトしました。時間をおいて再試行してください。"
	default:
		return "サーバーとの通信に失敗しました。時間をおいて再試行してください。"
	}
}

func asRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRangeNotFound) {
		return err
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.Op == "" {
			remote.Op = op
		}
		return remote
	}
	return &RemoteError{Op: op, Err: err}
}
