package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies API failures so callers can decide whether an error is
// fatal for the run, fatal for a single entity, or benign.
type Kind int

const (
	// Unknown covers anything not matched by a more specific kind.
	Unknown Kind = iota
	// Connectivity means the cluster was unreachable or timed out.
	Connectivity
	// Authentication means the cluster rejected the token outright.
	Authentication
	// NotFound means the entity or path is absent. Often benign, e.g.
	// nothing to clean up or an empty namespace listing.
	NotFound
	// Conflict means the entity already exists on create. Treated as
	// success so re-running a sync is idempotent.
	Conflict
	// PermissionDenied means the token lacks privilege for one
	// administrative call. Fatal for that entity, not for the run.
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case Connectivity:
		return "connectivity"
	case Authentication:
		return "authentication"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// APIError is a classified failure from one administrative API call.
type APIError struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for transport failures
	Path    string // request path, e.g. "sys/mounts/kv"
	Message string
	Err     error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or Unknown for errors that
// did not come from the API client.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// ClassifyStatus maps an HTTP response from the admin API to a Kind.
// A 400 whose body mentions an existing mount or entity is a Conflict;
// OpenBao reports duplicate enables that way rather than with 409.
func ClassifyStatus(status int, message string) Kind {
	switch status {
	case http.StatusUnauthorized:
		return Authentication
	case http.StatusForbidden:
		return PermissionDenied
	case http.StatusNotFound:
		return NotFound
	case http.StatusBadRequest:
		lower := strings.ToLower(message)
		if strings.Contains(lower, "already in use") || strings.Contains(lower, "already exists") {
			return Conflict
		}
		return Unknown
	case http.StatusConflict:
		return Conflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Connectivity
	default:
		return Unknown
	}
}

// Transport wraps a request-level failure (dial error, timeout) as a
// Connectivity APIError.
func Transport(path string, err error) *APIError {
	return &APIError{
		Kind:    Connectivity,
		Path:    path,
		Message: err.Error(),
		Err:     err,
	}
}

// IsRetryable reports whether an individual call is worth retrying.
// Only connectivity failures are plausibly transient.
func IsRetryable(err error) bool {
	return IsKind(err, Connectivity)
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}
