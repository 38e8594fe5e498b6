package ai

import (
	"context"
	"errors"
	"fmt"
)

// Fallback texts returned instead of errors when the remote AI is
// unreachable. Chat callers never see a raw error.
const (
	// FallbackUnavailable is returned when no thread could be established
	FallbackUnavailable = "Sorry, the AI service is currently unavailable."
	// FallbackTransient is returned when a remote call fails mid-conversation
	FallbackTransient = "Sorry, the AI is temporarily unavailable. Please try again."
	// FallbackTimeout is returned when a remote call exceeds the call deadline
	FallbackTimeout = "Sorry, that took too long to answer. Please try again."
)

// RemoteError wraps a failed remote AI call. It carries the operation name
// and, for HTTP-level failures, the response status.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// FallbackText maps an error to the user-safe text shown in place of a
// reply. It is a pure function of the error kind.
func FallbackText(err error) string {
	if err == nil {
		return FallbackTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FallbackTimeout
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && errors.Is(remoteErr.Err, context.DeadlineExceeded) {
		return FallbackTimeout
	}
	return FallbackTransient
}
