package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks malformed configuration, constraints or descriptions supplied by the caller.
	ErrConfig = errors.New("config error")
	// ErrNotFound marks an unknown connection, data channel or event channel.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation the target cannot accept in its current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrEngineFault marks an unexpected failure inside the engine. Not retriable.
	ErrEngineFault = errors.New("engine fault")

	ErrOfferFailed     = errors.New("create offer failed")
	ErrAnswerFailed    = errors.New("create answer failed")
	ErrSetLocalFailed  = errors.New("set local description failed")
	ErrSetRemoteFailed = errors.New("set remote description failed")
)

// NegotiationError carries the engine's opaque reason for a failed negotiation step.
type NegotiationError struct {
	Kind   error
	Reason string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *NegotiationError) Unwrap() error { return e.Kind }

// NewNegotiationError wraps the engine failure cause under kind.
func NewNegotiationError(kind error, cause error) *NegotiationError {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	return &NegotiationError{Kind: kind, Reason: reason}
}

// configErrorf formats a caller error that unwraps to ErrConfig.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrConfig, "configError"},
	{ErrNotFound, "notFound"},
	{ErrOfferFailed, "createOfferFailed"},
	{ErrAnswerFailed, "createAnswerFailed"},
	{ErrSetLocalFailed, "setLocalDescriptionFailed"},
	{ErrSetRemoteFailed, "setRemoteDescriptionFailed"},
	{ErrInvalidState, "invalidState"},
	{ErrEngineFault, "engineFault"},
}

// ErrorCode maps an error onto its wire code. Unclassified errors are engine faults.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "engineFault"
}
