package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrContentNotFound indicates the record store has no record with the requested id.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidParam marks a shortcode parameter that fails syntactic validation.
	ErrInvalidParam = errors.New("invalid shortcode parameter")

	// ErrUnknownShortcode marks a shortcode tag absent from the registry.
	ErrUnknownShortcode = errors.New("unknown shortcode")

	// ErrIllegalTransition is returned when a dispatch run is asked to move along an edge
	// the state machine does not have.
	ErrIllegalTransition = errors.New("illegal dispatch transition")

	// ErrEndpointNotConfigured indicates no publish URL exists for the requested environment.
	ErrEndpointNotConfigured = errors.New("publish endpoint not configured")
)

// ErrorClass is the coarse failure taxonomy surfaced on issues and results.
type ErrorClass string

const (
	ClassPolicyViolation   ErrorClass = "policy_violation"
	ClassQualityAdvisory   ErrorClass = "quality_advisory"
	ClassTransportFailure  ErrorClass = "transport_failure"
	ClassSideEffectFailure ErrorClass = "side_effect_failure"
)

// InvalidReferenceError reports a shortcode identifier that does not exist in the data store.
type InvalidReferenceError struct {
	Tag  string
	Kind IdentifierKind
	ID   int64
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("shortcode [%s]: %s %d does not exist", e.Tag, e.Kind, e.ID)
}

// TransportError is a non-success response from the publish endpoint.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("publish endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("publish endpoint returned status %d: %s", e.StatusCode, e.Body)
}
