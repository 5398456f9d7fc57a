package domain

import "errors"

// Sentinel errors for the core taxonomy - match with errors.Is().
// Services wrap these with fmt.Errorf("...: %w", ...) and the handler
// layer maps them to HTTP status codes in one place.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrCollaborator marks a text-generation collaborator fault: the
	// service is unreachable, returned an error, or timed out. Always
	// surfaced to the caller, never degraded.
	ErrCollaborator = errors.New("collaborator unavailable")

	// ErrCollaboratorParse marks a collaborator response whose structured
	// payload could not be parsed. Scoring and feedback call sites degrade
	// to fixed fallbacks instead of returning this; student-reply
	// generation has no safe fallback and escalates to ErrCollaborator.
	ErrCollaboratorParse = errors.New("collaborator response unparseable")
)
