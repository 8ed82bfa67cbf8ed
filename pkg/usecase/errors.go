package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Precondition errors: raised to the caller, never absorbed
	ErrNoActiveTask     = errors.New("no active task")
	ErrMissingPrompt    = errors.New("custom directive requires prompt text")
	ErrTaskActive       = errors.New("another task is already active")
	ErrTaskNotActive    = errors.New("task is not active")
	ErrDispatchInFlight = errors.New("a follow-up dispatch is already in flight for this task")
)

// Context keys for error values
const (
	TaskIDKey    = "task_id"
	DirectiveKey = "directive"
)
