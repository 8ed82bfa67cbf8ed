package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// TaskID represents a unique identifier for a task
type TaskID string

// NewTaskID generates a new time-ordered TaskID
func NewTaskID() TaskID {
	return TaskID(uuid.Must(uuid.NewV7()).String())
}

// Validate checks if the TaskID is valid
func (t TaskID) Validate() error {
	if t == "" {
		return goerr.New("task ID cannot be empty")
	}
	if _, err := uuid.Parse(string(t)); err != nil {
		return goerr.New("task ID must be a UUID", goerr.V("id", t))
	}
	return nil
}

// String returns the string representation of TaskID
func (t TaskID) String() string {
	return string(t)
}

// CheckpointID identifies a workspace snapshot. The value is opaque to the
// rest of the system: the git backend stores commit hashes and the in-memory
// backend stores content digests.
type CheckpointID string

// Validate checks if the CheckpointID is valid
func (c CheckpointID) Validate() error {
	if c == "" {
		return goerr.New("checkpoint ID cannot be empty")
	}
	return nil
}

// String returns the string representation of CheckpointID
func (c CheckpointID) String() string {
	return string(c)
}

// Short returns an abbreviated form for log and UI output.
func (c CheckpointID) Short() string {
	if len(c) <= 12 {
		return string(c)
	}
	return string(c[:12])
}
