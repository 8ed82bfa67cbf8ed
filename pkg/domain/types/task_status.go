package types

import "fmt"

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "ACTIVE"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusAborted   TaskStatus = "ABORTED"
)

// AllTaskStatuses returns all valid task statuses
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusActive,
		TaskStatusCompleted,
		TaskStatusAborted,
	}
}

// IsValid checks if the task status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusActive,
		TaskStatusCompleted,
		TaskStatusAborted:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the task reached a terminal state.
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusCompleted || s == TaskStatusAborted
}

// Normalize returns the status, treating empty as TaskStatusActive for backward compatibility.
func (s TaskStatus) Normalize() TaskStatus {
	if s == "" {
		return TaskStatusActive
	}
	return s
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus parses a string into a TaskStatus
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}
