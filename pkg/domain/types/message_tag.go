package types

import "fmt"

// MessageTag classifies an entry in a task's message log.
type MessageTag string

const (
	// MessageTagTaskStarted marks the seed prompt entry of a task.
	MessageTagTaskStarted MessageTag = "task_started"
	// MessageTagCheckpointCreated marks entries carrying a workspace
	// snapshot id, including the baseline taken at task start.
	MessageTagCheckpointCreated MessageTag = "checkpoint_created"
	// MessageTagCompletionResult marks task completion entries. These
	// carry the checkpoint id the follow-up diff is computed against.
	MessageTagCompletionResult MessageTag = "completion_result"
	// MessageTagFollowupNotice marks informational entries emitted by the
	// follow-up dispatcher (no-changes notices, new-task references).
	MessageTagFollowupNotice MessageTag = "followup_notice"
	// MessageTagErrorReport marks in-band error surfacing entries.
	MessageTagErrorReport MessageTag = "error_report"
	// MessageTagToolTrace marks agent tool progress entries.
	MessageTagToolTrace MessageTag = "tool_trace"
	// MessageTagText is the default tag for plain conversation entries.
	MessageTagText MessageTag = "text"
)

// AllMessageTags returns all valid message tags
func AllMessageTags() []MessageTag {
	return []MessageTag{
		MessageTagTaskStarted,
		MessageTagCheckpointCreated,
		MessageTagCompletionResult,
		MessageTagFollowupNotice,
		MessageTagErrorReport,
		MessageTagToolTrace,
		MessageTagText,
	}
}

// IsValid checks if the message tag is valid
func (t MessageTag) IsValid() bool {
	switch t {
	case MessageTagTaskStarted,
		MessageTagCheckpointCreated,
		MessageTagCompletionResult,
		MessageTagFollowupNotice,
		MessageTagErrorReport,
		MessageTagToolTrace,
		MessageTagText:
		return true
	default:
		return false
	}
}

// Normalize returns the tag, treating empty as MessageTagText for backward compatibility.
func (t MessageTag) Normalize() MessageTag {
	if t == "" {
		return MessageTagText
	}
	return t
}

// String returns the string representation of the message tag
func (t MessageTag) String() string {
	return string(t)
}

// ParseMessageTag parses a string into a MessageTag
func ParseMessageTag(s string) (MessageTag, error) {
	tag := MessageTag(s)
	if !tag.IsValid() {
		return "", fmt.Errorf("invalid message tag: %s", s)
	}
	return tag, nil
}
