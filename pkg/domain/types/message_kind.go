package types

import "fmt"

// MessageKind distinguishes agent-initiated statements from entries that
// request user input. Completion results can appear under either kind.
type MessageKind string

const (
	MessageKindSay MessageKind = "say"
	MessageKindAsk MessageKind = "ask"
)

// AllMessageKinds returns all valid message kinds
func AllMessageKinds() []MessageKind {
	return []MessageKind{
		MessageKindSay,
		MessageKindAsk,
	}
}

// IsValid checks if the message kind is valid
func (k MessageKind) IsValid() bool {
	switch k {
	case MessageKindSay,
		MessageKindAsk:
		return true
	default:
		return false
	}
}

// Normalize returns the kind, treating empty as MessageKindSay for backward compatibility.
func (k MessageKind) Normalize() MessageKind {
	if k == "" {
		return MessageKindSay
	}
	return k
}

// String returns the string representation of the message kind
func (k MessageKind) String() string {
	return string(k)
}

// ParseMessageKind parses a string into a MessageKind
func ParseMessageKind(s string) (MessageKind, error) {
	kind := MessageKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid message kind: %s", s)
	}
	return kind, nil
}
