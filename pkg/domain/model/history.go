package model

import (
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// History is a read-only, insertion-ordered view of a task's message log.
// All scans are positional; Seq values are not consulted so that histories
// assembled in memory behave the same as persisted ones.
type History []*TaskMessage

// LatestCompletion returns the index of the most recent completion entry,
// or -1 if the log contains none. Completion entries of both say and ask
// kinds match.
func (h History) LatestCompletion() int {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].IsCompletion() {
			return i
		}
	}
	return -1
}

// PriorCompletion returns the index of the most recent completion entry
// strictly before the given index, or -1 if none precedes it.
func (h History) PriorCompletion(before int) int {
	if before > len(h) {
		before = len(h)
	}
	for i := before - 1; i >= 0; i-- {
		if h[i].IsCompletion() {
			return i
		}
	}
	return -1
}

// EarliestCheckpoint returns the index of the first entry tagged as a
// checkpoint creation, or -1 if the log has none. Used as the baseline
// when no completion precedes the latest one.
func (h History) EarliestCheckpoint() int {
	for i, msg := range h {
		if msg.Tag == types.MessageTagCheckpointCreated {
			return i
		}
	}
	return -1
}

// DiffSpan is the checkpoint pair a follow-up diff is computed over.
// Either id may be empty when the corresponding log entry carries no
// snapshot reference; resolving such a span yields an unavailable diff.
type DiffSpan struct {
	Baseline types.CheckpointID
	Current  types.CheckpointID
}

// Complete reports whether both ends of the span carry a snapshot id.
func (s DiffSpan) Complete() bool {
	return s.Baseline.Validate() == nil && s.Current.Validate() == nil
}

// CompletionSpan locates the checkpoint pair for "changes since the last
// completion": current is the latest completion entry, baseline is the
// completion before it, falling back to the earliest checkpoint entry in
// the whole log. The second return value is false when the log holds no
// completion entry at all.
func (h History) CompletionSpan() (DiffSpan, bool) {
	current := h.LatestCompletion()
	if current < 0 {
		return DiffSpan{}, false
	}

	span := DiffSpan{Current: h[current].Checkpoint}

	if prior := h.PriorCompletion(current); prior >= 0 {
		span.Baseline = h[prior].Checkpoint
	} else if first := h.EarliestCheckpoint(); first >= 0 {
		span.Baseline = h[first].Checkpoint
	}

	return span, true
}
