package model

import (
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// DiffResult is the outcome of resolving a checkpoint span. It is a
// closed value type: exactly one of Unavailable, Empty, or Available
// holds, and only Available carries diff text. Expected conditions are
// represented here as states rather than errors.
type DiffResult struct {
	state types.DiffState
	text  string
}

// UnavailableDiff reports that no usable diff could be produced, e.g.
// because a checkpoint id was missing.
func UnavailableDiff() DiffResult {
	return DiffResult{state: types.DiffStateUnavailable}
}

// NewDiffResult wraps diff text produced by a checkpoint store. Empty
// text means the snapshots are textually identical.
func NewDiffResult(text string) DiffResult {
	if text == "" {
		return DiffResult{state: types.DiffStateEmpty}
	}
	return DiffResult{state: types.DiffStateAvailable, text: text}
}

// State returns the variant of the result.
func (d DiffResult) State() types.DiffState {
	return d.state
}

// Available reports whether diff text is present.
func (d DiffResult) Available() bool {
	return d.state == types.DiffStateAvailable
}

// Empty reports whether both snapshots exist and are identical.
func (d DiffResult) Empty() bool {
	return d.state == types.DiffStateEmpty
}

// Unavailable reports whether no usable diff could be produced.
func (d DiffResult) Unavailable() bool {
	return d.state == types.DiffStateUnavailable || d.state == ""
}

// Text returns the diff text. It is empty unless Available.
func (d DiffResult) Text() string {
	return d.text
}

// FileChange is one entry of a per-file change summary between two
// checkpoints, used by the UI presentation side effect.
type FileChange struct {
	Path string
	Kind types.ChangeKind
}
