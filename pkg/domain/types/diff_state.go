package types

// DiffState is the outcome of resolving a diff between two checkpoints.
// Unavailable means a usable diff could not be produced (a checkpoint id
// was missing or retrieval failed). Empty means both snapshots exist and
// are textually identical. The two are never interchangeable.
type DiffState string

const (
	DiffStateUnavailable DiffState = "unavailable"
	DiffStateEmpty       DiffState = "empty"
	DiffStateAvailable   DiffState = "available"
)

// IsValid checks if the diff state is valid
func (s DiffState) IsValid() bool {
	switch s {
	case DiffStateUnavailable,
		DiffStateEmpty,
		DiffStateAvailable:
		return true
	default:
		return false
	}
}

// String returns the string representation of the diff state
func (s DiffState) String() string {
	return string(s)
}
