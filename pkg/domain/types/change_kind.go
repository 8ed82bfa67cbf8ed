package types

// ChangeKind classifies how a file differs between two checkpoints.
type ChangeKind string

const (
	ChangeKindCreated  ChangeKind = "created"
	ChangeKindModified ChangeKind = "modified"
	ChangeKindDeleted  ChangeKind = "deleted"
)

// IsValid checks if the change kind is valid
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeKindCreated,
		ChangeKindModified,
		ChangeKindDeleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the change kind
func (k ChangeKind) String() string {
	return string(k)
}
