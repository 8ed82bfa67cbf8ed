package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Task() TaskRepository
	Message() MessageRepository

	// Close releases backend resources. Safe to call on backends without
	// external connections.
	Close() error
}
