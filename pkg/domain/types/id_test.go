package types_test

import (
	"testing"

	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

func TestNewTaskID(t *testing.T) {
	id := types.NewTaskID()
	if err := id.Validate(); err != nil {
		t.Fatalf("generated TaskID failed validation: %v", err)
	}
	if other := types.NewTaskID(); other == id {
		t.Errorf("expected distinct IDs, got %s twice", id)
	}
}

func TestTaskID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.TaskID
		wantErr bool
	}{
		{"generated id", types.NewTaskID(), false},
		{"fixed uuid", "018f6f88-4f7c-7c3a-b8a1-6f2d4a0c9e11", false},
		{"empty", "", true},
		{"not a uuid", "task-42", true},
		{"truncated uuid", "018f6f88-4f7c-7c3a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("TaskID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckpointID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.CheckpointID
		wantErr bool
	}{
		{"commit hash", "b6589fc6ab0dc82cf12099d1c2d40ab994e8410c", false},
		{"content digest", "mem-4c2a9d0b11f3", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckpointID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckpointID_Short(t *testing.T) {
	tests := []struct {
		name string
		id   types.CheckpointID
		want string
	}{
		{"long hash abbreviated", "b6589fc6ab0dc82cf12099d1c2d40ab994e8410c", "b6589fc6ab0d"},
		{"short value unchanged", "mem-4c2a9d", "mem-4c2a9d"},
		{"exactly twelve", "abcdef012345", "abcdef012345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Short(); got != tt.want {
				t.Errorf("CheckpointID.Short() = %q, want %q", got, tt.want)
			}
		})
	}
}
