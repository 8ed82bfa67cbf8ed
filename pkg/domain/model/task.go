package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

const maxTaskTitleLen = 80

// Task represents one agent task: a seed prompt, its ordered message log
// (stored separately as TaskMessage entries), and a lifecycle status. At
// most one task is active at a time.
type Task struct {
	ID        types.TaskID
	Title     string
	Status    types.TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTask creates an active task titled from the first line of the seed
// prompt.
func NewTask(prompt string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        types.NewTaskID(),
		Title:     TitleFromPrompt(prompt),
		Status:    types.TaskStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TitleFromPrompt derives a display title: the first non-empty line,
// truncated to a fixed width.
func TitleFromPrompt(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if runes := []rune(line); len(runes) > maxTaskTitleLen {
			return string(runes[:maxTaskTitleLen-3]) + "..."
		}
		return line
	}
	return "(untitled task)"
}
