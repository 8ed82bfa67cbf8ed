package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

type messageRepository struct {
	mu      sync.RWMutex
	entries map[types.TaskID][]*model.TaskMessage
	nextSeq map[types.TaskID]int64
}

var _ interfaces.MessageRepository = &messageRepository{}

func newMessageRepository() *messageRepository {
	return &messageRepository{
		entries: make(map[types.TaskID][]*model.TaskMessage),
		nextSeq: make(map[types.TaskID]int64),
	}
}

// copyMessage creates a copy to avoid external mutation
func copyMessage(m *model.TaskMessage) *model.TaskMessage {
	copied := *m
	return &copied
}

func (r *messageRepository) Append(_ context.Context, msg *model.TaskMessage) (*model.TaskMessage, error) {
	if msg == nil {
		return nil, goerr.New("message is nil")
	}
	if err := msg.TaskID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid task ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq[msg.TaskID]++

	stored := copyMessage(msg)
	stored.Seq = r.nextSeq[msg.TaskID]
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.entries[msg.TaskID] = append(r.entries[msg.TaskID], stored)
	return copyMessage(stored), nil
}

func (r *messageRepository) List(_ context.Context, taskID types.TaskID) (model.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.entries[taskID]

	result := make(model.History, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, copyMessage(m))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

func (r *messageRepository) Prune(_ context.Context, taskID types.TaskID, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.entries[taskID]

	var remaining []*model.TaskMessage
	deleted := 0
	for _, m := range msgs {
		if m.CreatedAt.Before(before) {
			deleted++
		} else {
			remaining = append(remaining, m)
		}
	}

	r.entries[taskID] = remaining
	return deleted, nil
}
