package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/repository/firestore"
	"github.com/secmon-lab/epimetheus/pkg/repository/memory"
)

func runMessageRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Append assigns increasing sequence numbers", func(t *testing.T) {
		repo := newRepo(t)
		taskID := types.NewTaskID()

		for i := 0; i < 3; i++ {
			msg := model.NewTaskMessage(taskID, types.MessageKindSay, types.MessageTagText,
				fmt.Sprintf("entry %d", i))
			stored, err := repo.Message().Append(ctx, msg)
			gt.NoError(t, err).Required()
			gt.Number(t, stored.Seq).Equal(int64(i + 1))
		}
	})

	t.Run("List returns the log in append order", func(t *testing.T) {
		repo := newRepo(t)
		taskID := types.NewTaskID()

		texts := []string{"first", "second", "third"}
		for _, text := range texts {
			msg := model.NewTaskMessage(taskID, types.MessageKindSay, types.MessageTagText, text)
			_, err := repo.Message().Append(ctx, msg)
			gt.NoError(t, err).Required()
		}

		history, err := repo.Message().List(ctx, taskID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(3).Required()
		for i, text := range texts {
			gt.Value(t, history[i].Text).Equal(text)
			gt.Number(t, history[i].Seq).Equal(int64(i + 1))
		}
	})

	t.Run("Checkpoint ids round-trip", func(t *testing.T) {
		repo := newRepo(t)
		taskID := types.NewTaskID()

		msg := model.NewTaskMessage(taskID, types.MessageKindAsk, types.MessageTagCompletionResult, "done").
			WithCheckpoint("abc123def456")
		_, err := repo.Message().Append(ctx, msg)
		gt.NoError(t, err).Required()

		history, err := repo.Message().List(ctx, taskID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1).Required()
		gt.Value(t, history[0].Checkpoint).Equal(types.CheckpointID("abc123def456"))
		gt.Value(t, history[0].Kind).Equal(types.MessageKindAsk)
		gt.Value(t, history[0].Tag).Equal(types.MessageTagCompletionResult)
	})

	t.Run("Logs of different tasks are isolated", func(t *testing.T) {
		repo := newRepo(t)
		taskA := types.NewTaskID()
		taskB := types.NewTaskID()

		_, err := repo.Message().Append(ctx, model.NewTaskMessage(taskA, types.MessageKindSay, types.MessageTagText, "for A"))
		gt.NoError(t, err).Required()
		_, err = repo.Message().Append(ctx, model.NewTaskMessage(taskB, types.MessageKindSay, types.MessageTagText, "for B"))
		gt.NoError(t, err).Required()

		historyA, err := repo.Message().List(ctx, taskA)
		gt.NoError(t, err).Required()
		gt.Array(t, historyA).Length(1)
		gt.Value(t, historyA[0].Text).Equal("for A")

		historyB, err := repo.Message().List(ctx, taskB)
		gt.NoError(t, err).Required()
		gt.Array(t, historyB).Length(1)
		gt.Value(t, historyB[0].Text).Equal("for B")
	})

	t.Run("List returns empty history for unknown task", func(t *testing.T) {
		repo := newRepo(t)

		history, err := repo.Message().List(ctx, types.NewTaskID())
		gt.NoError(t, err)
		gt.Array(t, history).Length(0)
	})

	t.Run("Prune deletes old entries", func(t *testing.T) {
		repo := newRepo(t)
		taskID := types.NewTaskID()

		now := time.Now().UTC().Truncate(time.Millisecond)

		oldMsg := model.NewTaskMessage(taskID, types.MessageKindSay, types.MessageTagText, "old entry")
		oldMsg.CreatedAt = now.Add(-10 * time.Minute)
		_, err := repo.Message().Append(ctx, oldMsg)
		gt.NoError(t, err).Required()

		newMsg := model.NewTaskMessage(taskID, types.MessageKindSay, types.MessageTagText, "new entry")
		newMsg.CreatedAt = now
		_, err = repo.Message().Append(ctx, newMsg)
		gt.NoError(t, err).Required()

		deleted, err := repo.Message().Prune(ctx, taskID, now.Add(-5*time.Minute))
		gt.NoError(t, err).Required()
		gt.Number(t, deleted).Equal(1)

		history, err := repo.Message().List(ctx, taskID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1)
		gt.Value(t, history[0].Text).Equal("new entry")
	})
}

func TestMessageRepository_Memory(t *testing.T) {
	runMessageRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestMessageRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT_ID not set")
	}

	runMessageRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, "",
			firestore.WithCollectionPrefix(testCollectionPrefix(t)))
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			gt.NoError(t, repo.Close())
		})
		return repo
	})
}
