package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	messagesSubcollection = "messages"
	countersSubcollection = "counters"
	messageCounterDoc     = "message_counter"
)

type messageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.MessageRepository = &messageRepository{}

func newMessageRepository(client *firestore.Client) *messageRepository {
	return &messageRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *messageRepository) tasksCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_tasks"
	}
	return "tasks"
}

func (r *messageRepository) messagesCollection(taskID types.TaskID) *firestore.CollectionRef {
	return r.client.
		Collection(r.tasksCollection()).Doc(taskID.String()).
		Collection(messagesSubcollection)
}

func (r *messageRepository) counterRef(taskID types.TaskID) *firestore.DocumentRef {
	return r.client.
		Collection(r.tasksCollection()).Doc(taskID.String()).
		Collection(countersSubcollection).Doc(messageCounterDoc)
}

// nextSeq increments the per-task message counter transactionally so
// that concurrent appends never share a sequence number.
func (r *messageRepository) nextSeq(ctx context.Context, taskID types.TaskID) (int64, error) {
	counterRef := r.counterRef(taskID)

	var next int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				next = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": next,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		currentValue, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}

		val, ok := currentValue.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
		}
		next = val + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: next},
		})
	})

	if err != nil {
		return 0, goerr.Wrap(err, "failed to get next sequence", goerr.V("task_id", taskID))
	}

	return next, nil
}

func (r *messageRepository) Append(ctx context.Context, msg *model.TaskMessage) (*model.TaskMessage, error) {
	if msg == nil {
		return nil, goerr.New("message is nil")
	}
	if err := msg.TaskID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid task ID")
	}

	seq, err := r.nextSeq(ctx, msg.TaskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to assign sequence")
	}

	stored := *msg
	stored.Seq = seq
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docID := fmt.Sprintf("%012d", seq)
	if _, err := r.messagesCollection(msg.TaskID).Doc(docID).Set(ctx, &stored); err != nil {
		return nil, goerr.Wrap(err, "failed to save task message",
			goerr.V("task_id", msg.TaskID),
			goerr.V("seq", seq))
	}

	return &stored, nil
}

func (r *messageRepository) List(ctx context.Context, taskID types.TaskID) (model.History, error) {
	iter := r.messagesCollection(taskID).
		OrderBy("Seq", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var history model.History
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate task messages", goerr.V("task_id", taskID))
		}

		var msg model.TaskMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, goerr.Wrap(err, "failed to decode task message",
				goerr.V("doc_id", doc.Ref.ID))
		}

		history = append(history, &msg)
	}

	return history, nil
}

func (r *messageRepository) Prune(ctx context.Context, taskID types.TaskID, before time.Time) (int, error) {
	const batchSize = 500
	totalDeleted := 0

	for {
		query := r.messagesCollection(taskID).
			Where("CreatedAt", "<", before).
			Limit(batchSize)

		iter := query.Documents(ctx)
		bulkWriter := r.client.BulkWriter(ctx)
		count := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to iterate messages for deletion")
			}

			if _, err := bulkWriter.Delete(doc.Ref); err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to delete task message")
			}
			count++
		}
		iter.Stop()
		bulkWriter.End()

		if count == 0 {
			break
		}
		totalDeleted += count

		if count < batchSize {
			break
		}
	}

	return totalDeleted, nil
}
