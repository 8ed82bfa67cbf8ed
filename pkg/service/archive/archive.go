package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
)

// recordKind labels a single JSONL line in an archived transcript.
type recordKind string

const (
	kindTask    recordKind = "task"
	kindMessage recordKind = "message"
	kindDiff    recordKind = "diff"
)

// record is one JSONL line in an archived transcript.
// Fields are omitempty so each line only serializes relevant data.
type record struct {
	Kind      recordKind `json:"kind"`
	Timestamp string     `json:"ts,omitempty"`

	// task
	TaskID string `json:"task_id,omitempty"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`

	// message
	Seq         int64  `json:"seq,omitempty"`
	MessageKind string `json:"message_kind,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Text        string `json:"text,omitempty"`
	Checkpoint  string `json:"checkpoint,omitempty"`

	// diff
	DiffState string `json:"diff_state,omitempty"`
	DiffText  string `json:"diff_text,omitempty"`
}

// GCS archives task transcripts to a Google Cloud Storage bucket as JSONL
// objects, one object per task.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.TranscriptArchive = &GCS{}

// Option is a functional option for GCS configuration
type Option func(*GCS)

// WithPrefix sets an object name prefix for archived transcripts
func WithPrefix(prefix string) Option {
	return func(a *GCS) {
		a.prefix = prefix
	}
}

// NewGCS creates a transcript archive backed by the given bucket.
// Credentials are resolved via Application Default Credentials.
func NewGCS(ctx context.Context, bucket string, opts ...Option) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("GCS bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS client", goerr.V("bucket", bucket))
	}

	a := &GCS{
		client: client,
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Archive uploads the transcript of a finished task as one JSONL object.
// Archiving the same task again overwrites the previous object.
func (a *GCS) Archive(ctx context.Context, task *model.Task, history model.History, diff model.DiffResult) error {
	data, err := encodeTranscript(task, history, diff)
	if err != nil {
		return err
	}

	name := path.Join(a.prefix, string(task.ID)+".jsonl")
	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write transcript object",
			goerr.V("bucket", a.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize transcript object",
			goerr.V("bucket", a.bucket), goerr.V("object", name))
	}

	return nil
}

// Close releases the underlying storage client
func (a *GCS) Close() error {
	if err := a.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close GCS client")
	}
	return nil
}

// encodeTranscript renders a task, its message log, and its completion diff
// as JSONL: one task line, one line per message, and a trailing diff line
// when the diff was resolvable.
func encodeTranscript(task *model.Task, history model.History, diff model.DiffResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if err := enc.Encode(record{
		Kind:      kindTask,
		Timestamp: task.CreatedAt.UTC().Format(time.RFC3339Nano),
		TaskID:    string(task.ID),
		Title:     task.Title,
		Status:    task.Status.String(),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to encode task record", goerr.V("taskID", task.ID))
	}

	for _, msg := range history {
		if err := enc.Encode(record{
			Kind:        kindMessage,
			Timestamp:   msg.CreatedAt.UTC().Format(time.RFC3339Nano),
			Seq:         msg.Seq,
			MessageKind: msg.Kind.String(),
			Tag:         msg.Tag.String(),
			Text:        msg.Text,
			Checkpoint:  msg.Checkpoint.String(),
		}); err != nil {
			return nil, goerr.Wrap(err, "failed to encode message record",
				goerr.V("taskID", task.ID), goerr.V("seq", msg.Seq))
		}
	}

	if !diff.Unavailable() {
		if err := enc.Encode(record{
			Kind:      kindDiff,
			DiffState: diff.State().String(),
			DiffText:  diff.Text(),
		}); err != nil {
			return nil, goerr.Wrap(err, "failed to encode diff record", goerr.V("taskID", task.ID))
		}
	}

	return buf.Bytes(), nil
}
