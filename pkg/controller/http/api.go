package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/usecase"
	"github.com/secmon-lab/epimetheus/pkg/utils/errutil"
)

// StringRequest carries a single string value: the custom prompt text
// for follow-up dispatch, the seed prompt for task start, the result
// text for task completion.
type StringRequest struct {
	Value string `json:"value"`
}

// EmptyResponse acknowledges a fire-and-forget call. Dispatch outcomes
// surface on the task's message log, not in the response body.
type EmptyResponse struct{}

type taskResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTaskResponse(task *model.Task) taskResponse {
	return taskResponse{
		ID:        task.ID.String(),
		Title:     task.Title,
		Status:    task.Status.String(),
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

type startTaskResponse struct {
	TaskID string `json:"task_id"`
}

type messageResponse struct {
	Seq        int64     `json:"seq"`
	Kind       string    `json:"kind"`
	Tag        string    `json:"tag"`
	Text       string    `json:"text"`
	Checkpoint string    `json:"checkpoint,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type taskMessagesResponse struct {
	TaskID   string            `json:"task_id"`
	Messages []messageResponse `json:"messages"`
}

// statusOf maps use case failures to HTTP status codes. Mutations that
// need an active task conflict when there is none; absence on a read is
// not found.
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrMissingPrompt):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNoActiveTask),
		errors.Is(err, usecase.ErrTaskActive),
		errors.Is(err, usecase.ErrTaskNotActive),
		errors.Is(err, usecase.ErrDispatchInFlight):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "failed to decode request body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

// handleFollowUp serves one directive's dispatch endpoint. The response
// is empty on success: downstream failures are reported in-band on the
// task's message log and still acknowledge with 200.
func (s *Server) handleFollowUp(directive types.Directive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req StringRequest
		if directive.RequiresPrompt() {
			if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
				errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
				return
			}
		}

		task, err := s.uc.Task.Active(ctx)
		if err != nil {
			handleError(w, r, err)
			return
		}

		release, err := s.uc.Task.AcquireDispatch(task.ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		defer release()

		if err := s.uc.FollowUp.Dispatch(ctx, directive, req.Value); err != nil {
			handleError(w, r, err)
			return
		}

		respondJSON(w, r, http.StatusOK, EmptyResponse{})
	}
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StringRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	task, err := s.uc.Task.Start(ctx, req.Value)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, startTaskResponse{TaskID: task.ID.String()})
}

func (s *Server) handleActiveTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	task, err := s.uc.Task.Active(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrNoActiveTask) {
			errutil.HandleHTTP(ctx, w, err, http.StatusNotFound)
			return
		}
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StringRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	task, err := s.uc.Task.Active(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if _, err := s.uc.Task.Complete(ctx, task.ID, req.Value); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, EmptyResponse{})
}

func (s *Server) handleAbortTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	task, err := s.uc.Task.Active(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if _, err := s.uc.Task.Abort(ctx, task.ID, ""); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, EmptyResponse{})
}

func (s *Server) handleTaskMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID := types.TaskID(chi.URLParam(r, "taskID"))
	if err := taskID.Validate(); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	history, err := s.uc.Task.Messages(ctx, taskID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := taskMessagesResponse{
		TaskID:   taskID.String(),
		Messages: make([]messageResponse, len(history)),
	}
	for i, msg := range history {
		resp.Messages[i] = messageResponse{
			Seq:        msg.Seq,
			Kind:       msg.Kind.String(),
			Tag:        msg.Tag.String(),
			Text:       msg.Text,
			Checkpoint: msg.Checkpoint.String(),
			CreatedAt:  msg.CreatedAt,
		}
	}

	respondJSON(w, r, http.StatusOK, resp)
}
