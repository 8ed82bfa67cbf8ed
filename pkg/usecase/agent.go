package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/epimetheus/pkg/agent/tool"
	"github.com/secmon-lab/epimetheus/pkg/agent/tool/workspace"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
)

//go:embed prompt/agent_system.md
var agentSystemPromptTmpl string

var agentSystemPrompt = template.Must(template.New("agent_system").Parse(agentSystemPromptTmpl))

// agentRunner executes a task's seed prompt with a gollem agent over a
// read-only workspace toolset. Tool progress is appended to the task log
// as tool_trace entries, so the message log doubles as an execution trace.
type agentRunner struct {
	tasks        *TaskUseCase
	llmClient    gollem.LLMClient
	workspaceDir string
	language     string
}

func newAgentRunner(tasks *TaskUseCase, llmClient gollem.LLMClient, workspaceDir, language string) *agentRunner {
	return &agentRunner{
		tasks:        tasks,
		llmClient:    llmClient,
		workspaceDir: workspaceDir,
		language:     language,
	}
}

// run drives one task to a terminal state: Complete with the agent's final
// response on success, Abort with an error report on failure.
func (r *agentRunner) run(ctx context.Context, task *model.Task, prompt string) error {
	logger := logging.From(ctx)

	ctx = tool.WithUpdate(ctx, func(ctx context.Context, message string) {
		r.trace(ctx, task.ID, message)
	})

	agent := gollem.New(r.llmClient,
		gollem.WithSystemPrompt(r.buildSystemPrompt(task)),
		gollem.WithTools(workspace.New(r.workspaceDir)...),
		gollem.WithToolMiddleware(
			func(next gollem.ToolHandler) gollem.ToolHandler {
				return func(ctx context.Context, req *gollem.ToolExecRequest) (*gollem.ToolExecResponse, error) {
					resp, err := next(ctx, req)
					if resp != nil && resp.Error != nil {
						r.trace(ctx, task.ID, fmt.Sprintf("Tool %s failed: %s", req.Tool.Name, resp.Error.Error()))
					}
					return resp, err
				}
			},
		),
	)

	resp, err := agent.Execute(ctx, gollem.Text(prompt))
	if err != nil {
		logger.Error("agent execution failed", "error", err, "task_id", task.ID)
		if _, aerr := r.tasks.Abort(ctx, task.ID, "Agent execution failed: "+err.Error()); aerr != nil {
			logger.Error("failed to abort task after agent failure", "error", aerr, "task_id", task.ID)
		}
		return goerr.Wrap(err, "failed to execute agent", goerr.V(TaskIDKey, task.ID))
	}

	result := strings.TrimSpace(strings.Join(resp.Texts, "\n"))
	if _, err := r.tasks.Complete(ctx, task.ID, result); err != nil {
		return goerr.Wrap(err, "failed to complete task", goerr.V(TaskIDKey, task.ID))
	}
	return nil
}

// trace appends a tool_trace entry to the task log. Trace failures only
// log; they never interrupt the agent.
func (r *agentRunner) trace(ctx context.Context, taskID types.TaskID, message string) {
	if _, err := r.tasks.Say(ctx, taskID, types.MessageKindSay, types.MessageTagToolTrace, message, ""); err != nil {
		logging.From(ctx).Warn("failed to record tool trace", "error", err, "task_id", taskID)
	}
}

// agentPromptData holds the data for the agent system prompt template
type agentPromptData struct {
	Title    string
	Language string
}

func (r *agentRunner) buildSystemPrompt(task *model.Task) string {
	data := agentPromptData{
		Title:    task.Title,
		Language: r.language,
	}

	var buf bytes.Buffer
	if err := agentSystemPrompt.Execute(&buf, data); err != nil {
		// Template execution should not fail with valid data; log and return fallback
		return fmt.Sprintf("You are a software task agent. Task: %s", task.Title)
	}
	return buf.String()
}
