package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/epimetheus/pkg/agent/tool"
	"github.com/secmon-lab/epimetheus/pkg/agent/tool/workspace"
)

// newCtxWithUpdateCapture returns a context that captures all update messages
// and a pointer to the slice where they are appended.
func newCtxWithUpdateCapture() (context.Context, *[]string) {
	var messages []string
	ctx := tool.WithUpdate(context.Background(), func(_ context.Context, msg string) {
		messages = append(messages, msg)
	})
	return ctx, &messages
}

func findTool(tools []gollem.Tool, name string) gollem.Tool {
	for _, t := range tools {
		if t.Spec().Name == name {
			return t
		}
	}
	return nil
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	gt.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "api"), 0o755)).Required()
	gt.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644)).Required()
	gt.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "api", "api.go"), []byte("package api\n"), 0o644)).Required()
	gt.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755)).Required()

	return root
}

func TestNew_ReturnsTwoTools(t *testing.T) {
	tools := workspace.New(t.TempDir())
	gt.Array(t, tools).Length(2)
	gt.Value(t, findTool(tools, "workspace__read_file")).NotNil()
	gt.Value(t, findTool(tools, "workspace__list_files")).NotNil()
}

func TestReadFileTool(t *testing.T) {
	root := setupWorkspace(t)
	tools := workspace.New(root)

	t.Run("reads file content", func(t *testing.T) {
		ctx, messages := newCtxWithUpdateCapture()

		result, err := findTool(tools, "workspace__read_file").Run(ctx, map[string]any{"path": "main.go"})
		gt.NoError(t, err).Required()
		gt.Value(t, result["content"]).Equal("package main\n")
		gt.Value(t, result["truncated"]).Equal(false)
		gt.Array(t, *messages).Length(1)
	})

	t.Run("reads nested file", func(t *testing.T) {
		result, err := findTool(tools, "workspace__read_file").Run(context.Background(), map[string]any{"path": "pkg/api/api.go"})
		gt.NoError(t, err).Required()
		gt.Value(t, result["content"]).Equal("package api\n")
	})

	t.Run("returns error when path is missing", func(t *testing.T) {
		_, err := findTool(tools, "workspace__read_file").Run(context.Background(), map[string]any{})
		gt.Error(t, err)
	})

	t.Run("returns error for unknown file", func(t *testing.T) {
		_, err := findTool(tools, "workspace__read_file").Run(context.Background(), map[string]any{"path": "missing.go"})
		gt.Error(t, err)
	})

	t.Run("rejects absolute path", func(t *testing.T) {
		_, err := findTool(tools, "workspace__read_file").Run(context.Background(), map[string]any{"path": "/etc/hostname"})
		gt.Error(t, err)
	})

	t.Run("rejects path escaping the workspace", func(t *testing.T) {
		_, err := findTool(tools, "workspace__read_file").Run(context.Background(), map[string]any{"path": "../outside.txt"})
		gt.Error(t, err)
	})
}

func TestListFilesTool(t *testing.T) {
	root := setupWorkspace(t)
	tools := workspace.New(root)

	t.Run("lists root by default and hides .git", func(t *testing.T) {
		result, err := findTool(tools, "workspace__list_files").Run(context.Background(), map[string]any{})
		gt.NoError(t, err).Required()

		entries := result["entries"].([]map[string]any)
		gt.Array(t, entries).Length(2).Required()
		gt.Value(t, entries[0]["name"]).Equal("main.go")
		gt.Value(t, entries[0]["dir"]).Equal(false)
		gt.Value(t, entries[1]["name"]).Equal("pkg")
		gt.Value(t, entries[1]["dir"]).Equal(true)
	})

	t.Run("lists subdirectory", func(t *testing.T) {
		result, err := findTool(tools, "workspace__list_files").Run(context.Background(), map[string]any{"dir": "pkg/api"})
		gt.NoError(t, err).Required()

		entries := result["entries"].([]map[string]any)
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0]["name"]).Equal("api.go")
	})

	t.Run("returns error for unknown directory", func(t *testing.T) {
		_, err := findTool(tools, "workspace__list_files").Run(context.Background(), map[string]any{"dir": "nope"})
		gt.Error(t, err)
	})

	t.Run("rejects path escaping the workspace", func(t *testing.T) {
		_, err := findTool(tools, "workspace__list_files").Run(context.Background(), map[string]any{"dir": ".."})
		gt.Error(t, err)
	})
}
