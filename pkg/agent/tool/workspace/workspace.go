package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/epimetheus/pkg/agent/tool"
)

const (
	// maxFileBytes caps how much file content a single read returns
	maxFileBytes = 64 * 1024
	// maxListEntries caps how many directory entries a single list returns
	maxListEntries = 500
)

// New builds workspace tools for the agent loop. The tools give the agent
// read access to the files under rootDir; all paths are resolved relative
// to it and may not escape it.
func New(rootDir string) []gollem.Tool {
	return []gollem.Tool{
		&readFileTool{root: rootDir},
		&listFilesTool{root: rootDir},
	}
}

// resolve joins a relative path onto the workspace root and rejects
// anything that would escape it.
func resolve(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path must be relative to the workspace: %s", rel)
	}

	joined := filepath.Join(root, rel)
	back, err := filepath.Rel(root, joined)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", rel)
	}

	return joined, nil
}

// readFileTool reads one file from the workspace
type readFileTool struct {
	root string
}

func (t *readFileTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "workspace__read_file",
		Description: "Read the content of a file in the workspace",
		Parameters: map[string]*gollem.Parameter{
			"path": {
				Type:        gollem.TypeString,
				Description: "Path of the file, relative to the workspace root",
				Required:    true,
			},
		},
	}
}

func (t *readFileTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	target, err := resolve(t.root, path)
	if err != nil {
		return nil, err
	}

	tool.Update(ctx, fmt.Sprintf("Reading %s", path))
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read workspace file", goerr.V("path", path))
	}

	truncated := false
	if len(data) > maxFileBytes {
		data = data[:maxFileBytes]
		truncated = true
	}

	return map[string]any{
		"path":      path,
		"content":   string(data),
		"truncated": truncated,
	}, nil
}

// listFilesTool lists one directory of the workspace
type listFilesTool struct {
	root string
}

func (t *listFilesTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "workspace__list_files",
		Description: "List files and directories under a workspace directory",
		Parameters: map[string]*gollem.Parameter{
			"dir": {
				Type:        gollem.TypeString,
				Description: "Directory to list, relative to the workspace root (default: the root itself)",
				Required:    false,
			},
		},
	}
}

func (t *listFilesTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	dir, _ := args["dir"].(string)
	if dir == "" {
		dir = "."
	}

	target, err := resolve(t.root, dir)
	if err != nil {
		return nil, err
	}

	tool.Update(ctx, fmt.Sprintf("Listing %s", dir))
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list workspace directory", goerr.V("dir", dir))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		// The shadow checkpoint repo and other VCS metadata are noise to the agent
		if entry.Name() == ".git" || entry.Name() == ".epimetheus" {
			continue
		}
		if len(items) == maxListEntries {
			break
		}

		item := map[string]any{
			"name": entry.Name(),
			"dir":  entry.IsDir(),
		}
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			item["size"] = info.Size()
		}
		items = append(items, item)
	}

	return map[string]any{
		"dir":     dir,
		"entries": items,
	}, nil
}
