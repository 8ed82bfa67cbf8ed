package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/epimetheus/pkg/cli/config"
)

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "valid configuration with all sections",
			content: `
[checkpoint]
ignore = ["*.log", "node_modules/", "dist/**"]

[followup]
language = "Japanese"
extra_instructions = "Keep findings under ten bullet points."
`,
			wantErr: nil,
		},
		{
			name:    "empty configuration",
			content: "\n",
			wantErr: nil,
		},
		{
			name: "checkpoint section only",
			content: `
[checkpoint]
ignore = ["*.tmp"]
`,
			wantErr: nil,
		},
		{
			name:    "config file not found",
			content: "", // Won't create the file
			wantErr: config.ErrConfigNotFound,
		},
		{
			name:    "not TOML at all",
			content: `{"checkpoint": {"ignore": []}}`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "empty ignore pattern",
			content: `
[checkpoint]
ignore = ["*.log", "  "]
`,
			wantErr: config.ErrInvalidPattern,
		},
		{
			name: "multiline followup language",
			content: `
[followup]
language = """Japanese
English"""
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.toml")

			// Only create file if content is not empty
			if tt.content != "" {
				err := os.WriteFile(configPath, []byte(tt.content), 0644)
				gt.NoError(t, err).Required()
			}

			cfg, err := config.LoadAppConfiguration(configPath)

			if tt.wantErr != nil {
				gt.Value(t, err).NotNil()
				if err != nil {
					gt.Error(t, err).Is(tt.wantErr)
				}
				return
			}

			gt.NoError(t, err)
			if err != nil {
				return
			}

			gt.Value(t, cfg).NotNil()
		})
	}
}

func TestLoadAppConfiguration_Values(t *testing.T) {
	content := `
[checkpoint]
ignore = ["*.log", "tmp/"]

[followup]
language = "Japanese"
extra_instructions = "Cite file paths for every finding."
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	err := os.WriteFile(configPath, []byte(content), 0644)
	gt.NoError(t, err).Required()

	cfg, err := config.LoadAppConfiguration(configPath)
	gt.NoError(t, err).Required()

	gt.Array(t, cfg.IgnorePatterns()).Length(2).Required()
	gt.Value(t, cfg.IgnorePatterns()[0]).Equal("*.log")
	gt.Value(t, cfg.IgnorePatterns()[1]).Equal("tmp/")

	fu := cfg.FollowUpConfig()
	gt.Value(t, fu.Language).Equal("Japanese")
	gt.Value(t, fu.ExtraInstructions).Equal("Cite file paths for every finding.")
}

func TestAppConfig_ConfigureWithoutPath(t *testing.T) {
	var cfg config.AppConfig

	gt.NoError(t, cfg.Configure())
	gt.Array(t, cfg.IgnorePatterns()).Length(0)

	fu := cfg.FollowUpConfig()
	gt.Value(t, fu.Language).Equal("")
	gt.Value(t, fu.ExtraInstructions).Equal("")
}
