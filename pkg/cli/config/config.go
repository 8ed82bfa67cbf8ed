package config

import (
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/epimetheus/pkg/domain/model/config"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application configuration loaded from a TOML
// file. All sections are optional; an absent config file leaves every
// setting at its zero value.
type AppConfig struct {
	path string

	Checkpoint CheckpointSection `toml:"checkpoint"`
	FollowUp   FollowUpSection   `toml:"followup"`
}

// CheckpointSection configures workspace snapshotting
type CheckpointSection struct {
	// Ignore lists exclude patterns (gitignore syntax) applied when
	// snapshotting the workspace
	Ignore []string `toml:"ignore"`
}

// FollowUpSection tunes composed follow-up prompts
type FollowUpSection struct {
	Language          string `toml:"language"`
	ExtraInstructions string `toml:"extra_instructions"`
}

// Flags returns CLI flags for the application configuration
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML application config file",
			Sources:     cli.EnvVars("EPIMETHEUS_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Configure loads and validates the config file if one was specified.
// No file means defaults throughout.
func (a *AppConfig) Configure() error {
	if a.path == "" {
		return nil
	}

	loaded, err := LoadAppConfiguration(a.path)
	if err != nil {
		return err
	}

	a.Checkpoint = loaded.Checkpoint
	a.FollowUp = loaded.FollowUp
	return nil
}

// Path returns the configured config file path
func (a *AppConfig) Path() string {
	return a.path
}

// IgnorePatterns returns the checkpoint exclude patterns
func (a *AppConfig) IgnorePatterns() []string {
	return a.Checkpoint.Ignore
}

// FollowUpConfig converts the follow-up section to its domain form
func (a *AppConfig) FollowUpConfig() domainConfig.FollowUpConfig {
	return domainConfig.FollowUpConfig{
		Language:          a.FollowUp.Language,
		ExtraInstructions: a.FollowUp.ExtraInstructions,
	}
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	for i, pattern := range a.Checkpoint.Ignore {
		if strings.TrimSpace(pattern) == "" {
			return goerr.Wrap(ErrInvalidPattern, "pattern is empty", goerr.V("index", i))
		}
		// The exclude file is line-based
		if strings.ContainsAny(pattern, "\r\n") {
			return goerr.Wrap(ErrInvalidPattern, "pattern contains a line break", goerr.V(PatternKey, pattern))
		}
	}

	if strings.ContainsAny(a.FollowUp.Language, "\r\n") {
		return goerr.Wrap(ErrInvalidConfig, "followup language must be a single line", goerr.V("language", a.FollowUp.Language))
	}

	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "cannot read config file", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config", goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}
