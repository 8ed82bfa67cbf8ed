package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/epimetheus/pkg/cli/config"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
)

func TestLogger_Configure(t *testing.T) {
	t.Run("rejects an unknown level", func(t *testing.T) {
		cfg := config.NewLoggerForTest("verbose", "console", "stdout")
		_, err := cfg.Configure()
		gt.Error(t, err)
	})

	t.Run("rejects an unknown format", func(t *testing.T) {
		cfg := config.NewLoggerForTest("info", "logfmt", "stdout")
		_, err := cfg.Configure()
		gt.Error(t, err)
	})

	t.Run("writes JSON logs to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "epimetheus.log")
		cfg := config.NewLoggerForTest("debug", "json", path)

		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("logger configured", "check", "value")
		closer()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.Value(t, len(data)).NotEqual(0)
	})
}
