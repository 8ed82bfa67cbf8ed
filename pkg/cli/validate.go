package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/cli/config"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.AppConfig

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the application config file",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if appCfg.Path() == "" {
				logger.Info("No config file specified, nothing to validate")
				return nil
			}

			if err := appCfg.Configure(); err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			followUp := appCfg.FollowUpConfig()
			logger.Info("Configuration validation passed",
				"path", appCfg.Path(),
				"ignore_patterns", len(appCfg.IgnorePatterns()),
				"followup_language", followUp.Language,
				"has_extra_instructions", followUp.ExtraInstructions != "",
			)

			return nil
		},
	}
}
