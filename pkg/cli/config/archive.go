package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/service/archive"
	"github.com/urfave/cli/v3"
)

// Archive holds CLI flags for the transcript archive
type Archive struct {
	bucket string
	prefix string
}

// Flags returns CLI flags for archive configuration
func (a *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for task transcripts (empty disables archiving)",
			Category:    "Archive",
			Sources:     cli.EnvVars("EPIMETHEUS_ARCHIVE_BUCKET"),
			Destination: &a.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix for archived transcripts",
			Category:    "Archive",
			Sources:     cli.EnvVars("EPIMETHEUS_ARCHIVE_PREFIX"),
			Destination: &a.prefix,
		},
	}
}

// LogValue returns log attributes for the archive configuration
func (a Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", a.bucket),
		slog.String("prefix", a.prefix),
	)
}

// Configure creates the GCS transcript archive when a bucket is set.
// Returns nil when archiving is disabled. The caller is responsible for
// calling Close() on the returned archive.
func (a *Archive) Configure(ctx context.Context) (*archive.GCS, error) {
	if a.bucket == "" {
		return nil, nil
	}

	gcs, err := archive.NewGCS(ctx, a.bucket, archive.WithPrefix(a.prefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize transcript archive")
	}

	return gcs, nil
}
