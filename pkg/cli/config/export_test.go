package config

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channelID string) *Slack {
	return &Slack{
		botToken:  botToken,
		channelID: channelID,
	}
}

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewCheckpointForTest creates a Checkpoint config for testing purposes
func NewCheckpointForTest(backend, workspace, shadowDir string) *Checkpoint {
	return &Checkpoint{
		backend:   backend,
		workspace: workspace,
		shadowDir: shadowDir,
	}
}

// NewArchiveForTest creates an Archive config for testing purposes
func NewArchiveForTest(bucket, prefix string) *Archive {
	return &Archive{
		bucket: bucket,
		prefix: prefix,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseID string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		databaseID: databaseID,
	}
}
