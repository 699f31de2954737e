package ledger

import (
	"database/sql"
	"time"
)

const runColumns = "run_id, status, stage, error_message, artifact_key, artifact_url, story_count, created_at, updated_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		status       string
		stage        string
		errorMessage sql.NullString
		artifactKey  sql.NullString
		artifactURL  sql.NullString
		storyCount   int
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &status, &stage, &errorMessage, &artifactKey, &artifactURL, &storyCount, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	return &Run{
		ID:           id,
		Status:       Status(status),
		Stage:        stage,
		ErrorMessage: errorMessage.String,
		ArtifactKey:  artifactKey.String,
		ArtifactURL:  artifactURL.String,
		StoryCount:   storyCount,
		CreatedAt:    parseTime(createdRaw),
		UpdatedAt:    parseTime(updatedRaw),
	}, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
