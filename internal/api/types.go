package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EpisodeRecordedMessage is the success message returned by POST /episodes.
const EpisodeRecordedMessage = "Episode recorded!"

// Episode is one published episode.
type Episode struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EpisodeListResponse wraps the published episodes, newest first. Episodes
// is never null.
type EpisodeListResponse struct {
	Episodes []Episode `json:"episodes"`
}

// GenerateResponse reports a completed run.
type GenerateResponse struct {
	Message           string `json:"message"`
	RunID             string `json:"runId,omitempty"`
	Key               string `json:"key,omitempty"`
	URL               string `json:"url,omitempty"`
	Stories           int    `json:"stories,omitempty"`
	CleanupIncomplete bool   `json:"cleanupIncomplete,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	RunID string `json:"runId,omitempty"`
}

// Run describes a ledger row.
type Run struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Stage        string `json:"stage"`
	StageLabel   string `json:"stageLabel"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ArtifactKey  string `json:"artifactKey,omitempty"`
	ArtifactURL  string `json:"artifactUrl,omitempty"`
	StoryCount   int    `json:"storyCount"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// RunListResponse wraps ledger rows, newest first.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// CheckResult captures one readiness check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates server runtime information.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	LedgerPath   string        `json:"ledgerPath"`
	LockFilePath string        `json:"lockFilePath"`
	WorkDir      string        `json:"workDir"`
	Storage      string        `json:"storage"`
	Ready        bool          `json:"ready"`
	Checks       []CheckResult `json:"checks"`
}

// LogResponse carries log lines and the offset to resume from.
type LogResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
