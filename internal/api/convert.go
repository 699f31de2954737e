package api

import (
	"github.com/phrazzld/super-wire/internal/ledger"
	"github.com/phrazzld/super-wire/internal/pipeline"
	"github.com/phrazzld/super-wire/internal/preflight"
	"github.com/phrazzld/super-wire/internal/storage"
)

// FromEpisodes converts published episodes, preserving order.
func FromEpisodes(episodes []storage.Episode) EpisodeListResponse {
	out := make([]Episode, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, Episode{Name: ep.Name, URL: ep.URL})
	}
	return EpisodeListResponse{Episodes: out}
}

// FromResult converts a completed run.
func FromResult(result pipeline.Result) GenerateResponse {
	return GenerateResponse{
		Message:           EpisodeRecordedMessage,
		RunID:             result.RunID,
		Key:               result.Key,
		URL:               result.URL,
		Stories:           result.Stories,
		CleanupIncomplete: result.CleanupErr != nil,
	}
}

// FromRun converts a ledger row to its API representation.
func FromRun(run *ledger.Run) Run {
	if run == nil {
		return Run{}
	}
	dto := Run{
		ID:           run.ID,
		Status:       string(run.Status),
		Stage:        run.Stage,
		StageLabel:   pipeline.Stage(run.Stage).Label(),
		ErrorMessage: run.ErrorMessage,
		ArtifactKey:  run.ArtifactKey,
		ArtifactURL:  run.ArtifactURL,
		StoryCount:   run.StoryCount,
	}
	if !run.CreatedAt.IsZero() {
		dto.CreatedAt = run.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !run.UpdatedAt.IsZero() {
		dto.UpdatedAt = run.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRuns converts ledger rows, never returning a nil slice.
func FromRuns(runs []*ledger.Run) RunListResponse {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		if run == nil {
			continue
		}
		out = append(out, FromRun(run))
	}
	return RunListResponse{Runs: out}
}

// FromChecks converts preflight results and reports whether all passed.
func FromChecks(results []preflight.Result) ([]CheckResult, bool) {
	out := make([]CheckResult, 0, len(results))
	ready := true
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
		if !r.Passed {
			ready = false
		}
	}
	return out, ready
}
