package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is a pipeline state.
type Stage string

const (
	StageFetchHeadlines  Stage = "FETCH_HEADLINES"
	StageExtractContent  Stage = "EXTRACT_CONTENT"
	StageWriteIntro      Stage = "WRITE_INTRO"
	StageWriteStories    Stage = "WRITE_STORY_SEGMENTS"
	StageWriteConclusion Stage = "WRITE_CONCLUSION"
	StageSynthesize      Stage = "SYNTHESIZE"
	StageStitch          Stage = "STITCH"
	StagePublish         Stage = "PUBLISH"
	StageCleanup         Stage = "CLEANUP"
	StageComplete        Stage = "COMPLETE"
	StageFailed          Stage = "FAILED"
)

// Stages lists the working stages in execution order.
var Stages = []Stage{
	StageFetchHeadlines,
	StageExtractContent,
	StageWriteIntro,
	StageWriteStories,
	StageWriteConclusion,
	StageSynthesize,
	StageStitch,
	StagePublish,
	StageCleanup,
}

var titleCaser = cases.Title(language.English)

// Label renders the stage for humans ("Write Story Segments").
func (s Stage) Label() string {
	if s == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(string(s), "_", " ")))
}

// ErrRunInProgress is returned when run serialization is on and another run
// holds the generation lock.
var ErrRunInProgress = errors.New("another episode run is in progress")

// StageError is the terminal failure of a run: the stage that failed and why.
type StageError struct {
	RunID string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("run %s failed at %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
