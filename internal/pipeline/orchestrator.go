package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/phrazzld/super-wire/internal/headlines"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/notifications"
	"github.com/phrazzld/super-wire/internal/publish"
	"github.com/phrazzld/super-wire/internal/script"
	"github.com/phrazzld/super-wire/internal/services"
	"github.com/phrazzld/super-wire/internal/services/tts"
	"github.com/phrazzld/super-wire/internal/stitch"
	"github.com/phrazzld/super-wire/internal/storage"
	"github.com/phrazzld/super-wire/internal/workspace"
)

// StaleAfter is how old an abandoned run's working files must be before
// SweepStale removes them.
const StaleAfter = 24 * time.Hour

// Extractor turns a headline URL into article text and never fails.
type Extractor interface {
	Extract(ctx context.Context, url, fallback string) string
}

// Synthesizer converts narration text into audio for one voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Ledger records run transitions. Ledger errors are logged, never fatal.
type Ledger interface {
	Begin(ctx context.Context, runID, stage string) error
	Advance(ctx context.Context, runID, stage string) error
	SetStoryCount(ctx context.Context, runID string, count int) error
	Published(ctx context.Context, runID, stage, key, url string) error
	Note(ctx context.Context, runID, stage, message string) error
	Failed(ctx context.Context, runID, stage, message string) error
}

// Dependencies are the collaborators a run calls into.
type Dependencies struct {
	Headlines headlines.Source
	Extractor Extractor
	Writer    *script.Writer
	Voice     Synthesizer
	Stitcher  stitch.Stitcher
	Publisher *publish.Publisher
	Ledger    Ledger
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Options controls run layout.
type Options struct {
	WorkDir   string
	Extension string
	PageSize  int
	// LockPath, when set, serializes Generate across goroutines and processes.
	LockPath string
	Now      func() time.Time
}

// Result summarizes a completed run.
type Result struct {
	RunID   string
	Key     string
	URL     string
	Stories int
	// CleanupErr is set when the episode was published but some working
	// files could not be removed. The run still counts as complete.
	CleanupErr error
}

// Orchestrator runs episodes.
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// New validates deps and returns an orchestrator.
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	var missing []string
	if deps.Headlines == nil {
		missing = append(missing, "headlines")
	}
	if deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if deps.Writer == nil {
		missing = append(missing, "writer")
	}
	if deps.Voice == nil {
		missing = append(missing, "voice")
	}
	if deps.Stitcher == nil {
		missing = append(missing, "stitcher")
	}
	if deps.Publisher == nil {
		missing = append(missing, "publisher")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "missing "+strings.Join(missing, ", "), nil)
	}
	if strings.TrimSpace(opts.WorkDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "work dir is empty", nil)
	}
	if opts.Extension == "" {
		opts.Extension = "mp3"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
		active: map[string]struct{}{},
	}, nil
}

// ListEpisodes returns published episodes, newest first. It only reads
// durable storage and is safe to call while runs are in progress.
func (o *Orchestrator) ListEpisodes(ctx context.Context) ([]storage.Episode, error) {
	return storage.Episodes(ctx, o.deps.Publisher.Bucket(), o.opts.Extension)
}

// Generate runs one full pass. A failure is returned as *StageError; a
// concurrent call under run serialization returns ErrRunInProgress.
func (o *Orchestrator) Generate(ctx context.Context) (Result, error) {
	if o.opts.LockPath != "" {
		lock := flock.New(o.opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "pipeline", "lock", o.opts.LockPath, err)
		}
		if !locked {
			return Result{}, ErrRunInProgress
		}
		defer func() { _ = lock.Unlock() }()
	}

	ws, err := o.reserve()
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "pipeline", "reserve run", "", err)
	}
	defer o.release(ws.ID())

	r := &run{o: o, ws: ws, ctx: services.WithRunID(ctx, ws.ID())}
	return r.execute()
}

// SweepStale removes working files of abandoned runs older than StaleAfter.
// Runs in progress in this process are never touched.
func (o *Orchestrator) SweepStale() workspace.CleanStaleResult {
	o.mu.Lock()
	active := make(map[string]struct{}, len(o.active))
	for id := range o.active {
		active[id] = struct{}{}
	}
	o.mu.Unlock()
	return workspace.CleanStale(o.opts.WorkDir, StaleAfter, o.opts.Now(), active, o.logger)
}

// reserve picks a run id under the lock so concurrent runs in this process
// never share one, even before either has written a file.
func (o *Orchestrator) reserve() (*workspace.Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ws, err := workspace.Reserve(o.opts.WorkDir, o.opts.Now(), o.opts.Extension, func(id string) bool {
		_, busy := o.active[id]
		return busy
	})
	if err != nil {
		return nil, err
	}
	o.active[ws.ID()] = struct{}{}
	return ws, nil
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
}

// run holds the state of one Generate call.
type run struct {
	o       *Orchestrator
	ws      *workspace.Run
	ctx     context.Context
	stage   Stage
	stories []headlines.Story
	draft   script.Draft
	clips   []stitch.Clip
	job     *stitch.Job
	object  storage.Object
}

func (r *run) logger() *slog.Logger {
	return logging.WithContext(services.WithStage(r.ctx, string(r.stage)), r.o.logger)
}

func (r *run) execute() (Result, error) {
	deps := r.o.deps
	startedAt := time.Now()
	r.stage = StageFetchHeadlines
	r.ledger("begin", func(ctx context.Context, l Ledger) error { return l.Begin(ctx, r.ws.ID(), string(r.stage)) })
	r.notify(notifications.EventRunStarted, notifications.Payload{"runId": r.ws.ID()})
	r.logger().Info("episode run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("work_dir", r.ws.Dir()),
	)

	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageFetchHeadlines, r.fetchHeadlines},
		{StageExtractContent, r.extractContent},
		{StageWriteIntro, r.writeIntro},
		{StageWriteStories, r.writeStories},
		{StageWriteConclusion, r.writeConclusion},
		{StageSynthesize, r.synthesize},
		{StageStitch, r.stitch},
		{StagePublish, r.publish},
	}
	for _, step := range steps {
		if err := r.runStage(step.stage, step.fn); err != nil {
			return Result{RunID: r.ws.ID()}, r.fail(err)
		}
	}

	result := Result{RunID: r.ws.ID(), Key: r.object.Key, URL: r.object.URL, Stories: len(r.stories)}
	r.stage = StageCleanup
	r.ledger("advance", func(ctx context.Context, l Ledger) error { return l.Advance(ctx, r.ws.ID(), string(r.stage)) })
	if err := deps.Publisher.Cleanup(services.WithStage(r.ctx, string(r.stage)), r.ws); err != nil {
		result.CleanupErr = err
		r.ledger("note", func(ctx context.Context, l Ledger) error {
			return l.Note(ctx, r.ws.ID(), string(StageComplete), err.Error())
		})
		r.notify(notifications.EventCleanupIncomplete, notifications.Payload{"runId": r.ws.ID(), "error": err.Error()})
	}

	r.stage = StageComplete
	r.ledger("complete", func(ctx context.Context, l Ledger) error { return l.Advance(ctx, r.ws.ID(), string(r.stage)) })
	r.notify(notifications.EventEpisodePublished, notifications.Payload{
		"runId":   r.ws.ID(),
		"key":     result.Key,
		"url":     result.URL,
		"stories": strconv.Itoa(result.Stories),
	})
	r.logger().Info("episode run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("key", result.Key),
		logging.Int("stories", result.Stories),
		logging.Duration("elapsed", time.Since(startedAt)),
		logging.Bool("cleanup_incomplete", result.CleanupErr != nil),
	)
	return result, nil
}

func (r *run) runStage(stage Stage, fn func(context.Context) error) error {
	r.stage = stage
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if stage != StageFetchHeadlines {
		r.ledger("advance", func(ctx context.Context, l Ledger) error { return l.Advance(ctx, r.ws.ID(), string(stage)) })
	}
	logger := r.logger()
	started := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"), logging.String("label", stage.Label()))
	if err := fn(services.WithStage(r.ctx, string(stage))); err != nil {
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (r *run) fail(cause error) error {
	stageErr := &StageError{RunID: r.ws.ID(), Stage: r.stage, Err: cause}
	message := strings.TrimSpace(services.Details(cause).Message)

	logging.ErrorWithContext(r.logger(), "stage failed", "stage_failure",
		logging.String("resolved_state", string(StageFailed)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, failureHint(cause)),
		logging.Error(cause),
	)
	r.ledger("fail", func(ctx context.Context, l Ledger) error {
		return l.Failed(ctx, r.ws.ID(), string(r.stage), message)
	})
	r.notify(notifications.EventRunFailed, notifications.Payload{
		"runId": r.ws.ID(),
		"stage": string(r.stage),
		"error": message,
	})
	return stageErr
}

// ledger calls fn against the ledger, if any, with a context that survives
// cancellation of the run so failures are still recorded.
func (r *run) ledger(op string, fn func(context.Context, Ledger) error) {
	l := r.o.deps.Ledger
	if l == nil {
		return
	}
	if err := fn(context.WithoutCancel(r.ctx), l); err != nil {
		logging.WarnWithContext(r.logger(), "run ledger update failed", "ledger_write_failed",
			logging.String("op", op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.String(logging.FieldImpact, "run history is incomplete; the run itself is unaffected"),
		)
	}
}

func (r *run) notify(event notifications.Event, payload notifications.Payload) {
	if err := r.o.deps.Notifier.Publish(context.WithoutCancel(r.ctx), event, payload); err != nil {
		r.logger().Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (r *run) fetchHeadlines(ctx context.Context) error {
	items, err := r.o.deps.Headlines.Fetch(ctx, r.o.opts.PageSize)
	if err != nil {
		return err
	}
	r.stories = make([]headlines.Story, 0, len(items))
	for _, h := range items {
		r.stories = append(r.stories, headlines.Story{Headline: h})
	}
	r.ledger("story count", func(ctx context.Context, l Ledger) error {
		return l.SetStoryCount(ctx, r.ws.ID(), len(items))
	})
	logging.WithContext(ctx, r.o.logger).Info("headlines fetched", logging.Int("count", len(items)))
	return nil
}

func (r *run) extractContent(ctx context.Context) error {
	for i := range r.stories {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := r.stories[i].Headline
		r.stories[i].Content = r.o.deps.Extractor.Extract(ctx, h.URL, h.Description)
	}
	return nil
}

func (r *run) writeIntro(ctx context.Context) error {
	intro, err := r.o.deps.Writer.WriteIntro(ctx, r.stories)
	if err != nil {
		return err
	}
	r.draft = script.Draft{RunID: r.ws.ID(), Segments: []script.Segment{intro}}
	return nil
}

func (r *run) writeStories(ctx context.Context) error {
	for i, story := range r.stories {
		seg, err := r.o.deps.Writer.WriteStory(ctx, i, story)
		if err != nil {
			return err
		}
		r.draft.Segments = append(r.draft.Segments, seg)
	}
	return nil
}

func (r *run) writeConclusion(ctx context.Context) error {
	conclusion, err := r.o.deps.Writer.WriteConclusion(ctx, r.stories)
	if err != nil {
		return err
	}
	r.draft.Segments = append(r.draft.Segments, conclusion)
	return r.draft.Validate()
}

func (r *run) clipName(seg script.Segment) string {
	switch seg.Kind {
	case script.KindIntro:
		return r.ws.IntroClip()
	case script.KindConclusion:
		return r.ws.ConclusionClip()
	default:
		return r.ws.StoryClip(seg.StoryIndex)
	}
}

func (r *run) synthesize(ctx context.Context) error {
	logger := logging.WithContext(ctx, r.o.logger)
	segments := r.draft.Ordered()
	r.clips = make([]stitch.Clip, 0, len(segments))
	for _, seg := range segments {
		name := r.clipName(seg)
		var (
			audio []byte
			voice string
		)
		if seg.Text == "" {
			logger.Debug("empty narration; writing empty clip", logging.String("clip", name))
		} else {
			voice = seg.Persona.VoiceID
			var err error
			audio, err = r.o.deps.Voice.Synthesize(ctx, seg.Text, voice)
			if err != nil {
				return err
			}
		}
		path, err := r.ws.WriteClip(name, audio)
		if err != nil {
			return err
		}
		r.clips = append(r.clips, stitch.Clip{Ordinal: seg.Ordinal, Path: path, VoiceID: voice})
		logger.Debug("clip written",
			logging.String("clip", name),
			logging.Int("ordinal", seg.Ordinal),
			logging.String("persona", seg.Persona.ID),
			logging.Int("bytes", len(audio)),
		)
	}
	return nil
}

func (r *run) stitch(ctx context.Context) error {
	r.job = stitch.Start(ctx, r.o.deps.Stitcher, r.clips, r.ws.Path(r.ws.Artifact()))
	_, err := r.job.Wait(ctx)
	return err
}

func (r *run) publish(ctx context.Context) error {
	obj, err := r.o.deps.Publisher.Publish(ctx, r.job, r.ws)
	if err != nil {
		return err
	}
	r.object = obj
	r.ledger("published", func(ctx context.Context, l Ledger) error {
		return l.Published(ctx, r.ws.ID(), string(StagePublish), obj.Key, obj.URL)
	})
	return nil
}

func failureHint(err error) string {
	var (
		fetchErr   *headlines.FetchError
		exhausted  *script.GenerationExhaustedError
		empty      *script.EmptyGenerationError
		mismatch   *stitch.FormatMismatchError
		publishErr *publish.PublishError
		synthErr   *tts.SynthesisError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "run was cancelled"
	case errors.As(err, &fetchErr):
		return "check news.api_key and the provider status"
	case errors.As(err, &exhausted), errors.As(err, &empty):
		return "check llm settings and backend availability"
	case errors.As(err, &synthErr):
		return "check tts.api_key and the persona voice ids"
	case errors.As(err, &mismatch):
		return "voice backend returned clips in different formats; check tts.model_id"
	case errors.As(err, &publishErr):
		return fmt.Sprintf("check %s storage credentials; working files were kept", publishErr.Backend)
	case errors.Is(err, services.ErrConfiguration):
		return "check the configuration file"
	default:
		return "check logs for details"
	}
}
