package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/headlines"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/retry"
	"github.com/phrazzld/super-wire/internal/services/llm"
)

const (
	// MinTokenBudget is the smallest completion budget worth requesting.
	MinTokenBudget  = 100
	defaultCeiling  = 4000
	tokensPerWord   = 1.5
	conclusionDate  = "1/2/2006"
	defaultAttempts = 5
	defaultDelay    = 5 * time.Second
)

// Completer is the generative text backend.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Completion, error)
}

// Writer produces the narration for an episode.
type Writer struct {
	backend   Completer
	cast      Cast
	templates Templates
	ceiling   int
	policy    retry.Policy
	now       func() time.Time
	logger    *slog.Logger
}

// Option customizes the writer.
type Option func(*Writer)

// WithTemplates overrides the built-in prompts.
func WithTemplates(t Templates) Option {
	return func(w *Writer) { w.templates = t }
}

// WithContextLimit sets the token ceiling the prompt and completion share.
func WithContextLimit(limit int) Option {
	return func(w *Writer) {
		if limit > 0 {
			w.ceiling = limit
		}
	}
}

// WithRetry sets the attempt budget and the fixed delay between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(w *Writer) {
		w.policy.MaxAttempts = attempts
		w.policy.Delay = delay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(w *Writer) { w.policy.Sleep = sleep }
}

// WithRetryable overrides the retryable-versus-fatal classifier.
func WithRetryable(classify func(error) bool) Option {
	return func(w *Writer) { w.policy.Retryable = classify }
}

// WithClock overrides the date used in the conclusion prompt.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

// NewWriter constructs a writer over backend with the given cast.
func NewWriter(backend Completer, cast Cast, opts ...Option) *Writer {
	w := &Writer{
		backend:   backend,
		cast:      cast,
		templates: DefaultTemplates(),
		ceiling:   defaultCeiling,
		policy: retry.Policy{
			MaxAttempts: defaultAttempts,
			Delay:       defaultDelay,
			Retryable:   llm.IsRetryable,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "script")
	return w
}

// TokenBudget returns the completion budget left for prompt under ceiling.
// Words are counted by splitting on single spaces.
func TokenBudget(ceiling int, prompt string) int {
	words := len(strings.Split(prompt, " "))
	return ceiling - int(math.Round(float64(words)*tokensPerWord))
}

// Generate renders template for persona and asks the backend for narration.
// When the rendered prompt leaves less than MinTokenBudget tokens, the
// backend is skipped and "" is returned.
func (w *Writer) Generate(ctx context.Context, stage, template string, persona Persona, bindings Bindings) (string, error) {
	prompt := Render(template, persona, bindings)
	budget := TokenBudget(w.ceiling, prompt)
	logger := logging.WithContext(ctx, w.logger).With(
		logging.String("generation_stage", stage),
		logging.String("persona", persona.ID),
	)
	if budget < MinTokenBudget {
		logging.WarnWithContext(logger, "prompt too long; skipping generation", "generation_skipped",
			logging.Int("token_budget", budget),
			logging.String(logging.FieldErrorHint, "article text exceeds the model context"),
			logging.String(logging.FieldImpact, "segment is left empty"))
		return "", nil
	}

	policy := w.policy
	policy.OnRetry = func(attempt int, err error) {
		logging.WarnWithContext(logger, "generation attempt failed; retrying", "generation_retry",
			logging.Int("attempt", attempt),
			logging.Duration("delay", policy.Delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is delayed"))
	}

	var completion llm.Completion
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		var callErr error
		completion, callErr = w.backend.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: budget})
		return callErr
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return "", &GenerationExhaustedError{Stage: stage, Attempts: exhausted.Attempts, Err: exhausted.Err}
		}
		return "", fmt.Errorf("write %s: %w", stage, err)
	}
	text := strings.TrimSpace(completion.Text())
	if text == "" {
		return "", &EmptyGenerationError{Stage: stage}
	}
	logger.Debug("generated narration", logging.Int("token_budget", budget), logging.Int("chars", len(text)))
	return text, nil
}

// WriteIntro scripts the anchor's opening over every headline.
func (w *Writer) WriteIntro(ctx context.Context, stories []headlines.Story) (Segment, error) {
	persona := w.cast.Anchor
	text, err := w.Generate(ctx, KindIntro.Stage(), w.templates.Intro, persona, Bindings{
		PlaceholderHeadlines: headlineLines(stories),
	})
	if err != nil {
		return Segment{}, err
	}
	return Segment{Kind: KindIntro, Ordinal: 0, StoryIndex: -1, Persona: persona, Text: text}, nil
}

// WriteStory scripts the story at zero-based position i.
func (w *Writer) WriteStory(ctx context.Context, i int, story headlines.Story) (Segment, error) {
	persona := w.cast.ForStory(i)
	text, err := w.Generate(ctx, KindStory.Stage(), w.templates.Segment, persona, Bindings{
		PlaceholderStory: story.Content,
	})
	if err != nil {
		return Segment{}, err
	}
	s := story
	return Segment{Kind: KindStory, Ordinal: StoryOrdinal(i), StoryIndex: i, Persona: persona, Text: text, Story: &s}, nil
}

// WriteConclusion scripts the anchor's sign-off.
func (w *Writer) WriteConclusion(ctx context.Context, stories []headlines.Story) (Segment, error) {
	persona := w.cast.Anchor
	text, err := w.Generate(ctx, KindConclusion.Stage(), w.templates.Conclusion, persona, Bindings{
		PlaceholderHeadlines: headlineLines(stories),
		PlaceholderDate:      w.now().Format(conclusionDate),
	})
	if err != nil {
		return Segment{}, err
	}
	return Segment{Kind: KindConclusion, Ordinal: ConclusionOrdinal(len(stories)), StoryIndex: -1, Persona: persona, Text: text}, nil
}

func headlineLines(stories []headlines.Story) string {
	items := make([]headlines.Headline, 0, len(stories))
	for _, s := range stories {
		items = append(items, s.Headline)
	}
	return headlines.Lines(items)
}
