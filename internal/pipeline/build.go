package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/extract"
	"github.com/phrazzld/super-wire/internal/headlines"
	"github.com/phrazzld/super-wire/internal/httpclient"
	"github.com/phrazzld/super-wire/internal/ledger"
	"github.com/phrazzld/super-wire/internal/notifications"
	"github.com/phrazzld/super-wire/internal/publish"
	"github.com/phrazzld/super-wire/internal/script"
	"github.com/phrazzld/super-wire/internal/services"
	"github.com/phrazzld/super-wire/internal/services/llm"
	"github.com/phrazzld/super-wire/internal/services/tts"
	"github.com/phrazzld/super-wire/internal/stitch"
	"github.com/phrazzld/super-wire/internal/storage"
)

// LockFile is the generation lock name under the state directory.
const LockFile = "generate.lock"

// Runtime is an orchestrator built from config plus the resources it owns.
type Runtime struct {
	*Orchestrator
	Ledger *ledger.Store
	// CredentialsErr is non-nil when generation credentials are missing.
	// Listing still works; Generate refuses to start.
	CredentialsErr error
}

// Close releases the ledger.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	return rt.Ledger.Close()
}

// Generate refuses to run without credentials, then delegates.
func (rt *Runtime) Generate(ctx context.Context) (Result, error) {
	if rt.CredentialsErr != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "generate", "missing credentials", rt.CredentialsErr)
	}
	return rt.Orchestrator.Generate(ctx)
}

// Build constructs every client from cfg and wires the orchestrator.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "ensure directories", err)
	}

	source := newHeadlineSource(cfg)
	extractor := extract.New(httpclient.New(httpclient.Browser, nil), logger)

	cast, err := script.CastFromConfig(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "cast", err)
	}
	backend := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	writer := script.NewWriter(backend, cast,
		script.WithContextLimit(cfg.LLM.ContextLimit),
		script.WithRetry(cfg.Retry.MaxAttempts, time.Duration(cfg.Retry.DelaySeconds)*time.Second),
		script.WithLogger(logger),
	)
	voice := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		ModelID:        cfg.TTS.ModelID,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})

	stitcher, err := stitch.New(cfg.Audio, logger)
	if err != nil {
		return nil, err
	}
	bucket, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "open ledger", err)
	}

	opts := Options{
		WorkDir:   cfg.Paths.WorkDir,
		Extension: cfg.Audio.Extension,
		PageSize:  cfg.News.PageSize,
	}
	if cfg.Pipeline.SerializeRuns {
		opts.LockPath = filepath.Join(cfg.Paths.StateDir, LockFile)
	}
	orch, err := New(Dependencies{
		Headlines: source,
		Extractor: extractor,
		Writer:    writer,
		Voice:     voice,
		Stitcher:  stitcher,
		Publisher: publish.New(bucket, logger),
		Ledger:    store,
		Notifier:  notifications.NewService(cfg),
		Logger:    logger,
	}, opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Runtime{Orchestrator: orch, Ledger: store, CredentialsErr: cfg.RequireGenerationCredentials()}, nil
}

func newHeadlineSource(cfg *config.Config) headlines.Source {
	timeout := time.Duration(cfg.News.TimeoutSeconds) * time.Second
	base := &http.Client{Timeout: timeout}
	if cfg.News.Provider == config.NewsProviderRSS {
		return headlines.NewRSS(cfg.News.Feeds, httpclient.New(httpclient.Plain, base))
	}
	return headlines.NewNewsAPI(headlines.NewsAPIConfig{
		APIKey:  cfg.News.APIKey,
		BaseURL: cfg.News.BaseURL,
		Sources: cfg.News.Sources,
	}, base)
}
