package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/ledger"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/logs"
	"github.com/phrazzld/super-wire/internal/pipeline"
	"github.com/phrazzld/super-wire/internal/services"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
	maxLogLines     = 5000
	shutdownTimeout = 30 * time.Second
	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	episodes EpisodeService
	runs     RunLister
	status   func(context.Context) api.DaemonStatus
	generate http.HandlerFunc
	logPath  string

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind, token string, episodes EpisodeService, runs RunLister, status func(context.Context) api.DaemonStatus, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:     strings.TrimSpace(bind),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		episodes: episodes,
		runs:     runs,
		status:   status,
	}
	srv.generate = srv.requireToken(token, srv.handleGenerate)

	// Generation holds the POST open for the whole run, so there is no
	// write timeout.
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/episodes", s.handleEpisodes)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/logs", s.handleLogs)
	return s.withRequestID(mux)
}

// serve listens on bind and blocks until ctx is done or the server fails.
// Request contexts derive from ctx, so shutdown cancels an in-flight run.
func (s *apiServer) serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	err = g.Wait()
	s.logger.Info("api server stopped")
	return err
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := services.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Info("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *apiServer) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEpisodes(w, r)
	case http.MethodPost:
		s.generate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
	}
}

func (s *apiServer) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.episodes.ListEpisodes(r.Context())
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "episode listing failed", "list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage credentials"),
		)
		s.writeError(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromEpisodes(episodes))
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	result, err := s.episodes.Generate(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.writeError(w, http.StatusConflict, api.ErrorResponse{Error: err.Error()})
			return
		}
		resp := api.ErrorResponse{Error: err.Error()}
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			resp.Stage = string(stageErr.Stage)
			resp.RunID = stageErr.RunID
		}
		s.writeError(w, http.StatusInternalServerError, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResult(result))
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	if s.runs == nil {
		s.writeJSON(w, http.StatusOK, api.FromRuns(nil))
		return
	}
	var statuses []ledger.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		statuses = append(statuses, ledger.Status(trimmed))
	}
	limit := defaultRunLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := s.runs.List(r.Context(), limit, statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRuns(runs))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}

// handleLogs returns trailing log lines, or the lines written after the
// "since" offset when one is given.
func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	if s.logPath == "" {
		s.writeJSON(w, http.StatusOK, api.LogResponse{Lines: []string{}})
		return
	}
	query := r.URL.Query()
	match := logs.RunMatcher(query.Get("run"))

	var (
		chunk logs.Chunk
		err   error
	)
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		offset, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || offset < 0 {
			s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid since offset"})
			return
		}
		chunk, err = logs.Since(s.logPath, offset, match)
	} else {
		lines := logs.DefaultLines
		if raw := strings.TrimSpace(query.Get("lines")); raw != "" {
			n, perr := strconv.Atoi(raw)
			if perr != nil || n <= 0 {
				s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid lines"})
				return
			}
			lines = min(n, maxLogLines)
		}
		chunk, err = logs.Last(s.logPath, lines, match)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	resp := api.LogResponse{Lines: chunk.Lines, Offset: chunk.Offset}
	if resp.Lines == nil {
		resp.Lines = []string{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, resp api.ErrorResponse) {
	s.writeJSON(w, status, resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
