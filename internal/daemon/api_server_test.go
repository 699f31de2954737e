package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/ledger"
	"github.com/phrazzld/super-wire/internal/pipeline"
	"github.com/phrazzld/super-wire/internal/storage"
)

type episodeServiceStub struct {
	episodes []storage.Episode
	listErr  error
	result   pipeline.Result
	genErr   error
	calls    int
}

func (s *episodeServiceStub) Generate(context.Context) (pipeline.Result, error) {
	s.calls++
	return s.result, s.genErr
}

func (s *episodeServiceStub) ListEpisodes(context.Context) ([]storage.Episode, error) {
	return s.episodes, s.listErr
}

type runListerStub struct {
	limit    int
	statuses []ledger.Status
	runs     []*ledger.Run
}

func (s *runListerStub) List(_ context.Context, limit int, statuses ...ledger.Status) ([]*ledger.Run, error) {
	s.limit = limit
	s.statuses = statuses
	return s.runs, nil
}

func newTestServer(svc EpisodeService, runs RunLister, token string) *apiServer {
	status := func(context.Context) api.DaemonStatus { return api.DaemonStatus{Running: true} }
	return newAPIServer("127.0.0.1:0", token, svc, runs, status, nil)
}

func do(t *testing.T, srv *apiServer, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader("{}"))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	return w
}

func TestListEpisodesEmptyIsArray(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, nil, "")

	w := do(t, srv, http.MethodGet, "/episodes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"episodes":[]}`, w.Body.String())
}

func TestListEpisodesReturnsNameAndURL(t *testing.T) {
	svc := &episodeServiceStub{episodes: []storage.Episode{
		{Name: "2026-03-14T09:30:00.000Z-episode.mp3", URL: "https://cdn.test/new", PublishedAt: time.Now()},
		{Name: "2026-03-13T09:30:00.000Z-episode.mp3", URL: "https://cdn.test/old"},
	}}
	srv := newTestServer(svc, nil, "")

	w := do(t, srv, http.MethodGet, "/episodes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.EpisodeListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Episodes, 2)
	assert.Equal(t, "https://cdn.test/new", resp.Episodes[0].URL)
	assert.NotContains(t, w.Body.String(), "PublishedAt")
}

func TestListEpisodesStorageFailure(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{listErr: errors.New("container missing")}, nil, "")

	w := do(t, srv, http.MethodGet, "/episodes", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"container missing"}`, w.Body.String())
}

func TestGenerateSuccess(t *testing.T) {
	svc := &episodeServiceStub{result: pipeline.Result{RunID: "r1", Key: "r1-episode.mp3", URL: "https://cdn.test/r1", Stories: 3}}
	srv := newTestServer(svc, nil, "")

	w := do(t, srv, http.MethodPost, "/episodes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Episode recorded!", resp.Message)
	assert.Equal(t, "r1-episode.mp3", resp.Key)
	assert.False(t, resp.CleanupIncomplete)
}

func TestGenerateCleanupFailureStillSucceeds(t *testing.T) {
	svc := &episodeServiceStub{result: pipeline.Result{RunID: "r1", Key: "k", CleanupErr: errors.New("busy")}}
	srv := newTestServer(svc, nil, "")

	w := do(t, srv, http.MethodPost, "/episodes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cleanupIncomplete":true`)
}

func TestGeneratePipelineFailure(t *testing.T) {
	svc := &episodeServiceStub{genErr: &pipeline.StageError{
		RunID: "r1",
		Stage: pipeline.StageWriteIntro,
		Err:   errors.New("backend exhausted"),
	}}
	srv := newTestServer(svc, nil, "")

	w := do(t, srv, http.MethodPost, "/episodes", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "backend exhausted")
	assert.Equal(t, "WRITE_INTRO", resp.Stage)
	assert.Equal(t, "r1", resp.RunID)
}

func TestGenerateConflictWhileRunning(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{genErr: pipeline.ErrRunInProgress}, nil, "")

	w := do(t, srv, http.MethodPost, "/episodes", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEpisodesRejectsOtherMethods(t *testing.T) {
	svc := &episodeServiceStub{}
	srv := newTestServer(svc, nil, "")

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := do(t, srv, method, "/episodes", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
	}
	assert.Zero(t, svc.calls)
}

func TestGenerateRequiresTokenWhenConfigured(t *testing.T) {
	svc := &episodeServiceStub{result: pipeline.Result{Key: "k"}}
	srv := newTestServer(svc, nil, "s3cret")

	w := do(t, srv, http.MethodPost, "/episodes", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized,
		do(t, srv, http.MethodPost, "/episodes", map[string]string{"Authorization": "bearer"}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, srv, http.MethodPost, "/episodes", map[string]string{"Authorization": "Bearer wrong"}).Code)
	assert.Zero(t, svc.calls)

	w = do(t, srv, http.MethodPost, "/episodes", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)

	// listing stays public
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/episodes", nil).Code)
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, nil, "")

	w := do(t, srv, http.MethodGet, "/episodes", map[string]string{requestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = do(t, srv, http.MethodGet, "/episodes", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestRunsParsesFilters(t *testing.T) {
	runs := &runListerStub{runs: []*ledger.Run{{ID: "r1", Status: ledger.StatusFailed, Stage: "STITCH"}}}
	srv := newTestServer(&episodeServiceStub{}, runs, "")

	w := do(t, srv, http.MethodGet, "/runs?status=failed&status=&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, runs.limit)
	assert.Equal(t, []ledger.Status{ledger.StatusFailed}, runs.statuses)
	var resp api.RunListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "Stitch", resp.Runs[0].StageLabel)
}

func TestRunsRejectsBadLimit(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, &runListerStub{}, "")

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/runs?limit=zero", nil).Code)
}

func TestRunsWithoutLedger(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, nil, "")

	w := do(t, srv, http.MethodGet, "/runs", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestLogsTailAndResume(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, nil, "")
	srv.logPath = filepath.Join(t.TempDir(), "superwire.log")
	require.NoError(t, os.WriteFile(srv.logPath, []byte(
		"INFO  pipeline [run=1] started\nINFO  pipeline [run=2] started\nINFO  pipeline [run=1] published\n"), 0o644))

	w := do(t, srv, http.MethodGet, "/logs?run=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.LogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Lines, 2)
	assert.Positive(t, resp.Offset)

	w = do(t, srv, http.MethodGet, "/logs?since="+strconv.FormatInt(resp.Offset, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"lines":[],"offset":%d}`, resp.Offset), w.Body.String())

	w = do(t, srv, http.MethodGet, "/logs?lines=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogsWithoutLogDir(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, nil, "")

	w := do(t, srv, http.MethodGet, "/logs", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lines":[],"offset":0}`, w.Body.String())
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newTestServer(&episodeServiceStub{}, nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx) }()

	require.Eventually(t, func() bool { return srv.addr() != "" }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + srv.addr() + "/status")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
