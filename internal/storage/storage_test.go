package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/services"
)

func writeArtifact(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "2026-10-17T08:00:00.000Z-episode.mp3")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLocalUploadAndList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "episodes")
	bucket, err := NewLocal(dir, "https://cdn.example.com/episodes/")
	require.NoError(t, err)

	src := writeArtifact(t, "episode bytes")
	key := filepath.Base(src)
	obj, err := bucket.Upload(context.Background(), key, src)
	require.NoError(t, err)
	assert.Equal(t, key, obj.Key)
	assert.Equal(t, int64(len("episode bytes")), obj.Size)
	assert.Equal(t, "https://cdn.example.com/episodes/"+key, obj.URL)

	stored, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "episode bytes", string(stored))

	objects, err := bucket.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, key, objects[0].Key)
}

func TestLocalListHidesPartialUploads(t *testing.T) {
	dir := t.TempDir()
	bucket, err := NewLocal(dir, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x-episode.mp3.partial"), []byte("half"), 0o644))

	objects, err := bucket.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, objects)
	assert.True(t, strings.HasPrefix(bucket.URL("a.mp3"), "file://"))
}

func TestLocalUploadRejectsPathKeys(t *testing.T) {
	bucket, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	_, err = bucket.Upload(context.Background(), "../escape.mp3", writeArtifact(t, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestLocalUploadMissingSourceLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	bucket, err := NewLocal(dir, "")
	require.NoError(t, err)
	_, err = bucket.Upload(context.Background(), "k-episode.mp3", filepath.Join(dir, "missing.mp3"))
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type staticBucket struct {
	objects []Object
	err     error
}

func (s staticBucket) Upload(context.Context, string, string) (Object, error) {
	return Object{}, errors.New("not implemented")
}
func (s staticBucket) List(context.Context) ([]Object, error) { return s.objects, s.err }
func (s staticBucket) URL(key string) string                  { return "https://bucket.example/" + key }
func (s staticBucket) Name() string                           { return "static" }

func TestEpisodesFiltersAndSortsNewestFirst(t *testing.T) {
	bucket := staticBucket{objects: []Object{
		{Key: "2026-10-15T08:00:00.000Z-episode.mp3"},
		{Key: "2026-10-15T08:00:00.000Z-00-intro.mp3"},
		{Key: "notes.txt"},
		{Key: "2026-10-17T08:00:00.000Z-episode.mp3", URL: "https://signed.example/latest"},
		{Key: "2026-10-16T08:00:00.000Z-episode.ogg"},
	}}

	episodes, err := Episodes(context.Background(), bucket, "mp3")
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "2026-10-17T08:00:00.000Z-episode.mp3", episodes[0].Name)
	assert.Equal(t, "https://signed.example/latest", episodes[0].URL)
	assert.Equal(t, "2026-10-15T08:00:00.000Z-episode.mp3", episodes[1].Name)
	assert.Equal(t, "https://bucket.example/2026-10-15T08:00:00.000Z-episode.mp3", episodes[1].URL)
	assert.Equal(t, time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC), episodes[0].PublishedAt)
}

func TestEpisodesEmptyIsNotNil(t *testing.T) {
	episodes, err := Episodes(context.Background(), staticBucket{}, "mp3")
	require.NoError(t, err)
	assert.NotNil(t, episodes)
	assert.Empty(t, episodes)
}

func TestEpisodesPropagatesListError(t *testing.T) {
	_, err := Episodes(context.Background(), staticBucket{err: errors.New("boom")}, "mp3")
	assert.EqualError(t, err, "boom")
}

type fakeBlobs struct {
	uploaded map[string]string
	types    map[string]string
	listErr  error
}

func (f *fakeBlobs) upload(_ context.Context, key string, file *os.File, contentType string) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
		f.types = map[string]string{}
	}
	f.uploaded[key] = string(data)
	f.types[key] = contentType
	return nil
}

func (f *fakeBlobs) list(context.Context) ([]Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Object
	for key := range f.uploaded {
		out = append(out, Object{Key: key, URL: f.url(key)})
	}
	return out, nil
}

func (f *fakeBlobs) url(key string) string {
	return "https://acct.blob.core.windows.net/episodes/" + key
}

func TestAzureUploadUsesAudioContentType(t *testing.T) {
	api := &fakeBlobs{}
	bucket := newAzureWithAPI(api, nil)
	src := writeArtifact(t, "mp3 data")
	key := filepath.Base(src)

	obj, err := bucket.Upload(context.Background(), key, src)
	require.NoError(t, err)
	assert.Equal(t, "mp3 data", api.uploaded[key])
	assert.Equal(t, "audio/mpeg", api.types[key])
	assert.Equal(t, api.url(key), obj.URL)

	episodes, err := Episodes(context.Background(), bucket, "mp3")
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, key, episodes[0].Name)
}

func TestAzureListErrorIsWrapped(t *testing.T) {
	bucket := newAzureWithAPI(&fakeBlobs{listErr: errors.New("connection reset")}, nil)
	_, err := bucket.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrTransient)
	assert.Contains(t, err.Error(), "connection reset")
}

type fakeObjects struct {
	keys    []string
	offsets []int
}

func (f *fakeObjects) upload(key string, data io.Reader, _ string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeObjects) listPage(offset, limit int) ([]Object, error) {
	f.offsets = append(f.offsets, offset)
	var page []Object
	for i := offset; i < len(f.keys) && i < offset+limit; i++ {
		page = append(page, Object{Key: f.keys[i]})
	}
	return page, nil
}

func (f *fakeObjects) url(key string) string { return "https://proj.supabase.co/storage/v1/object/public/episodes/" + key }

func TestSupabaseListPaginates(t *testing.T) {
	api := &fakeObjects{}
	for i := range supabaseListPage + 5 {
		api.keys = append(api.keys, time.Date(2026, 1, 1, 0, 0, 0, i*int(time.Millisecond), time.UTC).Format("2006-01-02T15:04:05.000Z")+"-episode.mp3")
	}
	bucket := &Supabase{api: api}

	objects, err := bucket.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, objects, supabaseListPage+5)
	assert.Equal(t, []int{0, supabaseListPage}, api.offsets)
}

func TestSupabaseUploadHonoursCancelledContext(t *testing.T) {
	api := &fakeObjects{}
	bucket := &Supabase{api: api}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := bucket.Upload(ctx, "k-episode.mp3", writeArtifact(t, "x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.keys)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "gcs"
	_, err := Open(context.Background(), &cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestOpenLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Local.Dir = t.TempDir()
	bucket, err := Open(context.Background(), &cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", bucket.Name())
}
