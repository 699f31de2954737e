package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/services"
	"github.com/phrazzld/super-wire/internal/workspace"
)

// Object is one stored file.
type Object struct {
	Key      string
	URL      string
	Size     int64
	Modified time.Time
}

// Bucket is a durable object store.
type Bucket interface {
	// Upload copies the local file at path to key and returns the stored object.
	Upload(ctx context.Context, key, path string) (Object, error)
	// List returns every object in the bucket.
	List(ctx context.Context) ([]Object, error)
	// URL returns the public address of key.
	URL(key string) string
	// Name identifies the backend in logs.
	Name() string
}

// Episode is a published artifact as exposed to listeners.
type Episode struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"-"`
}

// Episodes lists published artifacts with extension ext, newest first.
// Objects whose key does not end in -episode.<ext> are ignored. Keys with an
// unparseable timestamp sort last. The result is never nil.
func Episodes(ctx context.Context, b Bucket, ext string) ([]Episode, error) {
	objects, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	episodes := make([]Episode, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, workspace.ArtifactSuffix(ext)) {
			continue
		}
		_, published, _ := workspace.ParseArtifactKey(obj.Key, ext)
		url := obj.URL
		if url == "" {
			url = b.URL(obj.Key)
		}
		episodes = append(episodes, Episode{Name: obj.Key, URL: url, PublishedAt: published})
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].PublishedAt.After(episodes[j].PublishedAt)
	})
	return episodes, nil
}

// Open builds the bucket selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Bucket, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open", "config is nil", nil)
	}
	s := cfg.Storage
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case "", config.StorageLocal:
		return NewLocal(s.Local.Dir, s.Local.PublicBaseURL)
	case config.StorageAzure:
		return NewAzure(ctx, s.Azure, logger)
	case config.StorageSupabase:
		return NewSupabase(s.Supabase)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open", fmt.Sprintf("unknown backend %q", s.Backend), nil)
	}
}
