package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/super-wire/internal/fileutil"
	"github.com/phrazzld/super-wire/internal/services"
)

// Local stores objects as files in a directory.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates dir if needed. baseURL prefixes object URLs; when empty,
// file:// URLs are returned.
func NewLocal(dir, baseURL string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "local", "storage.local.dir is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}, nil
}

func (l *Local) Name() string { return "local" }

// Upload copies path into the directory. The copy lands under a temporary
// name first so listings never see a partial object.
func (l *Local) Upload(ctx context.Context, key, path string) (Object, error) {
	if err := validKey(key); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	dst := filepath.Join(l.dir, key)
	tmp := dst + ".partial"
	if err := fileutil.CopyFileVerified(path, tmp); err != nil {
		_ = os.Remove(tmp)
		return Object{}, services.Wrap(services.ErrTransient, "storage", "local upload", key, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return Object{}, services.Wrap(services.ErrTransient, "storage", "local upload", key, err)
	}
	if err := fileutil.SyncDir(l.dir); err != nil {
		return Object{}, services.Wrap(services.ErrTransient, "storage", "local upload", "sync dir", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: l.URL(key), Size: info.Size(), Modified: info.ModTime()}, nil
}

func (l *Local) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Object{}, nil
		}
		return nil, services.Wrap(services.ErrTransient, "storage", "local list", l.dir, err)
	}
	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".partial") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{Key: entry.Name(), URL: l.URL(entry.Name()), Size: info.Size(), Modified: info.ModTime()})
	}
	return objects, nil
}

func (l *Local) URL(key string) string {
	if l.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.Join(l.dir, key)}).String()
	}
	return l.baseURL + "/" + url.PathEscape(key)
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return services.Wrap(services.ErrValidation, "storage", "upload", fmt.Sprintf("invalid object key %q", key), nil)
	}
	return nil
}
