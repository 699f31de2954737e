package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/services"
)

const supabaseListPage = 100

// objectAPI is the slice of the Supabase storage client the backend uses.
type objectAPI interface {
	upload(key string, data io.Reader, contentType string) error
	listPage(offset, limit int) ([]Object, error)
	url(key string) string
}

// Supabase stores objects in a Supabase storage bucket.
type Supabase struct {
	api objectAPI
}

// NewSupabase connects to the project at cfg.URL with the service key.
func NewSupabase(cfg config.SupabaseStorage) (*Supabase, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	key := strings.TrimSpace(cfg.Key)
	bucket := strings.TrimSpace(cfg.Bucket)
	if url == "" || key == "" || bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "supabase", "url, key and bucket are required", nil)
	}
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "supabase", "initialize client", err)
	}
	if client.Storage == nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "supabase", "storage client unavailable", nil)
	}
	return &Supabase{api: &supabaseBucket{client: client.Storage, bucket: bucket}}, nil
}

func (s *Supabase) Name() string { return "supabase" }

// Upload sends the file at path. The SDK calls are not context aware, so
// ctx is only checked before the transfer starts.
func (s *Supabase) Upload(ctx context.Context, key, path string) (Object, error) {
	if err := validKey(key); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return Object{}, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat artifact: %w", err)
	}
	if err := s.api.upload(key, file, contentType(key)); err != nil {
		return Object{}, services.Wrap(services.ErrTransient, "storage", "supabase upload", key, err)
	}
	return Object{Key: key, URL: s.api.url(key), Size: info.Size(), Modified: info.ModTime()}, nil
}

func (s *Supabase) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	for offset := 0; ; offset += supabaseListPage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := s.api.listPage(offset, supabaseListPage)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "storage", "supabase list", "", err)
		}
		for _, obj := range page {
			if obj.Key != "" {
				objects = append(objects, obj)
			}
		}
		if len(page) < supabaseListPage {
			return objects, nil
		}
	}
}

func (s *Supabase) URL(key string) string { return s.api.url(key) }

type supabaseBucket struct {
	client *storage_go.Client
	bucket string
}

func (b *supabaseBucket) upload(key string, data io.Reader, contentType string) error {
	upsert := false
	_, err := b.client.UploadFile(b.bucket, key, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	return err
}

func (b *supabaseBucket) listPage(offset, limit int) ([]Object, error) {
	files, err := b.client.ListFiles(b.bucket, "", storage_go.FileSearchOptions{
		Limit:  limit,
		Offset: offset,
		SortByOptions: storage_go.SortBy{
			Column: "name",
			Order:  "asc",
		},
	})
	if err != nil {
		return nil, err
	}
	objects := make([]Object, 0, len(files))
	for _, f := range files {
		obj := Object{Key: f.Name}
		if f.Name != "" {
			obj.URL = b.url(f.Name)
		}
		if ts, err := time.Parse(time.RFC3339, f.UpdatedAt); err == nil {
			obj.Modified = ts
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (b *supabaseBucket) url(key string) string {
	return b.client.GetPublicUrl(b.bucket, key).SignedURL
}
