package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/services"
)

// blobAPI is the slice of the Azure SDK the backend uses.
type blobAPI interface {
	upload(ctx context.Context, key string, file *os.File, contentType string) error
	list(ctx context.Context) ([]Object, error)
	url(key string) string
}

// Azure stores objects as block blobs in one container.
type Azure struct {
	api    blobAPI
	logger *slog.Logger
}

// NewAzure connects with the connection string when set, otherwise with the
// account URL and DefaultAzureCredential. The container is created if missing.
func NewAzure(ctx context.Context, cfg config.AzureStorage, logger *slog.Logger) (*Azure, error) {
	container := strings.TrimSpace(cfg.Container)
	if container == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "azure", "storage.azure.container is empty", nil)
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case strings.TrimSpace(cfg.ConnectionString) != "":
		client, err = azblob.NewClientFromConnectionString(strings.TrimSpace(cfg.ConnectionString), nil)
	case strings.TrimSpace(cfg.AccountURL) != "":
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "storage", "azure", "default credential", err)
		}
		client, err = azblob.NewClient(strings.TrimSpace(cfg.AccountURL), cred, nil)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "azure", "set storage.azure.connection_string or storage.azure.account_url", nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "azure", "create client", err)
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, azureError("create container", container, err)
	}
	return newAzureWithAPI(&azureContainer{client: client, container: container}, logger), nil
}

func newAzureWithAPI(api blobAPI, logger *slog.Logger) *Azure {
	return &Azure{api: api, logger: logging.NewComponentLogger(logger, "storage")}
}

func (a *Azure) Name() string { return "azure" }

func (a *Azure) Upload(ctx context.Context, key, path string) (Object, error) {
	if err := validKey(key); err != nil {
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
	if err := a.api.upload(ctx, key, file, contentType(key)); err != nil {
		return Object{}, azureError("upload", key, err)
	}
	logging.WithContext(ctx, a.logger).Debug("blob uploaded", logging.String("key", key), logging.Int64("bytes", info.Size()))
	return Object{Key: key, URL: a.api.url(key), Size: info.Size(), Modified: info.ModTime()}, nil
}

func (a *Azure) List(ctx context.Context) ([]Object, error) {
	objects, err := a.api.list(ctx)
	if err != nil {
		return nil, azureError("list", "", err)
	}
	return objects, nil
}

func (a *Azure) URL(key string) string { return a.api.url(key) }

type azureContainer struct {
	client    *azblob.Client
	container string
}

func (c *azureContainer) upload(ctx context.Context, key string, file *os.File, contentType string) error {
	_, err := c.client.UploadFile(ctx, c.container, key, file, &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	return err
}

func (c *azureContainer) list(ctx context.Context) ([]Object, error) {
	pager := c.client.NewListBlobsFlatPager(c.container, nil)
	var objects []Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			obj := Object{Key: *item.Name, URL: c.url(*item.Name)}
			if props := item.Properties; props != nil {
				if props.ContentLength != nil {
					obj.Size = *props.ContentLength
				}
				if props.LastModified != nil {
					obj.Modified = *props.LastModified
				}
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (c *azureContainer) url(key string) string {
	return c.client.ServiceClient().NewContainerClient(c.container).NewBlobClient(key).URL()
}

func azureError(op, key string, err error) error {
	marker := services.ErrTransient
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			marker = services.ErrConfiguration
		case http.StatusNotFound:
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "storage", "azure "+op, strings.TrimSpace(key+" "+respErr.ErrorCode), err)
	}
	return services.Wrap(marker, "storage", "azure "+op, key, err)
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
}

func contentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
