package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/jjudge-oj/accountsvc/config"
	"google.golang.org/api/option"
)

// GCSClient stores exports in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    *storage.BucketHandle
	name      string
	projectID string
}

// NewGCSClient constructs a GCS client writing to bucket.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig, bucket string) (*GCSClient, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSClient{
		client:    client,
		bucket:    client.Bucket(bucket),
		name:      bucket,
		projectID: cfg.ProjectID,
	}, nil
}

// EnsureBucket creates the bucket when missing, which requires GCS_PROJECT_ID.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.bucket.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("check bucket %s: %w", g.name, err)
	case strings.TrimSpace(g.projectID) == "":
		return fmt.Errorf("bucket %s does not exist and GCS_PROJECT_ID is not set", g.name)
	}
	if err := g.bucket.Create(ctx, g.projectID, nil); err != nil {
		return fmt.Errorf("create bucket %s: %w", g.name, err)
	}
	return nil
}

// Put streams r into the object; size is not needed by the GCS writer.
func (g *GCSClient) Put(ctx context.Context, key string, r io.Reader, _ int64, opts PutOptions) error {
	writer := g.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = opts.ContentType
	writer.Metadata = opts.Metadata
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (g *GCSClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", g.name, key, ErrObjectNotFound)
		}
		return nil, err
	}
	return reader, nil
}

func (g *GCSClient) Bucket() string {
	return g.name
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
