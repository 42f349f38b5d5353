package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/wailsapp/mimetype"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/probelab/polymigrate/logger"
)

// GCSProvider stores objects in a Google Cloud Storage bucket,
// authenticated with a service account key file.
type GCSProvider struct {
	client *gcs.Client
	bucket string
}

func NewGCSProvider(ctx context.Context, bucket, credentialsFile string) (*GCSProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSProvider{client: client, bucket: bucket}, nil
}

func (p *GCSProvider) Close() error {
	return p.client.Close()
}

func (p *GCSProvider) PutObject(ctx context.Context, namespace, name string, content []byte) error {
	w := p.client.Bucket(p.bucket).Object(objectKey(namespace, name)).NewWriter(ctx)
	w.ContentType = mimetype.Detect(content).String()
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	if err := w.Close(); err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	return nil
}

func (p *GCSProvider) GetObject(ctx context.Context, namespace, name string) ([]byte, error) {
	r, err := p.client.Bucket(p.bucket).Object(objectKey(namespace, name)).NewReader(ctx)
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	return content, nil
}

func (p *GCSProvider) ListObjects(ctx context.Context, namespace string) ([]string, error) {
	prefix := strings.TrimSuffix(namespace, "/") + "/"
	it := p.client.Bucket(p.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &Error{Op: "list", Namespace: namespace, Err: err}
		}
		names = append(names, strings.TrimPrefix(attrs.Name, prefix))
	}
	return names, nil
}

func (p *GCSProvider) DeleteObject(ctx context.Context, namespace, name string) error {
	err := p.client.Bucket(p.bucket).Object(objectKey(namespace, name)).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	return nil
}

func (p *GCSProvider) CleanNamespace(ctx context.Context, namespace string) error {
	names, err := p.ListObjects(ctx, namespace)
	if err != nil {
		return err
	}

	var failed []string
	var lastErr error
	for _, name := range names {
		err := p.client.Bucket(p.bucket).Object(objectKey(namespace, name)).Delete(ctx)
		if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			failed = append(failed, name)
			lastErr = err
		}
	}
	if len(failed) > 0 {
		return &Error{Op: "clean", Namespace: namespace, FailedObjects: failed, Err: lastErr}
	}

	logger.FromContext(ctx).Info("cleaned storage namespace",
		"namespace", namespace, "deleted", len(names), "backend", "gcs")
	return nil
}
