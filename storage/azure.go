package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/wailsapp/mimetype"

	"github.com/probelab/polymigrate/logger"
)

// AzureProvider stores objects as blobs in an Azure Storage container.
// The container is expected to exist.
type AzureProvider struct {
	client    *azblob.Client
	container string
}

func NewAzureProvider(connectionString, container string) (*AzureProvider, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}
	return &AzureProvider{client: client, container: container}, nil
}

func (p *AzureProvider) PutObject(ctx context.Context, namespace, name string, content []byte) error {
	mediaType := mimetype.Detect(content).String()
	// UploadBuffer overwrites an existing blob with the same name.
	_, err := p.client.UploadBuffer(ctx, p.container, objectKey(namespace, name), content,
		&azblob.UploadBufferOptions{
			HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &mediaType},
		})
	if err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	return nil
}

func (p *AzureProvider) GetObject(ctx context.Context, namespace, name string) ([]byte, error) {
	resp, err := p.client.DownloadStream(ctx, p.container, objectKey(namespace, name), nil)
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	return buf.Bytes(), nil
}

func (p *AzureProvider) ListObjects(ctx context.Context, namespace string) ([]string, error) {
	prefix := strings.TrimSuffix(namespace, "/") + "/"
	var names []string

	pager := p.client.NewListBlobsFlatPager(p.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &Error{Op: "list", Namespace: namespace, Err: err}
		}
		for _, item := range page.Segment.BlobItems {
			names = append(names, strings.TrimPrefix(*item.Name, prefix))
		}
	}
	return names, nil
}

func (p *AzureProvider) DeleteObject(ctx context.Context, namespace, name string) error {
	_, err := p.client.DeleteBlob(ctx, p.container, objectKey(namespace, name), nil)
	if err != nil {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	return nil
}

func (p *AzureProvider) CleanNamespace(ctx context.Context, namespace string) error {
	names, err := p.ListObjects(ctx, namespace)
	if err != nil {
		return err
	}

	var failed []string
	var lastErr error
	for _, name := range names {
		_, err := p.client.DeleteBlob(ctx, p.container, objectKey(namespace, name), nil)
		if err != nil {
			failed = append(failed, name)
			lastErr = err
		}
	}
	if len(failed) > 0 {
		return &Error{Op: "clean", Namespace: namespace, FailedObjects: failed, Err: lastErr}
	}

	logger.FromContext(ctx).Info("cleaned storage namespace",
		"namespace", namespace, "deleted", len(names), "backend", "azure")
	return nil
}
