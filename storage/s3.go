package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wailsapp/mimetype"

	"github.com/probelab/polymigrate/logger"
)

// S3Provider stores objects in an S3 bucket. The client is created
// once and reused for every call.
type S3Provider struct {
	client *s3.Client
	bucket string
}

func NewS3Provider(ctx context.Context, region, bucket string) (*S3Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Provider{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func (p *S3Provider) PutObject(ctx context.Context, namespace, name string, content []byte) error {
	key := objectKey(namespace, name)
	mediaType := mimetype.Detect(content).String()
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &p.bucket,
		Key:         &key,
		Body:        bytes.NewReader(content),
		ContentType: &mediaType,
	})
	if err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	return nil
}

func (p *S3Provider) GetObject(ctx context.Context, namespace, name string) ([]byte, error) {
	key := objectKey(namespace, name)
	output, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	defer output.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(output.Body); err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	return buf.Bytes(), nil
}

func (p *S3Provider) ListObjects(ctx context.Context, namespace string) ([]string, error) {
	prefix := strings.TrimSuffix(namespace, "/") + "/"
	var names []string

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: &p.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &Error{Op: "list", Namespace: namespace, Err: err}
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(*obj.Key, prefix))
		}
	}
	return names, nil
}

func (p *S3Provider) DeleteObject(ctx context.Context, namespace, name string) error {
	key := objectKey(namespace, name)
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	})
	if err != nil {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	return nil
}

func (p *S3Provider) CleanNamespace(ctx context.Context, namespace string) error {
	names, err := p.ListObjects(ctx, namespace)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	// DeleteObjects takes at most 1000 keys per request.
	const batchSize = 1000
	var failed []string
	var lastErr error
	for start := 0; start < len(names); start += batchSize {
		end := min(start+batchSize, len(names))
		batch := names[start:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for i, name := range batch {
			objects[i] = types.ObjectIdentifier{Key: aws.String(objectKey(namespace, name))}
		}
		output, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &p.bucket,
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			failed = append(failed, batch...)
			lastErr = err
			continue
		}
		for _, e := range output.Errors {
			failed = append(failed, strings.TrimPrefix(aws.ToString(e.Key), namespace+"/"))
			lastErr = fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}
	if len(failed) > 0 {
		return &Error{Op: "clean", Namespace: namespace, FailedObjects: failed, Err: lastErr}
	}

	logger.FromContext(ctx).Info("cleaned storage namespace",
		"namespace", namespace, "deleted", len(names), "backend", "s3")
	return nil
}
