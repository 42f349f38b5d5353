package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/probelab/polymigrate/logger"
)

// LocalProvider stores objects as plain files under a base directory.
// Mostly used for development and tests; it still honors the exact
// clean/write/list contract of the remote backends.
type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory %s: %w", basePath, err)
	}
	return &LocalProvider{basePath: basePath}, nil
}

func (p *LocalProvider) PutObject(ctx context.Context, namespace, name string, content []byte) error {
	dir := filepath.Join(p.basePath, filepath.FromSlash(namespace))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		return &Error{Op: "put", Namespace: namespace, Err: err}
	}
	return nil
}

func (p *LocalProvider) GetObject(ctx context.Context, namespace, name string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(p.basePath, filepath.FromSlash(namespace), name))
	if err != nil {
		return nil, &Error{Op: "get", Namespace: namespace, Err: err}
	}
	return content, nil
}

func (p *LocalProvider) ListObjects(ctx context.Context, namespace string) ([]string, error) {
	dir := filepath.Join(p.basePath, filepath.FromSlash(namespace))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Op: "list", Namespace: namespace, Err: err}
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (p *LocalProvider) DeleteObject(ctx context.Context, namespace, name string) error {
	err := os.Remove(filepath.Join(p.basePath, filepath.FromSlash(namespace), name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "delete", Namespace: namespace, FailedObjects: []string{name}, Err: err}
	}
	return nil
}

func (p *LocalProvider) CleanNamespace(ctx context.Context, namespace string) error {
	dir := filepath.Join(p.basePath, filepath.FromSlash(namespace))
	if err := os.RemoveAll(dir); err != nil {
		// Report what survived so the failure is actionable.
		left, _ := p.ListObjects(ctx, namespace)
		return &Error{Op: "clean", Namespace: namespace, FailedObjects: left, Err: err}
	}
	logger.FromContext(ctx).Debug("cleaned local namespace", "namespace", namespace)
	return nil
}
