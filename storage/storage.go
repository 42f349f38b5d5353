// Package storage holds the blob storage abstraction the migration
// engine writes judge test files into. All backends implement identical
// clean/write/list semantics so the reconciliation step can treat them
// interchangeably.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the closed set of blob backends. A namespace is the
// logical folder scoping all objects of one migrated problem, e.g.
// "test_cases/{problemRecordID}".
type Provider interface {
	// PutObject stores content under namespace/name, overwriting any
	// existing object with the same name.
	PutObject(ctx context.Context, namespace, name string, content []byte) error
	// GetObject returns the content of namespace/name.
	GetObject(ctx context.Context, namespace, name string) ([]byte, error)
	// ListObjects returns the object names (without the namespace
	// prefix) currently stored under namespace.
	ListObjects(ctx context.Context, namespace string) ([]string, error)
	// DeleteObject removes a single object.
	DeleteObject(ctx context.Context, namespace, name string) error
	// CleanNamespace removes every object under namespace. A partial
	// deletion fails with an *Error naming the objects left behind.
	CleanNamespace(ctx context.Context, namespace string) error
}

// Error is a storage backend failure. FailedObjects names the objects
// a partial clean could not remove.
type Error struct {
	Op            string
	Namespace     string
	FailedObjects []string
	Err           error
}

func (e *Error) Error() string {
	if len(e.FailedObjects) > 0 {
		return fmt.Sprintf("storage %s %s: objects left behind %v: %v",
			e.Op, e.Namespace, e.FailedObjects, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Namespace, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// objectKey joins namespace and name into a backend key.
func objectKey(namespace, name string) string {
	return strings.TrimSuffix(namespace, "/") + "/" + name
}
