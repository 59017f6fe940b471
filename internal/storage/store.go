package storage

import (
	"context"
	"errors"
)

const MarkdownContentType = "text/markdown; charset=utf-8"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the minimal object storage surface the pipeline needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, content []byte, contentType string) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}
