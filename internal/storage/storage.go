package storage

import (
	"context"
	"time"
)

// Client is the object-store surface the attachment lifecycle needs. Keys
// are bucket-relative; the implementation owns bucket and endpoint.
type Client interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, key, downloadName string, expiry time.Duration) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}
