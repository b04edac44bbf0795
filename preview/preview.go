// Package preview holds generated map images that a user has not named or
// saved yet. Entries expire on their own; nothing here is durable.
package preview

import (
	"context"
	"errors"
	"time"
)

// ErrPreviewNotFound is returned for unknown and expired previews.
var ErrPreviewNotFound = errors.New("preview not found")

type Preview struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
	Size      int       `json:"size"`
	Content   []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Cache stores previews for a fixed time-to-live chosen at construction.
type Cache interface {
	// Put stores p and sets its ExpiresAt.
	Put(ctx context.Context, p *Preview) error
	Get(ctx context.Context, id string) (*Preview, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func clone(p *Preview) *Preview {
	c := *p
	c.Content = append([]byte(nil), p.Content...)

	return &c
}
