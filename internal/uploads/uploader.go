package uploads

import (
	"context"
	"errors"
	"io"
)

// Kind is the blob-store media category.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Uploader pushes a binary payload to the external blob store and returns a
// stable URL. Callers must treat it as slow and fallible: a message may only
// be created after the upload has completed.
type Uploader interface {
	Upload(ctx context.Context, ownerID string, blob io.Reader, kind Kind) (string, error)
}

// Disabled is the fallback when no blob store is configured; every upload
// fails, so attachment sends surface an upload error instead of persisting
// a dangling URL.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, ownerID string, blob io.Reader, kind Kind) (string, error) {
	return "", errors.New("blob store not configured")
}
