package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when the referenced object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path          string
	Size          int64
	ContentType   string
	DownloadToken string
}

// Bucket abstracts a path-addressed object store. Objects carry an opaque
// download token in their metadata; the persistent URL embeds bucket, path
// and token so it survives credential rotation.
type Bucket interface {
	// Stat returns the object's metadata, tagging it with a fresh download
	// token when it does not carry one yet.
	Stat(ctx context.Context, path string) (ObjectInfo, error)
	// Download copies the object to a local file.
	Download(ctx context.Context, path, destination string) error
	// Upload stores a local file under path with the given content type and
	// download token.
	Upload(ctx context.Context, path, localFile, contentType, downloadToken string) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
	// DownloadURL builds the persistent, tokenized URL for an object.
	DownloadURL(path, downloadToken string) string
}
