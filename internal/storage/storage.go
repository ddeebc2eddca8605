// Package storage abstracts the destinations converted files can be
// mirrored to after a successful local write.
package storage

import (
	"context"

	"github.com/reflbase/reflbase/internal/errors"
)

// Common errors for storage operations. Each carries a STORAGE category
// code, so callers can branch on errors.GetCode across a wrapped chain.
var (
	ErrObjectNotFound = errors.New(errors.ErrCategoryStorage, errors.CodeObjectNotFound, "object not found")
	ErrUploadFailed   = errors.New(errors.ErrCategoryStorage, errors.CodeUploadFailed, "upload failed")
	ErrDownloadFailed = errors.New(errors.ErrCategoryStorage, errors.CodeDownloadFailed, "download failed")
)

// ObjectStorage abstracts the destination of converted files.
// Implementations cover S3 and the local filesystem.
type ObjectStorage interface {
	// Upload copies a local file to objectPath in the destination.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download copies an object back to the local filesystem.
	Download(ctx context.Context, objectPath, localPath string) error

	// Exists reports whether an object exists at objectPath.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
