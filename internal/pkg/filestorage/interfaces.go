package filestorage

import (
	"errors"
	"io"
)

// ErrInvalidPath is returned for keys that escape the storage root
var ErrInvalidPath = errors.New("invalid file path")

// StoredFile describes a file written to storage
type StoredFile struct {
	Key      string // Path relative to the storage root, always slash separated
	Size     int64
	MimeType string
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Save writes content under subPath with a generated name and the given extension
	Save(content io.Reader, subPath, ext string) (*StoredFile, error)

	// Open returns a reader for a stored file
	Open(key string) (io.ReadCloser, error)

	// Delete removes a stored file; missing files are not an error
	Delete(key string) error

	// FullPath resolves a key to its filesystem location
	FullPath(key string) (string, error)
}
