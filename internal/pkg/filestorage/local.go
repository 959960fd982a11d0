package filestorage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
}

var _ FileStorage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage instance rooted at basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

// Save writes content to a uniquely named file below subPath
func (ls *LocalStorage) Save(content io.Reader, subPath, ext string) (*StoredFile, error) {
	cleanSub := path.Clean("/" + filepath.ToSlash(subPath))[1:]
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	key := path.Join(cleanSub, uuid.New().String()+ext)

	dstPath, err := ls.FullPath(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create subdirectory")
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, content)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Str("key", key).Int64("size", n).Msg("File saved successfully")
	return &StoredFile{Key: key, Size: n}, nil
}

// Open opens a stored file for reading
func (ls *LocalStorage) Open(key string) (io.ReadCloser, error) {
	full, err := ls.FullPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes a file from the storage filesystem.
// Returns nil if deletion is successful or if the file doesn't exist.
func (ls *LocalStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	full, err := ls.FullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", full).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", full).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", full).Msg("File deleted successfully")
	return nil
}

// FullPath returns the filesystem path for a key, rejecting keys outside the root
func (ls *LocalStorage) FullPath(key string) (string, error) {
	if key == "" || strings.Contains(key, "\x00") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + filepath.ToSlash(key))
	if cleaned == "/" {
		return "", ErrInvalidPath
	}
	// path.Clean on a rooted path removes every ".." that would climb above it
	if path.Clean(key) != cleaned[1:] {
		return "", ErrInvalidPath
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(cleaned[1:])), nil
}
