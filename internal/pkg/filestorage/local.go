package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yigit/coursehub/internal/pkg/logger"
)

// LocalStorage handles saving blobs to the local filesystem.
type LocalStorage struct {
	basePath string // root directory of every blob
}

// NewLocalStorage creates a new LocalStorage rooted at basePath, creating the
// directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	return filepath.Join(ls.basePath, name), nil
}

// Save writes r to basePath/name.
func (ls *LocalStorage) Save(ctx context.Context, name string, r io.Reader, _ string) (int64, error) {
	dstPath, err := ls.path(name)
	if err != nil {
		return 0, err
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	n, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("path", dstPath).Msg("Failed to write blob content")
		_ = os.Remove(dstPath)
		return 0, fmt.Errorf("failed to save file content: %w", err)
	}

	logger.FromContext(ctx).Debug().Str("name", name).Int64("bytes", n).Msg("Blob saved")
	return n, nil
}

// Open returns the blob's file.
func (ls *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := ls.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob's file. Returns nil if the file doesn't exist.
func (ls *LocalStorage) Delete(ctx context.Context, name string) error {
	p, err := ls.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.FromContext(ctx).Warn().Str("path", p).Msg("File to delete does not exist")
			return nil
		}
		logger.FromContext(ctx).Error().Err(err).Str("path", p).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
