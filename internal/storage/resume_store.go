// Package storage keeps uploaded resumes on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/intern-service/internal/config"
)

var (
	ErrTooLarge        = errors.New("file exceeds upload limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// BlobStore stores uploaded files and returns a reference to keep on the owning record.
type BlobStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// LocalStore writes files under a single directory.
type LocalStore struct {
	dir      string
	maxBytes int64
}

// NewLocalStore creates the upload directory when missing.
func NewLocalStore(cfg config.UploadConfig) (*LocalStore, error) {
	dir := cfg.Dir
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: int64(cfg.MaxBytes)}, nil
}

// Save copies the upload to <dir>/<uuid><ext> and returns that path.
func (s *LocalStore) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", errors.New("no file")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ref := filepath.Join(s.dir, uuid.NewString()+ext)
	dst, err := os.OpenFile(ref, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	var reader io.Reader = src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	written, copyErr := io.Copy(dst, reader)
	closeErr := dst.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(ref)
		return "", copyErr
	case closeErr != nil:
		_ = os.Remove(ref)
		return "", closeErr
	case s.maxBytes > 0 && written > s.maxBytes:
		_ = os.Remove(ref)
		return "", ErrTooLarge
	}
	return ref, nil
}

// Delete removes a stored file. Unknown references are ignored.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if ref == "" || filepath.Dir(ref) != filepath.Clean(s.dir) {
		return nil
	}
	if err := os.Remove(ref); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
