package filestorage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// ErrBlobNotFound is returned by Open when no blob has the given name.
var ErrBlobNotFound = apperrors.ErrFileNotFound

// BlobStore stores opaque submission files under generated names.
type BlobStore interface {
	// Save writes r under name and returns the number of bytes written. A
	// partially written blob is removed before Save returns an error.
	Save(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)

	// Open returns a reader for the blob; ErrBlobNotFound if it does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// extensions maps the accepted upload content types to stored file extensions.
var extensions = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain": ".txt",
}

// NormalizeContentType strips parameters such as charset and lowercases the media type.
func NormalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// IsAllowedContentType reports whether uploads of contentType are accepted.
func IsAllowedContentType(contentType string) bool {
	_, ok := extensions[NormalizeContentType(contentType)]
	return ok
}

// AllowedContentTypes lists the accepted upload content types in order.
func AllowedContentTypes() []string {
	types := make([]string, 0, len(extensions))
	for ct := range extensions {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// GenerateName returns a fresh storage name for a blob of contentType. The
// client's filename never influences it.
func GenerateName(contentType string) (string, error) {
	ext, ok := extensions[NormalizeContentType(contentType)]
	if !ok {
		return "", apperrors.NewValidationError("file", "unsupported content type: "+contentType)
	}
	return uuid.NewString() + ext, nil
}

// validName rejects names that could escape the store's namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.New("invalid blob name: " + name)
	}
	return nil
}
