package storage

import (
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"
)

const flatPrefix = "payment"

// BlobKey names one stored object. Folder is a virtual directory: it only
// exists as a prefix of the flat object key.
type BlobKey struct {
	Folder string
	Name   string
}

// NewBlobKey generates the key for a new object. Without a folder the name is
// payment_<epoch-ms>_<id>.<ext>; with one it is <folder>/<id>.<ext>.
func NewBlobKey(folder, ext string, now time.Time, id string) BlobKey {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return BlobKey{Name: fmt.Sprintf("%s_%d_%s.%s", flatPrefix, now.UnixMilli(), id, ext)}
	}
	return BlobKey{Folder: folder, Name: id + "." + ext}
}

// String returns the full object key.
func (k BlobKey) String() string {
	if k.Folder == "" {
		return k.Name
	}
	return k.Folder + "/" + k.Name
}

// URL returns the public URL of the object under the container base URL.
// Each path segment is escaped; the separators stay literal.
func (k BlobKey) URL(base string) string {
	segments := strings.Split(k.String(), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// ParseBlobURL recovers the key of an object URL produced by URL. The URL
// must share the scheme and host of base. The container path prefix of base
// is stripped and the remainder is unescaped, so a key whose separators were
// encoded as %2F is recovered too.
func ParseBlobURL(raw, base string) (BlobKey, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return BlobKey{}, fmt.Errorf("parse blob url: %w", err)
	}
	b, err := url.Parse(base)
	if err != nil {
		return BlobKey{}, fmt.Errorf("parse container url: %w", err)
	}

	if b.Host != "" && (!strings.EqualFold(u.Host, b.Host) || !strings.EqualFold(u.Scheme, b.Scheme)) {
		return BlobKey{}, ErrForeignURL
	}

	prefix := strings.TrimRight(b.EscapedPath(), "/") + "/"
	escaped, ok := strings.CutPrefix(u.EscapedPath(), prefix)
	if !ok || escaped == "" {
		return BlobKey{}, ErrForeignURL
	}

	key, err := url.PathUnescape(escaped)
	if err != nil {
		return BlobKey{}, fmt.Errorf("decode blob name: %w", err)
	}

	if i := strings.LastIndex(key, "/"); i >= 0 {
		return BlobKey{Folder: key[:i], Name: key[i+1:]}, nil
	}
	return BlobKey{Name: key}, nil
}

// ExtensionFor derives the file extension from a MIME type: the subtype,
// with any parameters dropped.
func ExtensionFor(mimeType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, mimeType)
	}
	_, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || subtype == "" || strings.Contains(subtype, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, mimeType)
	}
	return subtype, nil
}
