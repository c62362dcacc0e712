package storage

import (
	"io"
	"path"
	"strings"
)

// DefaultExt is used when an upload arrives without a usable extension.
const DefaultExt = ".jpg"

// UploadExt picks the stored extension from the client's filename.
func UploadExt(originalName string) string {
	ext := path.Ext(path.Base(strings.ReplaceAll(originalName, "\\", "/")))
	if ext == "" || ext == "." {
		return DefaultExt
	}
	return ext
}

// mimeType sederhana
func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}

// trackedReader remembers read-side failures so callers can tell a broken
// upload stream apart from a failed write.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
