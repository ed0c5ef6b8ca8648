package media

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrNotFound    = errors.New("media not found")
	ErrInvalidData = errors.New("invalid media data")
	ErrTooLarge    = errors.New("media too large")
)

// MaxFileSize caps a single decoded upload.
const MaxFileSize = 5 << 20

type File struct {
	Name        string
	Folder      string
	ContentType string
	Data        []byte
}

// Store persists uploaded files and returns the reference kept on the row:
// an absolute URL, a data URL, or a /media/{id} path served by Open.
type Store interface {
	Save(ctx context.Context, file File) (string, error)
	Open(ctx context.Context, id string) (File, error)
}

// IsDataURL reports whether ref still carries inline bytes that should be
// moved into the configured store.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// DecodeDataURL accepts "data:<type>;base64,<payload>" or a bare base64
// payload, in which case the content type is sniffed.
func DecodeDataURL(raw string) (File, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return File{}, ErrInvalidData
	}
	contentType := ""
	payload := raw
	if IsDataURL(raw) {
		header, body, ok := strings.Cut(raw[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return File{}, ErrInvalidData
		}
		contentType = strings.TrimSuffix(header, ";base64")
		payload = body
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxFileSize+3 {
		return File{}, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return File{}, ErrInvalidData
	}
	if len(data) == 0 {
		return File{}, ErrInvalidData
	}
	if len(data) > MaxFileSize {
		return File{}, ErrTooLarge
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return File{ContentType: contentType, Data: data}, nil
}

// IsImage reports whether a sniffed content type is one of the image formats
// accepted for listings and transfer bills.
func IsImage(contentType string) bool {
	switch strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

func encodeDataURL(file File) string {
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(file.Data)
}

// Inline keeps files on the row itself as data URLs.
type Inline struct{}

func (Inline) Save(_ context.Context, file File) (string, error) {
	if len(file.Data) == 0 {
		return "", ErrInvalidData
	}
	return encodeDataURL(file), nil
}

func (Inline) Open(context.Context, string) (File, error) {
	return File{}, ErrNotFound
}
