// Package storage keeps complaint and suggestion images. A stored image is
// referred to by an opaque string saved on the record; Resolve turns it
// into something a browser can load.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// MaxImageBytes bounds an uploaded image.
const MaxImageBytes = 2 << 20

var (
	ErrTooLarge   = errors.New("image must be at most 2 MB")
	ErrNotAnImage = errors.New("file is not a supported image")
)

// ImageStore saves images and resolves references to URLs.
type ImageStore interface {
	Save(ctx context.Context, data []byte) (ref string, err error)
	Resolve(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// DetectImage sniffs data and returns its content type. Only raster
// formats browsers render inline are accepted.
func DetectImage(data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", ErrTooLarge
	}
	ct := http.DetectContentType(data)
	switch ct {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return ct, nil
	}
	return "", ErrNotAnImage
}

// DecodeDataURL extracts the payload of a base64 data URL.
func DecodeDataURL(s string) ([]byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, ErrNotAnImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrNotAnImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrNotAnImage
	}
	return data, nil
}

// Inline stores images as data URLs on the record itself.
type Inline struct{}

func (Inline) Save(_ context.Context, data []byte) (string, error) {
	ct, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (Inline) Resolve(_ context.Context, ref string) (string, error) { return ref, nil }

func (Inline) Delete(context.Context, string) error { return nil }
