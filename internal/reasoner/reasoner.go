// Package reasoner defines the image-grounded inference contract and the
// image encoding it consumes.
package reasoner

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Image is an encoded image ready to be embedded in a model request.
type Image struct {
	MIMEType string
	Base64   string
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64
}

// Reasoner answers a text query about an image.
type Reasoner interface {
	Infer(ctx context.Context, query string, img Image) (string, error)
}

// EncodeImage reads the image at path and base64-encodes it. The MIME type is
// sniffed from the content; unknown types are sent as image/jpeg.
func EncodeImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("reading image: %s is empty", path)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	return Image{
		MIMEType: mime,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}
