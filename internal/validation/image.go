package validation

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"strings"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrInvalidImage is returned for payloads that do not decode as a raster image.
var ErrInvalidImage = errors.New(MsgInvalidImage)

// DecodeImage sniffs and fully decodes data. A renamed non-image payload or a
// truncated image both fail with ErrInvalidImage.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrInvalidImage
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, "", ErrInvalidImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrInvalidImage
	}
	return img, format, nil
}
