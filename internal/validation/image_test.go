package validation

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 120, A: 255})
		}
	}
	return img
}

func encoded(t *testing.T, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, sampleImage())
	case "jpeg":
		err = jpeg.Encode(&buf, sampleImage(), nil)
	case "webp":
		err = webp.Encode(&buf, sampleImage(), &webp.Options{Lossless: true})
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	t.Parallel()
	for _, format := range []string{"png", "jpeg", "webp"} {
		t.Run(format, func(t *testing.T) {
			img, got, err := DecodeImage(encoded(t, format))
			require.NoError(t, err)
			assert.Equal(t, format, got)
			assert.Equal(t, 4, img.Bounds().Dx())
		})
	}
}

func TestDecodeImage_Rejects(t *testing.T) {
	t.Parallel()
	truncated := encoded(t, "png")
	truncated = truncated[:len(truncated)/2]

	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("this is not an image, just a renamed text file"),
		"truncated": truncated,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeImage(data)
			assert.ErrorIs(t, err, ErrInvalidImage)
			assert.EqualError(t, err, MsgInvalidImage)
		})
	}
}
