package storage

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
)

// AvatarMaxSide bounds the longer side of stored avatars.
const AvatarMaxSide = 400

// EncodeAvatar scales img to fit AvatarMaxSide and encodes it as WebP.
func EncodeAvatar(img image.Image) ([]byte, error) {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w > AvatarMaxSide || h > AvatarMaxSide {
		if w >= h {
			h = h * AvatarMaxSide / w
			w = AvatarMaxSide
		} else {
			w = w * AvatarMaxSide / h
			h = AvatarMaxSide
		}
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
