package storage

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()
	key := ObjectKey(TweetImagesPrefix, 7, "../../etc/my photo.JPG")
	assert.True(t, strings.HasPrefix(key, "tweets/images/user_7/"), key)
	assert.True(t, strings.HasSuffix(key, "_my_photo.JPG"), key)
	assert.NotContains(t, key, "..")

	other := ObjectKey(TweetImagesPrefix, 7, "my photo.JPG")
	assert.NotEqual(t, key, other)

	assert.True(t, strings.HasSuffix(ObjectKey(ProfileImagesPrefix, 1, ""), "_upload"))
	assert.Equal(t, "a/b/c.webp", WithExtension("a/b/c.png", ".webp"))
}

func TestLocalStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root, "/media")
	require.NoError(t, err)

	key := "tweets/images/user_1/abc_pic.png"
	require.NoError(t, s.Put(ctx, key, []byte("data"), "image/png"))

	got, err := os.ReadFile(filepath.Join(root, "tweets", "images", "user_1", "abc_pic.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
	assert.Equal(t, "/media/"+key, s.URL(key))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(root, key))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Put(ctx, "../escape.png", []byte("x"), ""))
	assert.Error(t, s.Put(ctx, "/abs.png", []byte("x"), ""))
}

func TestEncodeAvatar(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 800, 200))
	for x := 0; x < 800; x++ {
		src.Set(x, 0, color.RGBA{R: 200, A: 255})
	}

	data, err := EncodeAvatar(src)
	require.NoError(t, err)

	cfg, err := webp.DecodeConfig(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, AvatarMaxSide, cfg.Width)
	assert.Equal(t, 100, cfg.Height)

	small, err := EncodeAvatar(image.NewRGBA(image.Rect(0, 0, 10, 20)))
	require.NoError(t, err)
	cfg, err = webp.DecodeConfig(strings.NewReader(string(small)))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
}
