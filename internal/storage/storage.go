// Package storage persists uploaded images.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ImageStore saves and removes objects addressed by slash-separated keys.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL is the public address of key.
	URL(key string) string
}

// Key prefixes; the user's id is appended as user_<id>.
const (
	ProfileImagesPrefix = "profile/images"
	TweetImagesPrefix   = "tweets/images"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds "<prefix>/user_<id>/<random>_<name>". The random part
// keeps two uploads with the same file name apart.
func ObjectKey(prefix string, userID uint, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == "_" {
		base = "upload"
	}
	return path.Join(prefix, fmt.Sprintf("user_%d", userID), uuid.NewString()[:8]+"_"+base)
}

// WithExtension replaces the extension of key.
func WithExtension(key, ext string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ext
}
