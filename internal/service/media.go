package service

import (
	"context"
	"log/slog"

	"chirper/internal/models"
	"chirper/internal/storage"
	"chirper/internal/validation"
)

// Upload is an optional file posted with a form.
type Upload struct {
	Name string
	Data []byte
}

// decodeUpload reports the image content type, or adds a field error.
func decodeUpload(up *Upload, field string, fe models.FieldErrors) string {
	if up == nil {
		return ""
	}
	_, format, err := validation.DecodeImage(up.Data)
	if err != nil {
		fe.Add(field, validation.MsgInvalidImage)
		return ""
	}
	return "image/" + format
}

// removeObject deletes a replaced image. Failures only leave an orphan behind.
func removeObject(ctx context.Context, store storage.ImageStore, key string) {
	if key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete stored image", "key", key, "err", err)
	}
}

func decorateUser(store storage.ImageStore, u *models.User) {
	if u == nil {
		return
	}
	if u.Profile == nil {
		u.Profile = &models.Profile{UserID: u.ID}
	}
	u.Profile.ResolveAvatar(store.URL)
}

func decorateUsers(store storage.ImageStore, users []models.User) {
	for i := range users {
		decorateUser(store, &users[i])
	}
}

func decorateTweet(store storage.ImageStore, t *models.Tweet) {
	if t.Image != "" {
		t.ImageURL = store.URL(t.Image)
	} else {
		t.ImageURL = ""
	}
	decorateUser(store, t.User)
}
