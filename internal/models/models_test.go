package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	assert.True(t, fe.Empty())

	fe.Add("body", "This field is required.")
	fe.Merge(FieldErrors{"body": {"second"}, "image": {"bad"}})

	assert.False(t, fe.Empty())
	assert.True(t, fe.Has("body"))
	assert.False(t, fe.Has("bio"))
	assert.Equal(t, []string{"This field is required.", "second"}, fe["body"])
	assert.Equal(t, []string{"bad"}, fe["image"])
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewInternalError(cause))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error: boom", appErr.Error())
}

func TestProfileResolveAvatar(t *testing.T) {
	p := &Profile{}
	p.ResolveAvatar(func(key string) string { return "/media/" + key })
	assert.Equal(t, DefaultAvatarURL, p.AvatarURL)

	p.Avatar = "profile/images/user_1/me.png"
	p.ResolveAvatar(func(key string) string { return "/media/" + key })
	assert.Equal(t, "/media/profile/images/user_1/me.png", p.AvatarURL)
}

func TestTweetJSONHidesAuthorDetails(t *testing.T) {
	author := &User{ID: 7, Username: "amy", Email: "amy@example.com", Phone: "+14155550123", IsActive: true,
		Profile: &Profile{UserID: 7, Bio: "hi", AvatarURL: DefaultAvatarURL}}
	b, err := json.Marshal([]Tweet{{ID: 1, UserID: 7, User: author, Body: "hello", LikeCount: 2}})
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0]["body"])
	assert.EqualValues(t, 2, out[0]["like_count"])
	assert.Equal(t, map[string]any{
		"id":       float64(7),
		"username": "amy",
		"profile":  map[string]any{"user_id": float64(7), "bio": "hi", "avatar_url": DefaultAvatarURL},
	}, out[0]["user"])

	b, err = json.Marshal(Tweet{ID: 2, Body: "no author"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"user"`)
}

func TestPublicUsers(t *testing.T) {
	var nilUser *User
	assert.Nil(t, nilUser.Public())
	got := PublicUsers([]User{{ID: 1, Username: "amy", Email: "amy@example.com"}})
	assert.Equal(t, []PublicUser{{ID: 1, Username: "amy"}}, got)
}
