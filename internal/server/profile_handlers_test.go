package server

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"chirper/internal/models"
	"chirper/internal/testutil"
	"chirper/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileView(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	bob := testutil.CreateUser(t, env.db, "bob")
	testutil.CreateTweet(t, env.db, amy, "one")
	testutil.CreateTweet(t, env.db, bob, "not amy's")
	cl := env.signedIn("bob")

	v := decodeView(t, cl.get(fmt.Sprintf("/%d/", amy.ID)))
	assert.Equal(t, "profile", v.View)

	var user models.User
	v.field(t, "profile_user", &user)
	assert.Equal(t, "amy", user.Username)
	require.NotNil(t, user.Profile)
	assert.Equal(t, "hello from amy", user.Profile.Bio)
	assert.Equal(t, models.DefaultAvatarURL, user.Profile.AvatarURL)

	var tweets []models.Tweet
	v.field(t, "tweets", &tweets)
	require.Len(t, tweets, 1)
	assert.Equal(t, "one", tweets[0].Body)

	var isFollowing bool
	v.field(t, "is_following", &isFollowing)
	assert.False(t, isFollowing)

	require.NotNil(t, v.User)
	assert.Equal(t, "bob", v.User.Username)
}

func TestEditProfileOwnership(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	testutil.CreateUser(t, env.db, "bob")
	cl := env.signedIn("bob")

	path := fmt.Sprintf("/%d/edit/", amy.ID)
	assert.Equal(t, fiber.StatusForbidden, cl.get(path).StatusCode)
	assert.Equal(t, fiber.StatusForbidden, cl.postForm(path, url.Values{"username": {"pwned"}, "bio": {"x"}}).StatusCode)

	var stored models.User
	require.NoError(t, env.db.First(&stored, amy.ID).Error)
	assert.Equal(t, "amy", stored.Username)

	assert.Equal(t, fiber.StatusNotFound, cl.get("/999/edit/").StatusCode)
}

func TestEditProfile(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	testutil.CreateUser(t, env.db, "bob")
	cl := env.signedIn("amy")
	path := fmt.Sprintf("/%d/edit/", amy.ID)

	v := decodeView(t, cl.get(path))
	assert.Equal(t, "profile_edit", v.View)
	assert.Equal(t, "amy", v.Form["username"])
	assert.Equal(t, "hello from amy", v.Form["bio"])

	v = decodeView(t, cl.postForm(path, url.Values{"username": {"bob"}, "bio": {"hi"}}))
	assert.Equal(t, []string{validation.MsgUsernameTaken}, v.Errors["username"])

	v = decodeView(t, cl.postForm(path, url.Values{"username": {" amy "}, "bio": {strings.Repeat("b", 281) + "  "}}))
	assert.Equal(t, []string{"Ensure this value has at most 280 characters (it has 281)."}, v.Errors["bio"])
	assert.Equal(t, "amy", v.Form["username"])
	assert.Equal(t, strings.Repeat("b", 281), v.Form["bio"])

	v = decodeView(t, cl.postMultipart(path, url.Values{"username": {"amy"}}, "profile_img", "me.txt", []byte("text")))
	assert.Equal(t, []string{validation.MsgInvalidImage}, v.Errors["profile_img"])

	resp := cl.postMultipart(path, url.Values{"username": {"amy_b"}, "bio": {"new bio"}},
		"profile_img", "me.png", testutil.TinyPNG(t, 800, 200))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/%d/", amy.ID), resp.Header.Get("Location"))

	v = decodeView(t, cl.get(fmt.Sprintf("/%d/", amy.ID)))
	assert.Equal(t, []map[string]string{{"level": "success", "text": "Profile Updated!"}}, v.Messages)
	var user models.User
	v.field(t, "profile_user", &user)
	assert.Equal(t, "amy_b", user.Username)
	assert.Equal(t, "new bio", user.Profile.Bio)
	assert.True(t, strings.HasSuffix(user.Profile.AvatarURL, ".webp"), user.Profile.AvatarURL)
	assert.Equal(t, 1, env.store.Len())

	// Flashes are shown once.
	v = decodeView(t, cl.get(fmt.Sprintf("/%d/", amy.ID)))
	assert.Empty(t, v.Messages)

	resp = cl.postForm(path, url.Values{"username": {"amy_b"}, "bio": {"new bio"}, "profile_img-clear": {"on"}})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Zero(t, env.store.Len())
}

func TestFollowAndUnfollow(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	bob := testutil.CreateUser(t, env.db, "bob")
	cl := env.signedIn("amy")

	bobPath := fmt.Sprintf("/%d/", bob.ID)
	amyPath := fmt.Sprintf("/%d/", amy.ID)

	step := func(path, wantLocation, wantText string) {
		t.Helper()
		resp := cl.postForm(path, nil)
		require.Equal(t, fiber.StatusFound, resp.StatusCode)
		require.Equal(t, wantLocation, resp.Header.Get("Location"))
		v := decodeView(t, cl.get(wantLocation))
		if wantText == "" {
			assert.Empty(t, v.Messages)
			return
		}
		require.Len(t, v.Messages, 1)
		assert.Equal(t, wantText, v.Messages[0]["text"])
	}

	step(fmt.Sprintf("/%d/follow", amy.ID), amyPath, "Haha, you can't follow yourself!")
	step(fmt.Sprintf("/%d/follow", bob.ID), bobPath, "WooHoo! You have now followed bob")
	step(fmt.Sprintf("/%d/follow", bob.ID), bobPath, "Seems like you're already following bob")

	var count int64
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	v := decodeView(t, cl.get(bobPath))
	var isFollowing bool
	var followers int64
	v.field(t, "is_following", &isFollowing)
	v.field(t, "followers_count", &followers)
	assert.True(t, isFollowing)
	assert.Equal(t, int64(1), followers)

	v = decodeView(t, cl.get("/bob/followers"))
	assert.Equal(t, "followers", v.View)
	var users []models.User
	v.field(t, "users", &users)
	require.Len(t, users, 1)
	assert.Equal(t, "amy", users[0].Username)

	v = decodeView(t, cl.get("/amy/following"))
	assert.Equal(t, "following", v.View)
	v.field(t, "users", &users)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	step(fmt.Sprintf("/%d/unfollow", bob.ID), bobPath, "You have unfollowed bob")
	step(fmt.Sprintf("/%d/unfollow", bob.ID), bobPath, "")
	step(fmt.Sprintf("/%d/unfollow", amy.ID), amyPath, "Haha, you can't follow yourself!")

	require.NoError(t, env.db.Model(&models.Follow{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.Equal(t, fiber.StatusNotFound, cl.postForm("/999/follow", nil).StatusCode)
	assert.Equal(t, fiber.StatusNotFound, cl.postForm("/999/unfollow", nil).StatusCode)
}

func TestDeactivatedAccountIsSignedOut(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	cl := env.signedIn("amy")

	require.NoError(t, env.db.Model(amy).Update("is_active", false).Error)

	resp := cl.get("/home/")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/signin/?next=/home/", resp.Header.Get("Location"))
}

func TestOtherUsersArePublicOnly(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	bob := testutil.CreateUser(t, env.db, "bob")
	require.NoError(t, env.db.Model(amy).Update("phone", "+14155550123").Error)
	testutil.CreateTweet(t, env.db, amy, "hi")
	cl := env.signedIn("bob")
	require.Equal(t, fiber.StatusFound, cl.postForm(fmt.Sprintf("/%d/follow", amy.ID), nil).StatusCode)

	private := []string{`"email"`, `"phone"`, `"date_of_birth"`, `"is_active"`, "amy@example.com"}
	assertPublic := func(v view, key string) {
		t.Helper()
		raw, ok := v.raw[key]
		require.True(t, ok, "view %s has no %q", v.View, key)
		require.Contains(t, string(raw), "amy")
		for _, p := range private {
			assert.NotContains(t, string(raw), p, "%s.%s", v.View, key)
		}
	}

	v := decodeView(t, cl.get("/home/"))
	assertPublic(v, "tweets")

	v = decodeView(t, cl.get(fmt.Sprintf("/%d/", amy.ID)))
	assertPublic(v, "profile_user")
	assertPublic(v, "tweets")
	var user models.User
	v.field(t, "profile_user", &user)
	require.NotNil(t, user.Profile)
	assert.Equal(t, models.DefaultAvatarURL, user.Profile.AvatarURL)
	assert.Equal(t, "hello from amy", user.Profile.Bio)

	v = decodeView(t, cl.get("/bob/following"))
	assertPublic(v, "users")

	// The signed-in account still sees its own record.
	require.NotNil(t, v.User)
	assert.Equal(t, bob.Email, v.User.Email)
}
