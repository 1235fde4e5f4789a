package sessions

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirper/internal/config"
	"chirper/internal/wizard"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStorage(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewRedisStorage(rdb)

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("abc", []byte("payload"), time.Minute))
	assert.True(t, mr.Exists("sess:abc"))
	got, err = s.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	mr.FastForward(2 * time.Minute)
	got, err = s.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, mr.Set("other", "keep"))
	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("sess:a"))
	assert.False(t, mr.Exists("sess:b"))
	assert.True(t, mr.Exists("other"))

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Close())
}

func testConfig() *config.Config {
	return &config.Config{SessionTTL: time.Hour, SessionCookie: "test_session"}
}

// sessionApp exposes the helpers over HTTP so the cookie round trip is real.
func sessionApp(t *testing.T, rdb *redis.Client) *fiber.App {
	t.Helper()
	store := NewStore(testConfig(), rdb)
	app := fiber.New()

	app.Get("/login", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		AddFlash(sess, LevelSuccess, "welcome")
		if err := SetWizardState(sess, wizard.State{Stage: wizard.AwaitingPassword, Info: &wizard.Info{Username: "amy"}}); err != nil {
			return err
		}
		return Login(sess, 42)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		msgs := PopFlashes(sess)
		state := WizardState(sess)
		if err := sess.Save(); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user":     CurrentUserID(sess),
			"messages": msgs,
			"stage":    state.Stage,
		})
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		return Logout(sess)
	})
	return app
}

func do(t *testing.T, app *fiber.App, path string, cookies []*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSessionHelpers(t *testing.T) {
	tests := []struct {
		name  string
		redis bool
	}{
		{"memory", false},
		{"redis", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rdb *redis.Client
			if tt.redis {
				_, rdb = newRedis(t)
			}
			app := sessionApp(t, rdb)

			resp, _ := do(t, app, "/login", nil)
			cookies := resp.Cookies()
			require.NotEmpty(t, cookies)
			assert.Equal(t, "test_session", cookies[0].Name)

			_, body := do(t, app, "/whoami", cookies)
			assert.JSONEq(t, `{"user":42,"messages":[{"level":"success","text":"welcome"}],"stage":"awaiting_password"}`, body)

			// Flashes are shown once.
			_, body = do(t, app, "/whoami", cookies)
			assert.JSONEq(t, `{"user":42,"messages":null,"stage":"awaiting_password"}`, body)

			do(t, app, "/logout", cookies)
			_, body = do(t, app, "/whoami", cookies)
			assert.JSONEq(t, `{"user":0,"messages":null,"stage":"awaiting_info"}`, body)
		})
	}
}

func TestCurrentUserIDNilSession(t *testing.T) {
	assert.Zero(t, CurrentUserID(nil))
}
