package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"chirper/internal/config"
	"chirper/internal/models"
	"chirper/internal/storage"
	"chirper/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8000",
		Env:               "test",
		SessionTTL:        time.Hour,
		SessionCookie:     "chirper_session",
		ResetTokenSecret:  "test-reset-secret-with-at-least-32-chars",
		ResetTokenTTL:     time.Hour,
		PasswordMinLength: 8,
		StorageBackend:    "local",
		MediaURL:          "/media/",
		MaxUploadMB:       1,
		AllowedOrigins:    "http://localhost:8000",
		MailFrom:          "webmaster@localhost",
		BaseURL:           "http://testserver",
	}
}

type testEnv struct {
	t     *testing.T
	db    *gorm.DB
	store *testutil.MemoryStore
	srv   *Server
	app   *fiber.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, testutil.NewMemoryStore())
}

func newTestEnvWithStore(t *testing.T, store storage.ImageStore) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(testConfig(), db, nil, store)
	require.NoError(t, err)
	env := &testEnv{t: t, db: db, srv: srv}
	if ms, ok := store.(*testutil.MemoryStore); ok {
		env.store = ms
	}
	env.app = srv.NewApp()
	return env
}

// client carries cookies between requests like a browser.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (e *testEnv) client() *client {
	return &client{t: e.t, app: e.app, cookies: map[string]string{}}
}

// signedIn returns a client with a session for username.
func (e *testEnv) signedIn(username string) *client {
	e.t.Helper()
	cl := e.client()
	resp := cl.postForm("/signin/", url.Values{
		"username": {username},
		"password": {testutil.DefaultPassword},
	})
	require.Equal(e.t, fiber.StatusFound, resp.StatusCode)
	require.Equal(e.t, "/home/", resp.Header.Get("Location"))
	return cl
}

func (cl *client) do(req *http.Request) *http.Response {
	cl.t.Helper()
	for name, value := range cl.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := cl.app.Test(req, -1)
	require.NoError(cl.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(cl.cookies, ck.Name)
			continue
		}
		cl.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (cl *client) get(path string) *http.Response {
	cl.t.Helper()
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) postForm(path string, form url.Values) *http.Response {
	cl.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) postMultipart(path string, form url.Values, field, filename string, data []byte) *http.Response {
	cl.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(cl.t, w.WriteField(k, v))
		}
	}
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(cl.t, err)
		_, err = part.Write(data)
		require.NoError(cl.t, err)
	}
	require.NoError(cl.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return cl.do(req)
}

// view is a decoded rendered page.
type view struct {
	View     string              `json:"view"`
	Form     map[string]any      `json:"form"`
	Errors   models.FieldErrors  `json:"errors"`
	Messages []map[string]string `json:"messages"`
	User     *models.User        `json:"user"`
	raw      map[string]json.RawMessage
}

func decodeView(t *testing.T, resp *http.Response) view {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var v view
	require.NoError(t, json.Unmarshal(body, &v))
	require.NoError(t, json.Unmarshal(body, &v.raw))
	return v
}

// field decodes a view-specific key into dest.
func (v view) field(t *testing.T, key string, dest any) {
	t.Helper()
	raw, ok := v.raw[key]
	require.True(t, ok, "view %s has no %q", v.View, key)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)
	cl := env.client()

	resp := cl.get("/health/live")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = cl.get("/health/ready")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.client().get("/metrics")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chirper_")
}

func TestAuthGateRedirectsToSignin(t *testing.T) {
	env := newTestEnv(t)
	amy := testutil.CreateUser(t, env.db, "amy")
	tweet := testutil.CreateTweet(t, env.db, amy, "hello")
	cl := env.client()

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/home/", "/signin/?next=/home/"},
		{http.MethodGet, "/1/", "/signin/?next=/1/"},
		{http.MethodGet, "/amy/followers", "/signin/?next=/amy/followers"},
		{http.MethodGet, "/tweets/amy/1/?ref=feed", "/signin/?next=/tweets/amy/1/%3Fref%3Dfeed"},
		{http.MethodPost, "/tweets/like/", "/signin/?next=/tweets/like/"},
		{http.MethodPost, "/1/follow", "/signin/?next=/1/follow"},
		{http.MethodPost, "/tweets/1/delete/", "/signin/?next=/tweets/1/delete/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := cl.do(httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get("Location"))
		})
	}

	// Nothing changed behind the gate.
	var count int64
	require.NoError(t, env.db.Model(&models.Tweet{}).Where("id = ?", tweet.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUnknownRoutesAndMalformedIDs(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "amy")
	cl := env.signedIn("amy")

	for _, path := range []string{"/abc/", "/0/", "/999/", "/tweets/amy/abc/", "/tweets/abc/edit/", "/nobody/followers"} {
		resp := cl.get(path)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/home/"},
		{"/2/", "/2/"},
		{"/tweets/amy/1/?x=1", "/tweets/amy/1/?x=1"},
		{"//evil.example/", "/home/"},
		{"/\\evil.example", "/home/"},
		{"https://evil.example/", "/home/"},
		{"home", "/home/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), tt.in)
	}
}

func TestEscapeNext(t *testing.T) {
	assert.Equal(t, "/home/", escapeNext("/home/"))
	assert.Equal(t, "/a/%3Fb%3D1%26c%3D2", escapeNext("/a/?b=1&c=2"))
}

func TestParseID(t *testing.T) {
	id, ok := parseID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5"} {
		_, ok := parseID(raw)
		assert.False(t, ok, raw)
	}
}
