// Package sessions wraps fiber's session store with the helpers handlers
// need: login state, flash messages and the signup wizard.
package sessions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"

	"chirper/internal/config"
	"chirper/internal/wizard"
)

const (
	userIDKey   = "_auth_user_id"
	messagesKey = "_messages"
	wizardKey   = "signup_wizard"
)

// Flash levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Message is a one-shot notice shown on the next rendered view.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// NewStore builds the session store. Sessions live in Redis when rdb is
// non-nil, otherwise in fiber's in-memory storage.
func NewStore(cfg *config.Config, rdb *redis.Client) *session.Store {
	scfg := session.Config{
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:" + cfg.SessionCookie,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.IsProduction(),
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	}
	if scfg.Expiration <= 0 {
		scfg.Expiration = 24 * time.Hour
	}
	if rdb != nil {
		scfg.Storage = NewRedisStorage(rdb)
	}
	return session.New(scfg)
}

// Login binds userID to a fresh session id.
func Login(sess *session.Session, userID uint) error {
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(userIDKey, userID)
	return sess.Save()
}

// Logout destroys the session and its data.
func Logout(sess *session.Session) error {
	return sess.Destroy()
}

// CurrentUserID returns the signed-in user id, or 0.
func CurrentUserID(sess *session.Session) uint {
	if sess == nil {
		return 0
	}
	id, _ := sess.Get(userIDKey).(uint)
	return id
}

// AddFlash queues a message. The caller saves the session.
func AddFlash(sess *session.Session, level, text string) {
	msgs := readMessages(sess)
	msgs = append(msgs, Message{Level: level, Text: text})
	writeMessages(sess, msgs)
}

// PopFlashes returns and clears queued messages.
func PopFlashes(sess *session.Session) []Message {
	msgs := readMessages(sess)
	if len(msgs) > 0 {
		sess.Delete(messagesKey)
	}
	return msgs
}

func readMessages(sess *session.Session) []Message {
	raw, _ := sess.Get(messagesKey).(string)
	if raw == "" {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil
	}
	return msgs
}

func writeMessages(sess *session.Session, msgs []Message) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	sess.Set(messagesKey, string(data))
}

// WizardState loads the signup wizard, starting fresh when absent.
func WizardState(sess *session.Session) wizard.State {
	raw, _ := sess.Get(wizardKey).(string)
	if raw == "" {
		return wizard.Start()
	}
	return wizard.Decode(raw)
}

// SetWizardState stores s. The caller saves the session.
func SetWizardState(sess *session.Session, s wizard.State) error {
	data, err := wizard.Encode(s)
	if err != nil {
		return err
	}
	sess.Set(wizardKey, data)
	return nil
}

// ClearWizard forgets any partial signup.
func ClearWizard(sess *session.Session) {
	sess.Delete(wizardKey)
}
