// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chirper/internal/database"
	"chirper/internal/models"
)

// T is the subset of testing.TB the helpers need.
type T interface {
	Helper()
	Fatalf(string, ...any)
	Cleanup(func())
}

// NewTestDB opens a private in-memory SQLite database with the full schema.
func NewTestDB(t T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Each connection to :memory: is its own database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// DefaultPassword is the plaintext password of users made by CreateUser.
const DefaultPassword = "correct-horse-42"

// CreateUser inserts an active user with a profile and DefaultPassword.
func CreateUser(t T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		DateOfBirth: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Password:    string(hash),
		IsActive:    true,
		Profile:     &models.Profile{Bio: "hello from " + username},
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateTweet inserts a tweet by author.
func CreateTweet(t T, db *gorm.DB, author *models.User, body string) *models.Tweet {
	t.Helper()
	tw := &models.Tweet{UserID: author.ID, Body: body}
	if err := db.Create(tw).Error; err != nil {
		t.Fatalf("create tweet: %v", err)
	}
	return tw
}

// MemoryStore is an in-memory storage.ImageStore.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = append([]byte(nil), data...)
	s.Types[key] = contentType
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	delete(s.Types, key)
	return nil
}

func (s *MemoryStore) URL(key string) string {
	return "/media/" + key
}

// Has reports whether key is stored.
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// Len is the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
