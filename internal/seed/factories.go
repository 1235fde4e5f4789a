// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"chirper/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "chirper-demo-pass"

// Factory builds domain entities and persists them to the database.
// In DryRun mode nothing is written and ids are synthetic.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(h)
	return f.hash, nil
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// BuildUser constructs an active user with a profile but does not persist it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	username := strings.ToLower(clip(gofakeit.Username(), 24)) + fmt.Sprintf("%d", gofakeit.Number(100, 999))
	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		DateOfBirth: gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)),
		Password:    hash,
		IsActive:    true,
		Profile:     &models.Profile{Bio: clip(gofakeit.Sentence(10), models.MaxTweetLength)},
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	return user, f.saveUser(user)
}

func (f *Factory) saveUser(user *models.User) error {
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return nil
	}
	return f.db.Create(user).Error
}

// BuildTweet constructs a tweet by author without persisting it.
func (f *Factory) BuildTweet(author *models.User, overrides ...func(*models.Tweet)) *models.Tweet {
	tweet := &models.Tweet{
		UserID: author.ID,
		Body:   clip(gofakeit.Sentence(f.rng.Intn(20)+3), models.MaxTweetLength),
	}
	tweet.CreatedAt = f.createdAt()
	tweet.UpdatedAt = tweet.CreatedAt
	for _, override := range overrides {
		override(tweet)
	}
	return tweet
}

// CreateTweetsBatch persists tweets in chunks of BatchSize.
func (f *Factory) CreateTweetsBatch(tweets []*models.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, t := range tweets {
			f.nextID++
			t.ID = f.nextID
		}
		log.Printf("[dry-run] CreateTweetsBatch: %d tweets (no DB write)", len(tweets))
		return nil
	}
	return f.db.CreateInBatches(tweets, f.batchSize()).Error
}

// CreateLike records that user likes tweet. Existing likes are kept.
func (f *Factory) CreateLike(user *models.User, tweet *models.Tweet) error {
	if f.opts.DryRun {
		return nil
	}
	like := &models.TweetLike{TweetID: tweet.ID, LikedByID: user.ID}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}

// CreateFollow makes follower follow target. Existing edges are kept.
func (f *Factory) CreateFollow(follower, target *models.User) error {
	if follower.ID == target.ID {
		return fmt.Errorf("user %d cannot follow itself", follower.ID)
	}
	if f.opts.DryRun {
		return nil
	}
	edge := &models.Follow{FollowerID: follower.ID, FollowingID: target.ID}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(edge).Error
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}
