package seed

import (
	"fmt"
	"log"

	"chirper/internal/models"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers  int
	NumTweets int
	// MaxLikes and MaxFollows bound the random likes per tweet and
	// follows per user.
	MaxLikes    int
	MaxFollows  int
	MaxDays     int
	BatchSize   int
	ShouldClean bool
	DryRun      bool
	// FastHash hashes the demo password with bcrypt.MinCost.
	FastHash bool
	// RandSeed makes a run reproducible when non-zero.
	RandSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Users   int
	Tweets  int
	Likes   int
	Follows int
}

// Seeder fills a database with demo users, tweets, likes and follows.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed runs a full seeding pass.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	return NewSeeder(db, opts).Run()
}

// Run creates users first, then their tweets, then the like and follow graph.
func (s *Seeder) Run() (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d tweets...", s.opts.NumUsers, s.opts.NumTweets)

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := clearData(s.db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	sum := &Summary{}
	users, err := s.seedUsers(s.opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)
	if len(users) == 0 {
		return sum, nil
	}

	tweets, err := s.seedTweets(users, s.opts.NumTweets)
	if err != nil {
		return nil, fmt.Errorf("failed to create tweets: %w", err)
	}
	sum.Tweets = len(tweets)
	log.Printf("✓ %d tweets created", sum.Tweets)

	if sum.Likes, err = s.seedLikes(users, tweets); err != nil {
		return nil, fmt.Errorf("failed to create likes: %w", err)
	}
	if sum.Follows, err = s.seedFollows(users); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d likes and %d follows created", sum.Likes, sum.Follows)

	log.Println("🎉 Database seeding completed successfully!")
	return sum, nil
}

// clearData removes all rows the seeder can create, children first.
func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.TweetLike{}, &models.Follow{}, &models.Tweet{}, &models.Profile{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Seeder) seedUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	seen := make(map[string]bool, count)
	for len(users) < count {
		u, err := s.factory.BuildUser()
		if err != nil {
			return nil, err
		}
		if seen[u.Username] {
			continue
		}
		seen[u.Username] = true

		if err := s.factory.saveUser(u); err != nil {
			return nil, err
		}
		users = append(users, u)
		if len(users)%100 == 0 {
			log.Printf("Created %d users...", len(users))
		}
	}
	return users, nil
}

func (s *Seeder) seedTweets(users []*models.User, count int) ([]*models.Tweet, error) {
	tweets := make([]*models.Tweet, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		tweets = append(tweets, s.factory.BuildTweet(author))
	}
	if err := s.factory.CreateTweetsBatch(tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

func (s *Seeder) seedLikes(users []*models.User, tweets []*models.Tweet) (int, error) {
	if s.opts.MaxLikes <= 0 {
		return 0, nil
	}
	total := 0
	for _, t := range tweets {
		n := s.factory.rng.Intn(min(s.opts.MaxLikes, len(users)) + 1)
		for _, idx := range s.factory.rng.Perm(len(users))[:n] {
			if err := s.factory.CreateLike(users[idx], t); err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}

func (s *Seeder) seedFollows(users []*models.User) (int, error) {
	if s.opts.MaxFollows <= 0 || len(users) < 2 {
		return 0, nil
	}
	total := 0
	for _, u := range users {
		n := s.factory.rng.Intn(min(s.opts.MaxFollows, len(users)-1) + 1)
		picked := 0
		for _, idx := range s.factory.rng.Perm(len(users)) {
			if picked == n {
				break
			}
			target := users[idx]
			if target.ID == u.ID {
				continue
			}
			if err := s.factory.CreateFollow(u, target); err != nil {
				return total, err
			}
			picked++
			total++
		}
	}
	return total, nil
}
