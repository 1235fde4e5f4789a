package repository

import (
	"context"
	"errors"

	"chirper/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Like toggle outcomes, as reported to clients.
const (
	LikeCreated = "create"
	LikeDeleted = "delete"
)

// TweetRepository defines persistence operations for tweets and likes.
type TweetRepository interface {
	Create(ctx context.Context, tweet *models.Tweet) error
	GetByID(ctx context.Context, id uint) (*models.Tweet, error)
	Update(ctx context.Context, tweet *models.Tweet) error
	Delete(ctx context.Context, id uint) error
	ListAll(ctx context.Context) ([]models.Tweet, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Tweet, error)
	LikeCounts(ctx context.Context, tweetIDs []uint) (map[uint]int64, error)
	CountLikes(ctx context.Context, tweetID uint) (int64, error)
	LikedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error)
	IsLiked(ctx context.Context, userID, tweetID uint) (bool, error)
	ToggleLike(ctx context.Context, tweetID, userID uint) (string, int64, error)
}

type tweetRepository struct {
	db *gorm.DB
}

// NewTweetRepository creates a new tweet repository
func NewTweetRepository(db *gorm.DB) TweetRepository {
	return &tweetRepository{db: db}
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("tweets.created_at DESC").Order("tweets.id DESC")
}

func (r *tweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(tweet).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id uint) (*models.Tweet, error) {
	var tweet models.Tweet
	if err := r.db.WithContext(ctx).Preload("User.Profile").First(&tweet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tweet", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &tweet, nil
}

// Update saves body and image.
func (r *tweetRepository) Update(ctx context.Context, tweet *models.Tweet) error {
	if err := r.db.WithContext(ctx).Model(&models.Tweet{ID: tweet.ID}).
		Updates(map[string]any{"body": tweet.Body, "image": tweet.Image}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the tweet; its likes go with it by cascade.
func (r *tweetRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Explicit for databases running without foreign key enforcement.
		if err := tx.Where("tweet_id = ?", id).Delete(&models.TweetLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tweet{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tweetRepository) ListAll(ctx context.Context) ([]models.Tweet, error) {
	var tweets []models.Tweet
	if err := newestFirst(r.db.WithContext(ctx)).Preload("User.Profile").Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) ListByUser(ctx context.Context, userID uint) ([]models.Tweet, error) {
	var tweets []models.Tweet
	if err := newestFirst(r.db.WithContext(ctx)).
		Preload("User.Profile").
		Where("user_id = ?", userID).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

type likeCountRow struct {
	TweetID uint
	Count   int64
}

// LikeCounts returns COUNT(*) of likes per tweet. Tweets without likes are absent.
func (r *tweetRepository) LikeCounts(ctx context.Context, tweetIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(tweetIDs))
	if len(tweetIDs) == 0 {
		return counts, nil
	}
	var rows []likeCountRow
	if err := r.db.WithContext(ctx).
		Model(&models.TweetLike{}).
		Select("tweet_id, COUNT(*) AS count").
		Where("tweet_id IN ?", tweetIDs).
		Group("tweet_id").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		counts[row.TweetID] = row.Count
	}
	return counts, nil
}

func (r *tweetRepository) CountLikes(ctx context.Context, tweetID uint) (int64, error) {
	return countLikes(r.db.WithContext(ctx), tweetID)
}

func countLikes(db *gorm.DB, tweetID uint) (int64, error) {
	var count int64
	if err := db.Model(&models.TweetLike{}).Where("tweet_id = ?", tweetID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *tweetRepository) LikedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error) {
	if len(tweetIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	if err := r.db.WithContext(ctx).
		Model(&models.TweetLike{}).
		Where("liked_by_id = ? AND tweet_id IN ?", userID, tweetIDs).
		Order("tweet_id").
		Pluck("tweet_id", &liked).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *tweetRepository) IsLiked(ctx context.Context, userID, tweetID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TweetLike{}).
		Where("liked_by_id = ? AND tweet_id = ?", userID, tweetID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ToggleLike removes the user's like if present, otherwise adds it, and
// returns the outcome with the resulting like count. Concurrent toggles
// by the same user cannot produce a duplicate row: the insert is
// conflict-tolerant against the (tweet_id, liked_by_id) unique index.
func (r *tweetRepository) ToggleLike(ctx context.Context, tweetID, userID uint) (string, int64, error) {
	var (
		method string
		count  int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("tweet_id = ? AND liked_by_id = ?", tweetID, userID).Delete(&models.TweetLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			method = LikeDeleted
		} else {
			like := models.TweetLike{TweetID: tweetID, LikedByID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			method = LikeCreated
		}
		var err error
		count, err = countLikes(tx, tweetID)
		return err
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return "", 0, appErr
		}
		return "", 0, models.NewInternalError(err)
	}
	return method, count, nil
}
