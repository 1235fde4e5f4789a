package service

import (
	"context"

	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
	"chirper/internal/storage"
	"chirper/internal/validation"
)

// TweetService implements tweet CRUD, the feed and likes.
type TweetService struct {
	tweets repository.TweetRepository
	users  repository.UserRepository
	store  storage.ImageStore
}

// NewTweetService returns a new TweetService.
func NewTweetService(tweets repository.TweetRepository, users repository.UserRepository, store storage.ImageStore) *TweetService {
	return &TweetService{tweets: tweets, users: users, store: store}
}

// Feed is the home timeline.
type Feed struct {
	Tweets   []models.Tweet `json:"tweets"`
	LikeList []uint         `json:"like_list"`
}

// TweetDetail is a single tweet page.
type TweetDetail struct {
	Tweet     *models.Tweet `json:"tweet"`
	Liked     bool          `json:"liked"`
	LikeCount int64         `json:"like_count"`
}

// LikeResult is the JSON answer of a like toggle.
type LikeResult struct {
	User      string `json:"user"`
	TweetID   string `json:"tweetid"`
	Method    string `json:"method"`
	LikeCount int64  `json:"like_count"`
}

// TweetInput is a submitted tweet form.
type TweetInput struct {
	Form  validation.TweetForm
	Image *Upload
}

// withLikes fills like counts and image URLs, and returns the ids of the
// tweets viewerID likes.
func withLikes(ctx context.Context, repo repository.TweetRepository, store storage.ImageStore, viewerID uint, tweets []models.Tweet) ([]uint, error) {
	ids := make([]uint, len(tweets))
	for i := range tweets {
		ids[i] = tweets[i].ID
	}
	counts, err := repo.LikeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tweets {
		tweets[i].LikeCount = counts[tweets[i].ID]
		decorateTweet(store, &tweets[i])
	}
	liked, err := repo.LikedTweetIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	if liked == nil {
		liked = []uint{}
	}
	return liked, nil
}

// Feed lists every tweet newest first.
func (s *TweetService) Feed(ctx context.Context, viewerID uint) (*Feed, error) {
	tweets, err := s.tweets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	liked, err := withLikes(ctx, s.tweets, s.store, viewerID, tweets)
	if err != nil {
		return nil, err
	}
	return &Feed{Tweets: tweets, LikeList: liked}, nil
}

// Create posts a tweet for authorID.
func (s *TweetService) Create(ctx context.Context, authorID uint, in TweetInput) (*models.Tweet, error) {
	form := in.Form
	fe := form.Validate()
	contentType := decodeUpload(in.Image, "image", fe)
	if !fe.Empty() {
		return nil, models.NewFormError(fe)
	}

	tweet := &models.Tweet{UserID: authorID, Body: form.Body}
	if in.Image != nil {
		tweet.Image = storage.ObjectKey(storage.TweetImagesPrefix, authorID, in.Image.Name)
		if err := s.store.Put(ctx, tweet.Image, in.Image.Data, contentType); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	if err := s.tweets.Create(ctx, tweet); err != nil {
		removeObject(ctx, s.store, tweet.Image)
		return nil, err
	}
	observability.TweetsPosted.Inc()
	decorateTweet(s.store, tweet)
	return tweet, nil
}

// Get loads tweetID with its author.
func (s *TweetService) Get(ctx context.Context, tweetID uint) (*models.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	decorateTweet(s.store, tweet)
	return tweet, nil
}

// GetForEdit returns tweetID if viewerID owns it.
func (s *TweetService) GetForEdit(ctx context.Context, viewerID, tweetID uint) (*models.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet.UserID != viewerID {
		return nil, models.NewForbiddenError("You can only change your own tweets")
	}
	decorateTweet(s.store, tweet)
	return tweet, nil
}

// Edit updates body and image. A new upload replaces the old image; the
// clear flag removes it.
func (s *TweetService) Edit(ctx context.Context, viewerID, tweetID uint, in TweetInput) (*models.Tweet, error) {
	tweet, err := s.GetForEdit(ctx, viewerID, tweetID)
	if err != nil {
		return nil, err
	}

	form := in.Form
	fe := form.Validate()
	contentType := decodeUpload(in.Image, "image", fe)
	if !fe.Empty() {
		return nil, models.NewFormError(fe)
	}

	oldImage := tweet.Image
	switch {
	case in.Image != nil:
		tweet.Image = storage.ObjectKey(storage.TweetImagesPrefix, viewerID, in.Image.Name)
		if err := s.store.Put(ctx, tweet.Image, in.Image.Data, contentType); err != nil {
			return nil, models.NewInternalError(err)
		}
	case form.ClearImage():
		tweet.Image = ""
	}
	tweet.Body = form.Body

	if err := s.tweets.Update(ctx, tweet); err != nil {
		if tweet.Image != oldImage {
			removeObject(ctx, s.store, tweet.Image)
		}
		return nil, err
	}
	if tweet.Image != oldImage {
		removeObject(ctx, s.store, oldImage)
	}
	decorateTweet(s.store, tweet)
	return tweet, nil
}

// Delete removes tweetID if viewerID owns it.
func (s *TweetService) Delete(ctx context.Context, viewerID, tweetID uint) error {
	tweet, err := s.GetForEdit(ctx, viewerID, tweetID)
	if err != nil {
		return err
	}
	if err := s.tweets.Delete(ctx, tweet.ID); err != nil {
		return err
	}
	removeObject(ctx, s.store, tweet.Image)
	return nil
}

// Detail loads tweetID as published by username. A tweet that exists but
// belongs to someone else is reported as missing.
func (s *TweetService) Detail(ctx context.Context, viewerID uint, username string, tweetID uint) (*TweetDetail, error) {
	tweet, err := s.tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet.User == nil || tweet.User.Username != username {
		return nil, models.NewNotFoundError("Tweet", tweetID)
	}
	count, err := s.tweets.CountLikes(ctx, tweet.ID)
	if err != nil {
		return nil, err
	}
	liked, err := s.tweets.IsLiked(ctx, viewerID, tweet.ID)
	if err != nil {
		return nil, err
	}
	tweet.LikeCount = count
	decorateTweet(s.store, tweet)
	return &TweetDetail{Tweet: tweet, Liked: liked, LikeCount: count}, nil
}

// ToggleLike flips viewerID's like on tweetID.
func (s *TweetService) ToggleLike(ctx context.Context, viewerID, tweetID uint) (*LikeResult, error) {
	ctx, span := observability.StartSpan(ctx, "tweet.toggle_like")
	result, err := s.toggleLike(ctx, viewerID, tweetID)
	observability.EndSpan(span, err)
	return result, err
}

func (s *TweetService) toggleLike(ctx context.Context, viewerID, tweetID uint) (*LikeResult, error) {
	tweet, err := s.tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	method, count, err := s.tweets.ToggleLike(ctx, tweet.ID, viewerID)
	if err != nil {
		return nil, err
	}
	observability.LikeToggles.WithLabelValues(method).Inc()
	return &LikeResult{
		User:      viewer.Username,
		TweetID:   formatID(tweet.ID),
		Method:    method,
		LikeCount: count,
	}, nil
}
