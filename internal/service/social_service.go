package service

import (
	"context"
	"fmt"
	"strconv"

	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
	"chirper/internal/storage"
)

// Notice levels returned with follow actions.
const (
	NoticeSuccess = "success"
	NoticeWarning = "warning"
)

const selfFollowNotice = "Haha, you can't follow yourself!"

// FollowOutcome tells the caller what to show after a follow action.
// Notice is empty when nothing should be shown.
type FollowOutcome struct {
	Target *models.User
	Level  string
	Notice string
}

// SocialService manages the follow graph.
type SocialService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	store   storage.ImageStore
}

// NewSocialService returns a new SocialService.
func NewSocialService(users repository.UserRepository, follows repository.FollowRepository, store storage.ImageStore) *SocialService {
	return &SocialService{users: users, follows: follows, store: store}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Follow makes followerID follow targetID.
func (s *SocialService) Follow(ctx context.Context, followerID, targetID uint) (*FollowOutcome, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	out := &FollowOutcome{Target: target}

	if followerID == targetID {
		observability.FollowActions.WithLabelValues("follow", "self").Inc()
		out.Level, out.Notice = NoticeWarning, selfFollowNotice
		return out, nil
	}

	created, err := s.follows.Follow(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}
	if !created {
		observability.FollowActions.WithLabelValues("follow", "exists").Inc()
		out.Level, out.Notice = NoticeWarning, fmt.Sprintf("Seems like you're already following %s", target.Username)
		return out, nil
	}
	observability.FollowActions.WithLabelValues("follow", "created").Inc()
	out.Level, out.Notice = NoticeSuccess, fmt.Sprintf("WooHoo! You have now followed %s", target.Username)
	return out, nil
}

// Unfollow removes the edge followerID -> targetID if present.
func (s *SocialService) Unfollow(ctx context.Context, followerID, targetID uint) (*FollowOutcome, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	out := &FollowOutcome{Target: target}
	if followerID == targetID {
		observability.FollowActions.WithLabelValues("unfollow", "self").Inc()
		out.Level, out.Notice = NoticeWarning, selfFollowNotice
		return out, nil
	}

	deleted, err := s.follows.Unfollow(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		observability.FollowActions.WithLabelValues("unfollow", "absent").Inc()
		return out, nil
	}
	observability.FollowActions.WithLabelValues("unfollow", "deleted").Inc()
	out.Level, out.Notice = NoticeSuccess, fmt.Sprintf("You have unfollowed %s", target.Username)
	return out, nil
}

func (s *SocialService) byUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	decorateUser(s.store, user)
	return user, nil
}

// Followers returns username's account and the users following it.
func (s *SocialService) Followers(ctx context.Context, username string) (*models.PublicUser, []models.PublicUser, error) {
	user, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.follows.Followers(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	decorateUsers(s.store, users)
	return user.Public(), models.PublicUsers(users), nil
}

// Following returns username's account and the users it follows.
func (s *SocialService) Following(ctx context.Context, username string) (*models.PublicUser, []models.PublicUser, error) {
	user, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.follows.Following(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	decorateUsers(s.store, users)
	return user.Public(), models.PublicUsers(users), nil
}
