package service

import (
	"context"
	"errors"

	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/storage"
	"chirper/internal/validation"
)

// ProfileService serves profile pages and profile edits.
type ProfileService struct {
	users   repository.UserRepository
	tweets  repository.TweetRepository
	follows repository.FollowRepository
	store   storage.ImageStore
}

// NewProfileService returns a new ProfileService.
func NewProfileService(users repository.UserRepository, tweets repository.TweetRepository, follows repository.FollowRepository, store storage.ImageStore) *ProfileService {
	return &ProfileService{users: users, tweets: tweets, follows: follows, store: store}
}

// ProfilePage is everything shown on a user's profile.
type ProfilePage struct {
	User           *models.PublicUser `json:"profile_user"`
	Tweets         []models.Tweet     `json:"tweets"`
	LikeList       []uint             `json:"like_list"`
	FollowersCount int64              `json:"followers_count"`
	FollowingCount int64              `json:"following_count"`
	IsFollowing    bool               `json:"is_following"`
}

// View builds userID's profile as seen by viewerID.
func (s *ProfileService) View(ctx context.Context, viewerID, userID uint) (*ProfilePage, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	decorateUser(s.store, user)

	tweets, err := s.tweets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	liked, err := withLikes(ctx, s.tweets, s.store, viewerID, tweets)
	if err != nil {
		return nil, err
	}

	page := &ProfilePage{User: user.Public(), Tweets: tweets, LikeList: liked}
	if page.FollowersCount, err = s.follows.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if page.FollowingCount, err = s.follows.CountFollowing(ctx, userID); err != nil {
		return nil, err
	}
	if viewerID != userID {
		if page.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, userID); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// GetForEdit returns userID's account if viewerID may edit it.
func (s *ProfileService) GetForEdit(ctx context.Context, viewerID, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ID != viewerID {
		return nil, models.NewForbiddenError("You can only edit your own profile")
	}
	decorateUser(s.store, user)
	return user, nil
}

// EditProfileInput is a submitted profile form.
type EditProfileInput struct {
	ViewerID uint
	UserID   uint
	Form     validation.ProfileForm
	Avatar   *Upload
}

// Edit applies a profile form. Avatars are re-encoded as WebP before storage.
func (s *ProfileService) Edit(ctx context.Context, in EditProfileInput) (*models.User, error) {
	user, err := s.GetForEdit(ctx, in.ViewerID, in.UserID)
	if err != nil {
		return nil, err
	}

	form := in.Form
	fe := form.Validate()
	if !fe.Has("username") && form.Username != user.Username {
		taken, err := s.users.UsernameTaken(ctx, form.Username, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			fe.Add("username", validation.MsgUsernameTaken)
		}
	}
	var avatar []byte
	if in.Avatar != nil {
		img, _, err := validation.DecodeImage(in.Avatar.Data)
		if err != nil {
			fe.Add("profile_img", validation.MsgInvalidImage)
		} else if avatar, err = storage.EncodeAvatar(img); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	if !fe.Empty() {
		return nil, models.NewFormError(fe)
	}

	oldAvatar := user.Profile.Avatar
	newAvatar := oldAvatar
	switch {
	case avatar != nil:
		newAvatar = storage.WithExtension(storage.ObjectKey(storage.ProfileImagesPrefix, user.ID, in.Avatar.Name), ".webp")
		if err := s.store.Put(ctx, newAvatar, avatar, "image/webp"); err != nil {
			return nil, models.NewInternalError(err)
		}
	case form.ClearAvatar():
		newAvatar = ""
	}

	user.Username = form.Username
	user.Profile.Bio = form.Bio
	user.Profile.Avatar = newAvatar
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if newAvatar != oldAvatar {
			removeObject(ctx, s.store, newAvatar)
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			return nil, models.NewFormError(models.FieldErrors{"username": {validation.MsgUsernameTaken}})
		}
		return nil, err
	}
	if newAvatar != oldAvatar {
		removeObject(ctx, s.store, oldAvatar)
	}
	decorateUser(s.store, user)
	return user, nil
}
