package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func fieldErrors(t *testing.T, err error) models.FieldErrors {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, models.CodeValidation, appErr.Code)
	return appErr.Fields
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}

type userRepoStub struct {
	getByIDFn           func(context.Context, uint) (*models.User, error)
	getAccountFn        func(context.Context, uint) (*models.User, error)
	getByUsernameFn     func(context.Context, string) (*models.User, error)
	listActiveByEmailFn func(context.Context, string) ([]models.User, error)
	usernameTakenFn     func(context.Context, string, uint) (bool, error)
	createFn            func(context.Context, *models.User) error
	updateProfileFn     func(context.Context, *models.User) error
	updatePasswordFn    func(context.Context, uint, string) error
	touchLastLoginFn    func(context.Context, uint, time.Time) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetAccount(ctx context.Context, id uint) (*models.User, error) {
	return s.getAccountFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) ListActiveByEmail(ctx context.Context, email string) ([]models.User, error) {
	return s.listActiveByEmailFn(ctx, email)
}
func (s *userRepoStub) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	return s.usernameTakenFn(ctx, username, exceptID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, user *models.User) error {
	return s.updateProfileFn(ctx, user)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.touchLastLoginFn(ctx, id, at)
}

type followRepoStub struct {
	followFn   func(context.Context, uint, uint) (bool, error)
	unfollowFn func(context.Context, uint, uint) (bool, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.followFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.unfollowFn(ctx, followerID, followingID)
}
func (s *followRepoStub) IsFollowing(context.Context, uint, uint) (bool, error) {
	return false, nil
}
func (s *followRepoStub) Followers(context.Context, uint) ([]models.User, error) {
	return nil, nil
}
func (s *followRepoStub) Following(context.Context, uint) ([]models.User, error) {
	return nil, nil
}
func (s *followRepoStub) CountFollowers(context.Context, uint) (int64, error) {
	return 0, nil
}
func (s *followRepoStub) CountFollowing(context.Context, uint) (int64, error) {
	return 0, nil
}

var _ repository.UserRepository = (*userRepoStub)(nil)
var _ repository.FollowRepository = (*followRepoStub)(nil)

// recordingMailer keeps sent mail for assertions.
type recordingMailer struct {
	mu   sync.Mutex
	sent []Mail
}

func (m *recordingMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

type repos struct {
	db      *gorm.DB
	users   repository.UserRepository
	tweets  repository.TweetRepository
	follows repository.FollowRepository
	store   *testutil.MemoryStore
}

func newRepos(t *testing.T) repos {
	t.Helper()
	db := testutil.NewTestDB(t)
	return repos{
		db:      db,
		users:   repository.NewUserRepository(db),
		tweets:  repository.NewTweetRepository(db),
		follows: repository.NewFollowRepository(db),
		store:   testutil.NewMemoryStore(),
	}
}
