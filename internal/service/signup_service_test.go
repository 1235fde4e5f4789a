package service

import (
	"context"
	"testing"
	"time"

	"chirper/internal/models"
	"chirper/internal/validation"
	"chirper/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSignupService(users *userRepoStub) *SignupService {
	s := NewSignupService(users, validation.DefaultPasswordPolicy())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	s.cost = bcrypt.MinCost
	return s
}

func freeUsernames() *userRepoStub {
	return &userRepoStub{
		usernameTakenFn: func(context.Context, string, uint) (bool, error) { return false, nil },
	}
}

func validInfo() *validation.SignupInfoForm {
	return &validation.SignupInfoForm{
		Username:    "amy",
		Email:       "amy@example.com",
		DateOfBirth: "1990-05-01",
	}
}

func TestSignupService_SubmitInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid fields keep state", func(t *testing.T) {
		s := newSignupService(freeUsernames())
		start := wizard.Start()
		next, err := s.SubmitInfo(ctx, start, &validation.SignupInfoForm{Username: "bad name", Email: "nope"})
		fe := fieldErrors(t, err)
		assert.Contains(t, fe["username"], validation.MsgInvalidUsername)
		assert.Contains(t, fe["email"], validation.MsgInvalidEmail)
		assert.Contains(t, fe["date_of_birth"], validation.MsgRequired)
		assert.Equal(t, start, next)
	})

	t.Run("taken username", func(t *testing.T) {
		users := &userRepoStub{
			usernameTakenFn: func(_ context.Context, name string, except uint) (bool, error) {
				assert.Equal(t, "amy", name)
				assert.Zero(t, except)
				return true, nil
			},
		}
		s := newSignupService(users)
		_, err := s.SubmitInfo(ctx, wizard.Start(), validInfo())
		fe := fieldErrors(t, err)
		assert.Equal(t, []string{validation.MsgUsernameTaken}, fe["username"])
	})

	t.Run("valid moves to password stage", func(t *testing.T) {
		s := newSignupService(freeUsernames())
		form := validInfo()
		form.Phone = "+1 201-555-0123"
		next, err := s.SubmitInfo(ctx, wizard.Start(), form)
		require.NoError(t, err)
		assert.Equal(t, wizard.AwaitingPassword, next.Stage)
		require.NotNil(t, next.Info)
		assert.Equal(t, "+12015550123", next.Info.Phone)
		assert.Equal(t, "1990-05-01", next.Info.DateOfBirth)
	})
}

func TestSignupService_SubmitPassword(t *testing.T) {
	ctx := context.Background()
	s := newSignupService(freeUsernames())

	_, err := s.SubmitPassword(ctx, wizard.Start(), validation.PasswordForm{Password1: "x", Password2: "x"})
	assert.ErrorIs(t, err, wizard.ErrMissingInfo)

	state, err := s.SubmitInfo(ctx, wizard.Start(), validInfo())
	require.NoError(t, err)

	_, err = s.SubmitPassword(ctx, state, validation.PasswordForm{Password1: "Gl4cier-river", Password2: "Gl4cier-rivers"})
	fe := fieldErrors(t, err)
	assert.Equal(t, []string{validation.MsgPasswordMismatch}, fe["password2"])

	_, err = s.SubmitPassword(ctx, state, validation.PasswordForm{Password1: "12345678", Password2: "12345678"})
	fe = fieldErrors(t, err)
	assert.Contains(t, fe["password2"], validation.MsgPasswordNumeric)

	next, err := s.SubmitPassword(ctx, state, validation.PasswordForm{Password1: "Gl4cier-river", Password2: "Gl4cier-river"})
	require.NoError(t, err)
	assert.Equal(t, wizard.AwaitingConfirmation, next.Stage)
}

func confirmedState(t *testing.T, s *SignupService) wizard.State {
	t.Helper()
	ctx := context.Background()
	state, err := s.SubmitInfo(ctx, wizard.Start(), validInfo())
	require.NoError(t, err)
	state, err = s.SubmitPassword(ctx, state, validation.PasswordForm{Password1: "Gl4cier-river", Password2: "Gl4cier-river"})
	require.NoError(t, err)
	return state
}

func TestSignupService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("missing stages", func(t *testing.T) {
		s := newSignupService(freeUsernames())
		_, next, err := s.Confirm(ctx, wizard.Start())
		assert.ErrorIs(t, err, wizard.ErrMissingPassword)
		assert.Equal(t, wizard.Start(), next)
	})

	t.Run("creates account", func(t *testing.T) {
		users := freeUsernames()
		var created *models.User
		users.createFn = func(_ context.Context, u *models.User) error {
			u.ID = 7
			created = u
			return nil
		}
		s := newSignupService(users)
		state := confirmedState(t, s)

		user, next, err := s.Confirm(ctx, state)
		require.NoError(t, err)
		assert.Equal(t, wizard.Start(), next)
		require.Same(t, created, user)
		assert.Equal(t, "amy", user.Username)
		assert.True(t, user.IsActive)
		assert.NotNil(t, user.Profile)
		assert.Equal(t, time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC), user.DateOfBirth)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("Gl4cier-river")))
	})

	t.Run("username taken meanwhile", func(t *testing.T) {
		users := freeUsernames()
		s := newSignupService(users)
		state := confirmedState(t, s)

		users.usernameTakenFn = func(context.Context, string, uint) (bool, error) { return true, nil }
		_, next, err := s.Confirm(ctx, state)
		fe := fieldErrors(t, err)
		assert.Equal(t, []string{validation.MsgUsernameTaken}, fe["username"])
		assert.Equal(t, state, next)
	})

	t.Run("insert race maps to username error", func(t *testing.T) {
		users := freeUsernames()
		users.createFn = func(context.Context, *models.User) error {
			return models.NewConflictError("User already exists", nil)
		}
		s := newSignupService(users)
		state := confirmedState(t, s)

		_, next, err := s.Confirm(ctx, state)
		fe := fieldErrors(t, err)
		assert.Equal(t, []string{validation.MsgUsernameTaken}, fe["username"])
		assert.Equal(t, state, next)
	})
}
