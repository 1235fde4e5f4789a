package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
	"chirper/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig carries the settings AuthService needs.
type AuthConfig struct {
	BaseURL  string
	MailFrom string
}

// AuthService handles sign-in and password reset.
type AuthService struct {
	users  repository.UserRepository
	policy validation.PasswordPolicy
	tokens *ResetTokens
	mailer Mailer
	cfg    AuthConfig
	now    func() time.Time
	cost   int
}

// NewAuthService returns a new AuthService.
func NewAuthService(users repository.UserRepository, policy validation.PasswordPolicy, tokens *ResetTokens, mailer Mailer, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:  users,
		policy: policy,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
	}
}

// dummyHash is compared against when the username is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func invalidLogin() error {
	return models.NewFormError(models.FieldErrors{
		models.NonFieldErrors: {validation.MsgInvalidLogin},
	})
}

// Authenticate checks credentials and records the login time. Unknown
// users, wrong passwords and inactive accounts fail identically.
func (s *AuthService) Authenticate(ctx context.Context, form *validation.SigninForm) (*models.User, error) {
	if fe := form.Validate(); !fe.Empty() {
		return nil, models.NewFormError(fe)
	}

	user, err := s.users.GetByUsername(ctx, form.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(form.Password))
		observability.SigninAttempts.WithLabelValues("unknown_user").Inc()
		return nil, invalidLogin()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		observability.SigninAttempts.WithLabelValues("bad_password").Inc()
		return nil, invalidLogin()
	}
	if !user.IsActive {
		observability.SigninAttempts.WithLabelValues("inactive").Inc()
		return nil, invalidLogin()
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	observability.SigninAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// ResetLink is the path of the page that consumes a reset token.
func ResetLink(uidb64, token string) string {
	return fmt.Sprintf("/reset/%s/%s/", uidb64, token)
}

// RequestReset mails a reset link to every active account using email.
// The outcome is the same whether or not any account matched.
func (s *AuthService) RequestReset(ctx context.Context, form *validation.PasswordResetForm) error {
	if fe := form.Validate(); !fe.Empty() {
		return models.NewFormError(fe)
	}

	users, err := s.users.ListActiveByEmail(ctx, form.Email)
	if err != nil {
		return err
	}
	for i := range users {
		u := &users[i]
		token, err := s.tokens.Issue(u)
		if err != nil {
			return models.NewInternalError(err)
		}
		link := s.cfg.BaseURL + ResetLink(EncodeUID(u.ID), token)
		mail := Mail{
			From:    s.cfg.MailFrom,
			To:      u.Email,
			Subject: "Password reset",
			Body: fmt.Sprintf("You're receiving this email because you requested a password reset for your user account.\n\n"+
				"Please go to the following page and choose a new password:\n\n%s\n\nYour username, in case you've forgotten: %s\n",
				link, u.Username),
		}
		if err := s.mailer.Send(ctx, mail); err != nil {
			slog.ErrorContext(ctx, "failed to send password reset mail", "user_id", u.ID, "err", err)
			continue
		}
		observability.PasswordResets.WithLabelValues("requested").Inc()
	}
	return nil
}

// ResolveReset returns the account a reset link belongs to, or
// ErrInvalidResetLink.
func (s *AuthService) ResolveReset(ctx context.Context, uidb64, token string) (*models.User, error) {
	id, err := DecodeUID(uidb64)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetAccount(ctx, id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, ErrInvalidResetLink
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidResetLink
	}
	if err := s.tokens.Verify(token, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ConfirmReset sets a new password through a reset link.
func (s *AuthService) ConfirmReset(ctx context.Context, uidb64, token string, form validation.SetPasswordForm) error {
	user, err := s.ResolveReset(ctx, uidb64, token)
	if err != nil {
		return err
	}
	if fe := form.Validate(s.policy, user.Username, user.Email); !fe.Empty() {
		return models.NewFormError(fe)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(form.NewPassword1), s.cost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	observability.PasswordResets.WithLabelValues("completed").Inc()
	return nil
}
