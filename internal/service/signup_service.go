package service

import (
	"context"
	"errors"
	"time"

	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
	"chirper/internal/validation"
	"chirper/internal/wizard"

	"golang.org/x/crypto/bcrypt"
)

// SignupService drives the three-stage signup wizard. It never touches the
// session itself: callers pass the current wizard state in and persist the
// returned one.
type SignupService struct {
	users  repository.UserRepository
	policy validation.PasswordPolicy
	now    func() time.Time
	cost   int
}

// NewSignupService returns a new SignupService.
func NewSignupService(users repository.UserRepository, policy validation.PasswordPolicy) *SignupService {
	return &SignupService{
		users:  users,
		policy: policy,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
	}
}

func recordStep(stage string, err error) {
	result := "ok"
	if err != nil {
		result = "invalid"
	}
	observability.SignupSteps.WithLabelValues(stage, result).Inc()
}

// SubmitInfo validates stage one. Invalid input returns a form error and
// the unchanged state.
func (s *SignupService) SubmitInfo(ctx context.Context, state wizard.State, form *validation.SignupInfoForm) (next wizard.State, err error) {
	defer func() { recordStep("info", err) }()

	fe, err := s.checkInfo(ctx, form)
	if err != nil {
		return state, err
	}
	if !fe.Empty() {
		return state, models.NewFormError(fe)
	}
	return wizard.Transition(state, wizard.InfoSubmitted{Info: wizard.Info{
		Username:    form.Username,
		Email:       form.Email,
		Phone:       form.Phone,
		DateOfBirth: form.DateOfBirth,
	}})
}

func (s *SignupService) checkInfo(ctx context.Context, form *validation.SignupInfoForm) (models.FieldErrors, error) {
	_, fe := form.Validate(s.now())
	if fe.Has("username") {
		return fe, nil
	}
	taken, err := s.users.UsernameTaken(ctx, form.Username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		fe.Add("username", validation.MsgUsernameTaken)
	}
	return fe, nil
}

// SubmitPassword validates stage two against the stored username and email.
func (s *SignupService) SubmitPassword(_ context.Context, state wizard.State, form validation.PasswordForm) (next wizard.State, err error) {
	defer func() { recordStep("password", err) }()

	if state.Info == nil {
		return state, wizard.ErrMissingInfo
	}
	if fe := form.Validate(s.policy, state.Info.Username, state.Info.Email); !fe.Empty() {
		return state, models.NewFormError(fe)
	}
	return wizard.Transition(state, wizard.PasswordSubmitted{Password: wizard.Password{
		Password1: form.Password1,
		Password2: form.Password2,
	}})
}

// Confirm re-validates everything collected so far and creates the account.
// On any error the input state is returned so the visitor can retry.
func (s *SignupService) Confirm(ctx context.Context, state wizard.State) (*models.User, wizard.State, error) {
	if state.Stage != wizard.AwaitingConfirmation || state.Info == nil || state.Password == nil {
		return nil, state, wizard.ErrMissingPassword
	}

	info := validation.SignupInfoForm{
		Username:    state.Info.Username,
		Email:       state.Info.Email,
		Phone:       state.Info.Phone,
		DateOfBirth: state.Info.DateOfBirth,
	}
	fe, err := s.checkInfo(ctx, &info)
	if err != nil {
		return nil, state, err
	}
	pw := validation.PasswordForm{Password1: state.Password.Password1, Password2: state.Password.Password2}
	fe.Merge(pw.Validate(s.policy, info.Username, info.Email))
	if !fe.Empty() {
		recordStep("confirm", models.NewFormError(fe))
		return nil, state, models.NewFormError(fe)
	}

	dob, err := validation.ParseDate(info.DateOfBirth)
	if err != nil {
		return nil, state, models.NewInternalError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw.Password1), s.cost)
	if err != nil {
		return nil, state, models.NewInternalError(err)
	}

	user := &models.User{
		Username:    info.Username,
		Email:       info.Email,
		Phone:       info.Phone,
		DateOfBirth: dob,
		Password:    string(hash),
		IsActive:    true,
		Profile:     &models.Profile{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			recordStep("confirm", err)
			return nil, state, models.NewFormError(models.FieldErrors{
				"username": {validation.MsgUsernameTaken},
			})
		}
		return nil, state, err
	}

	next, err := wizard.Transition(state, wizard.Confirmed{})
	if err != nil {
		return nil, state, err
	}
	recordStep("confirm", nil)
	observability.SignupsCompleted.Inc()
	return user, next, nil
}
