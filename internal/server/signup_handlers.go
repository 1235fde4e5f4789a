package server

import (
	"errors"

	"chirper/internal/models"
	"chirper/internal/sessions"
	"chirper/internal/validation"
	"chirper/internal/wizard"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) storeWizard(c *fiber.Ctx, rs *requestScope, state wizard.State, next string) error {
	if err := sessions.SetWizardState(rs.sess, state); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	rs.dirty = true
	return s.redirect(c, rs, next)
}

// SignupInfo handles GET /signup/, pre-filled from an earlier submission.
func (s *Server) SignupInfo(c *fiber.Ctx, rs *requestScope) error {
	state := sessions.WizardState(rs.sess)
	form := validation.SignupInfoForm{}
	if state.Info != nil {
		form.Username = state.Info.Username
		form.Email = state.Info.Email
		form.Phone = state.Info.Phone
		form.DateOfBirth = state.Info.DateOfBirth
	}
	return s.render(c, rs, "signup", form, nil, nil)
}

// SubmitSignupInfo handles POST /signup/
func (s *Server) SubmitSignupInfo(c *fiber.Ctx, rs *requestScope) error {
	var form validation.SignupInfoForm
	if err := c.BodyParser(&form); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	next, err := s.signup.SubmitInfo(rs.ctx, sessions.WizardState(rs.sess), &form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "signup", form, fe, nil)
		}
		return s.respondError(c, err)
	}
	return s.storeWizard(c, rs, next, wizard.PasswordPath)
}

// SignupPassword handles GET /signup_password/
func (s *Server) SignupPassword(c *fiber.Ctx, rs *requestScope) error {
	state := sessions.WizardState(rs.sess)
	if to, ok := wizard.Redirect(state, wizard.StepPassword); ok {
		return s.redirect(c, rs, to)
	}
	return s.render(c, rs, "signup_password", nil, nil, nil)
}

// SubmitSignupPassword handles POST /signup_password/
func (s *Server) SubmitSignupPassword(c *fiber.Ctx, rs *requestScope) error {
	state := sessions.WizardState(rs.sess)
	if to, ok := wizard.Redirect(state, wizard.StepPassword); ok {
		return s.redirect(c, rs, to)
	}

	var form validation.PasswordForm
	if err := c.BodyParser(&form); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	next, err := s.signup.SubmitPassword(rs.ctx, state, form)
	if err != nil {
		if errors.Is(err, wizard.ErrMissingInfo) {
			return s.redirect(c, rs, wizard.InfoPath)
		}
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "signup_password", nil, fe, nil)
		}
		return s.respondError(c, err)
	}
	return s.storeWizard(c, rs, next, wizard.ConfirmPath)
}

// SignupConfirm handles GET /signup_confirm/
func (s *Server) SignupConfirm(c *fiber.Ctx, rs *requestScope) error {
	state := sessions.WizardState(rs.sess)
	if to, ok := wizard.Redirect(state, wizard.StepConfirm); ok {
		return s.redirect(c, rs, to)
	}
	return s.render(c, rs, "signup_confirm", nil, nil, fiber.Map{"info": state.Info})
}

// SubmitSignupConfirm handles POST /signup_confirm/. Errors leave the
// stored wizard state as it was.
func (s *Server) SubmitSignupConfirm(c *fiber.Ctx, rs *requestScope) error {
	state := sessions.WizardState(rs.sess)
	if to, ok := wizard.Redirect(state, wizard.StepConfirm); ok {
		return s.redirect(c, rs, to)
	}

	_, _, err := s.signup.Confirm(rs.ctx, state)
	if err != nil {
		if errors.Is(err, wizard.ErrMissingPassword) {
			return s.redirect(c, rs, wizard.InfoPath)
		}
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "signup_confirm", nil, fe, fiber.Map{"info": state.Info})
		}
		return s.respondError(c, err)
	}

	sessions.ClearWizard(rs.sess)
	rs.dirty = true
	return s.redirect(c, rs, wizard.ThanksPath)
}

// Thanks handles GET /thanks/
func (s *Server) Thanks(c *fiber.Ctx, rs *requestScope) error {
	return s.render(c, rs, "thanks", nil, nil, nil)
}
