package server

import (
	"errors"

	"chirper/internal/models"
	"chirper/internal/service"
	"chirper/internal/sessions"
	"chirper/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	passwordResetSentPath     = "/password_reset/sent/"
	passwordResetCompletePath = "/password_reset/complete/"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx, rs *requestScope) error {
	if rs.user != nil {
		return s.redirect(c, rs, homePath)
	}
	return s.render(c, rs, "index", nil, nil, nil)
}

// Signin handles GET /signin/
func (s *Server) Signin(c *fiber.Ctx, rs *requestScope) error {
	form := validation.SigninForm{Next: c.Query("next")}
	return s.render(c, rs, "signin", form, nil, nil)
}

// SubmitSignin handles POST /signin/
func (s *Server) SubmitSignin(c *fiber.Ctx, rs *requestScope) error {
	var form validation.SigninForm
	if err := c.BodyParser(&form); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}
	if form.Next == "" {
		form.Next = c.Query("next")
	}

	user, err := s.auth.Authenticate(rs.ctx, &form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "signin", form, fe, nil)
		}
		return s.respondError(c, err)
	}

	rs.saved = true
	if err := sessions.Login(rs.sess, user.ID); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.Redirect(safeNext(form.Next), fiber.StatusFound)
}

// Signout handles GET /signout/
func (s *Server) Signout(c *fiber.Ctx, rs *requestScope) error {
	rs.saved = true
	if err := sessions.Logout(rs.sess); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.Redirect(signinPath, fiber.StatusFound)
}

// PasswordReset handles GET /password_reset/
func (s *Server) PasswordReset(c *fiber.Ctx, rs *requestScope) error {
	return s.render(c, rs, "password_reset", validation.PasswordResetForm{}, nil, nil)
}

// SubmitPasswordReset handles POST /password_reset/. The response does not
// reveal whether the address belongs to an account.
func (s *Server) SubmitPasswordReset(c *fiber.Ctx, rs *requestScope) error {
	var form validation.PasswordResetForm
	if err := c.BodyParser(&form); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}
	if err := s.auth.RequestReset(rs.ctx, &form); err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "password_reset", form, fe, nil)
		}
		return s.respondError(c, err)
	}
	return s.redirect(c, rs, passwordResetSentPath)
}

// PasswordResetSent handles GET /password_reset/sent/
func (s *Server) PasswordResetSent(c *fiber.Ctx, rs *requestScope) error {
	return s.render(c, rs, "password_reset_sent", nil, nil, nil)
}

// PasswordResetComplete handles GET /password_reset/complete/
func (s *Server) PasswordResetComplete(c *fiber.Ctx, rs *requestScope) error {
	return s.render(c, rs, "password_reset_complete", nil, nil, nil)
}

func invalidResetLink() models.FieldErrors {
	return models.FieldErrors{models.NonFieldErrors: {validation.MsgInvalidResetToken}}
}

// PasswordResetConfirm handles GET /reset/:uidb64/:token/
func (s *Server) PasswordResetConfirm(c *fiber.Ctx, rs *requestScope) error {
	_, err := s.auth.ResolveReset(rs.ctx, c.Params("uidb64"), c.Params("token"))
	switch {
	case errors.Is(err, service.ErrInvalidResetLink):
		return s.render(c, rs, "password_reset_confirm", nil, invalidResetLink(), fiber.Map{"validlink": false})
	case err != nil:
		return s.respondError(c, err)
	}
	return s.render(c, rs, "password_reset_confirm", nil, nil, fiber.Map{"validlink": true})
}

// SubmitPasswordResetConfirm handles POST /reset/:uidb64/:token/
func (s *Server) SubmitPasswordResetConfirm(c *fiber.Ctx, rs *requestScope) error {
	var form validation.SetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	err := s.auth.ConfirmReset(rs.ctx, c.Params("uidb64"), c.Params("token"), form)
	if errors.Is(err, service.ErrInvalidResetLink) {
		return s.render(c, rs, "password_reset_confirm", nil, invalidResetLink(), fiber.Map{"validlink": false})
	}
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "password_reset_confirm", nil, fe, fiber.Map{"validlink": true})
		}
		return s.respondError(c, err)
	}
	return s.redirect(c, rs, passwordResetCompletePath)
}
