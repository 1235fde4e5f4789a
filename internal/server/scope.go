package server

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"chirper/internal/middleware"
	"chirper/internal/models"
	"chirper/internal/service"
	"chirper/internal/sessions"
	"chirper/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	signinPath = "/signin/"
	homePath   = "/home/"
)

// requestScope is everything a handler knows about the current request
// beyond the fiber context. It is built once by scoped.
type requestScope struct {
	ctx  context.Context
	sess *session.Session
	// user is nil for anonymous visitors.
	user *models.User

	// dirty marks session writes; fiber releases a session once saved.
	dirty bool
	saved bool
}

func (rs *requestScope) userID() uint {
	if rs.user == nil {
		return 0
	}
	return rs.user.ID
}

func (rs *requestScope) save() error {
	if !rs.dirty || rs.saved {
		return nil
	}
	rs.saved = true
	return rs.sess.Save()
}

func (rs *requestScope) flash(level, text string) {
	if text == "" {
		return
	}
	sessions.AddFlash(rs.sess, level, text)
	rs.dirty = true
}

type scopedHandler func(c *fiber.Ctx, rs *requestScope) error

// scoped loads the session and the signed-in user, then calls h.
// A session pointing at a missing or deactivated account is anonymous.
func (s *Server) scoped(h scopedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.sessions.Get(c)
		if err != nil {
			return s.respondError(c, models.NewInternalError(err))
		}
		rs := &requestScope{ctx: c.UserContext(), sess: sess}

		if id := sessions.CurrentUserID(sess); id != 0 {
			user, err := s.userRepo.GetByID(rs.ctx, id)
			switch {
			case err == nil && user.IsActive:
				if user.Profile != nil {
					user.Profile.ResolveAvatar(s.store.URL)
				}
				rs.user = user
				rs.ctx = middleware.WithUserID(rs.ctx, user.ID)
				c.Locals(middleware.LocalUserID, user.ID)
				c.SetUserContext(rs.ctx)
			case err != nil && !isCode(err, models.CodeNotFound):
				return s.respondError(c, err)
			}
		}
		return h(c, rs)
	}
}

// authenticated sends anonymous visitors to the sign-in page, carrying
// the requested URI in next.
func (s *Server) authenticated(h scopedHandler) fiber.Handler {
	return s.scoped(func(c *fiber.Ctx, rs *requestScope) error {
		if rs.user == nil {
			return c.Redirect(signinPath+"?next="+escapeNext(c.OriginalURL()), fiber.StatusFound)
		}
		return h(c, rs)
	})
}

func escapeNext(uri string) string {
	return strings.ReplaceAll(url.QueryEscape(uri), "%2F", "/")
}

// safeNext returns next when it is a local path, otherwise the home page.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return homePath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return homePath
	}
	return next
}

// render writes a view document. Pending flash messages are drained into it.
func (s *Server) render(c *fiber.Ctx, rs *requestScope, view string, form any, errs models.FieldErrors, data fiber.Map) error {
	msgs := sessions.PopFlashes(rs.sess)
	if len(msgs) > 0 {
		rs.dirty = true
		if err := rs.save(); err != nil {
			return s.respondError(c, models.NewInternalError(err))
		}
	}
	if msgs == nil {
		msgs = []sessions.Message{}
	}
	if errs == nil {
		errs = models.FieldErrors{}
	}

	body := fiber.Map{
		"view":     view,
		"form":     form,
		"errors":   errs,
		"messages": msgs,
		"user":     rs.user,
	}
	for k, v := range data {
		body[k] = v
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// redirect saves pending session writes and answers 302.
func (s *Server) redirect(c *fiber.Ctx, rs *requestScope, to string) error {
	if err := rs.save(); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.Redirect(to, fiber.StatusFound)
}

// respondError maps service errors to HTTP statuses.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		status := fiber.StatusInternalServerError
		switch appErr.Code {
		case models.CodeNotFound:
			status = fiber.StatusNotFound
		case models.CodeForbidden:
			status = fiber.StatusForbidden
		case models.CodeValidation:
			status = fiber.StatusBadRequest
		case models.CodeConflict:
			status = fiber.StatusConflict
		case models.CodeUnauthorized:
			status = fiber.StatusUnauthorized
		}
		if status == fiber.StatusInternalServerError {
			middleware.Logger.ErrorContext(c.UserContext(), "request failed", "error", err)
		}
		return models.RespondWithError(c, status, appErr)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "request failed", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func notFound(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", c.Path()))
}

func isCode(err error, code string) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// formErrors extracts per-field messages from a form validation failure.
func formErrors(err error) (models.FieldErrors, bool) {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation && appErr.Fields != nil {
		return appErr.Fields, true
	}
	return nil, false
}

// parseID reads a positive numeric route or form value. Malformed ids
// are reported as missing pages by the callers.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// upload reads an optional multipart file. Oversized files add a field
// error instead of being read.
func (s *Server) upload(c *fiber.Ctx, field string, fe models.FieldErrors) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}
	limit := int64(s.config.MaxUploadMB) * 1024 * 1024
	if limit > 0 && fh.Size > limit {
		fe.Add(field, validation.MsgImageTooLarge)
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.Upload{Name: fh.Filename, Data: data}, nil
}
