package server

import (
	"chirper/internal/models"
	"chirper/internal/service"
	"chirper/internal/sessions"
	"chirper/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const profileUpdatedNotice = "Profile Updated!"

// Profile handles GET /:id/
func (s *Server) Profile(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	page, err := s.profile.View(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, rs, "profile", nil, nil, fiber.Map{
		"profile_user":    page.User,
		"tweets":          page.Tweets,
		"like_list":       page.LikeList,
		"followers_count": page.FollowersCount,
		"following_count": page.FollowingCount,
		"is_following":    page.IsFollowing,
	})
}

// EditProfile handles GET /:id/edit/
func (s *Server) EditProfile(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	user, err := s.profile.GetForEdit(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	form := validation.ProfileForm{Username: user.Username, Bio: user.Profile.Bio}
	return s.render(c, rs, "profile_edit", form, nil, fiber.Map{"profile_user": user})
}

// UpdateProfile handles POST /:id/edit/
func (s *Server) UpdateProfile(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	user, err := s.profile.GetForEdit(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	in := service.EditProfileInput{ViewerID: rs.userID(), UserID: id}
	if err := c.BodyParser(&in.Form); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}
	in.Form.Normalize()
	fe := models.FieldErrors{}
	if in.Avatar, err = s.upload(c, "profile_img", fe); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	if !fe.Empty() {
		fe.Merge(in.Form.Validate())
		return s.render(c, rs, "profile_edit", in.Form, fe, fiber.Map{"profile_user": user})
	}

	updated, err := s.profile.Edit(rs.ctx, in)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "profile_edit", in.Form, fe, fiber.Map{"profile_user": user})
		}
		return s.respondError(c, err)
	}
	rs.flash(sessions.LevelSuccess, profileUpdatedNotice)
	return s.redirect(c, rs, profilePath(updated.ID))
}

// Follow handles POST /:id/follow
func (s *Server) Follow(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	out, err := s.social.Follow(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.followRedirect(c, rs, out)
}

// Unfollow handles POST /:id/unfollow
func (s *Server) Unfollow(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	out, err := s.social.Unfollow(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.followRedirect(c, rs, out)
}

func (s *Server) followRedirect(c *fiber.Ctx, rs *requestScope, out *service.FollowOutcome) error {
	rs.flash(out.Level, out.Notice)
	return s.redirect(c, rs, profilePath(out.Target.ID))
}

// Followers handles GET /:username/followers
func (s *Server) Followers(c *fiber.Ctx, rs *requestScope) error {
	user, users, err := s.social.Followers(rs.ctx, c.Params("username"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, rs, "followers", nil, nil, fiber.Map{"profile_user": user, "users": users})
}

// Following handles GET /:username/following
func (s *Server) Following(c *fiber.Ctx, rs *requestScope) error {
	user, users, err := s.social.Following(rs.ctx, c.Params("username"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, rs, "following", nil, nil, fiber.Map{"profile_user": user, "users": users})
}
