package server

import (
	"chirper/internal/models"
	"chirper/internal/service"
	"chirper/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// tweetInput parses and normalizes a tweet form with its optional image.
// A non-nil FieldErrors means the form must be shown again.
func (s *Server) tweetInput(c *fiber.Ctx) (service.TweetInput, models.FieldErrors, error) {
	var in service.TweetInput
	if err := c.BodyParser(&in.Form); err != nil {
		return in, nil, models.NewValidationError("Invalid request body")
	}
	in.Form.Normalize()
	fe := models.FieldErrors{}
	img, err := s.upload(c, "image", fe)
	if err != nil {
		return in, nil, models.NewInternalError(err)
	}
	if !fe.Empty() {
		fe.Merge(in.Form.Validate())
		return in, fe, nil
	}
	in.Image = img
	return in, nil, nil
}

// Home handles GET /home/
func (s *Server) Home(c *fiber.Ctx, rs *requestScope) error {
	feed, err := s.tweets.Feed(rs.ctx, rs.userID())
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, rs, "home", nil, nil, fiber.Map{
		"tweets":    feed.Tweets,
		"like_list": feed.LikeList,
	})
}

// NewTweet handles GET /tweets/post/
func (s *Server) NewTweet(c *fiber.Ctx, rs *requestScope) error {
	return s.render(c, rs, "tweet_create", validation.TweetForm{}, nil, nil)
}

// CreateTweet handles POST /tweets/post/
func (s *Server) CreateTweet(c *fiber.Ctx, rs *requestScope) error {
	in, fe, err := s.tweetInput(c)
	if err != nil {
		return s.respondError(c, err)
	}
	if fe != nil {
		return s.render(c, rs, "tweet_create", in.Form, fe, nil)
	}

	if _, err := s.tweets.Create(rs.ctx, rs.userID(), in); err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "tweet_create", in.Form, fe, nil)
		}
		return s.respondError(c, err)
	}
	return s.redirect(c, rs, homePath)
}

// EditTweet handles GET /tweets/:id/edit/
func (s *Server) EditTweet(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	tweet, err := s.tweets.GetForEdit(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	form := validation.TweetForm{Body: tweet.Body}
	return s.render(c, rs, "tweet_edit", form, nil, fiber.Map{"tweet": tweet})
}

// UpdateTweet handles POST /tweets/:id/edit/
func (s *Server) UpdateTweet(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	// Ownership is decided before the form is looked at.
	tweet, err := s.tweets.GetForEdit(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	in, fe, err := s.tweetInput(c)
	if err != nil {
		return s.respondError(c, err)
	}
	if fe != nil {
		return s.render(c, rs, "tweet_edit", in.Form, fe, fiber.Map{"tweet": tweet})
	}

	if _, err := s.tweets.Edit(rs.ctx, rs.userID(), id, in); err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, rs, "tweet_edit", in.Form, fe, fiber.Map{"tweet": tweet})
		}
		return s.respondError(c, err)
	}
	return s.redirect(c, rs, homePath)
}

// ConfirmDeleteTweet handles GET /tweets/:id/delete/ by sending the
// visitor to the tweet's page.
func (s *Server) ConfirmDeleteTweet(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	tweet, err := s.tweets.Get(rs.ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}
	if tweet.User == nil {
		return notFound(c)
	}
	return s.redirect(c, rs, tweetPath(tweet.User.Username, tweet.ID))
}

// DeleteTweet handles POST /tweets/:id/delete/
func (s *Server) DeleteTweet(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	if err := s.tweets.Delete(rs.ctx, rs.userID(), id); err != nil {
		return s.respondError(c, err)
	}
	return s.redirect(c, rs, homePath)
}

// TweetDetail handles GET /tweets/:username/:id/
func (s *Server) TweetDetail(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.Params("id"))
	if !ok {
		return notFound(c)
	}
	detail, err := s.tweets.Detail(rs.ctx, rs.userID(), c.Params("username"), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, rs, "tweet_detail", nil, nil, fiber.Map{
		"tweet":      detail.Tweet,
		"liked":      detail.Liked,
		"like_count": detail.LikeCount,
	})
}

// LikeTweet handles POST /tweets/like/ and answers with the new state.
func (s *Server) LikeTweet(c *fiber.Ctx, rs *requestScope) error {
	id, ok := parseID(c.FormValue("tweetid"))
	if !ok {
		return notFound(c)
	}
	result, err := s.tweets.ToggleLike(rs.ctx, rs.userID(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}
