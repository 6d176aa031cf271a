package server

import (
	"ideon/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetSuggestedUsers returns a few random members other than the caller.
func (s *Server) GetSuggestedUsers(c *fiber.Ctx) error {
	n := c.QueryInt("n", service.DefaultSuggestions)
	users, err := s.userService.SuggestedUsers(c.UserContext(), currentUser(c), n)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile opens a member's profile in the caller's profile view.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), currentUser(c), trimmedParam(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// CloseProfile clears the caller's profile view.
func (s *Server) CloseProfile(c *fiber.Ctx) error {
	s.userService.CloseProfile(currentUser(c))
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserIdeas lists the ideas a member authored.
func (s *Server) GetUserIdeas(c *fiber.Ctx) error {
	ideas, err := s.userService.ProfileIdeas(c.UserContext(), trimmedParam(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ideas)
}

// UpdateMyProfile applies a partial update to the caller's profile.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.UserID = currentUser(c)

	user, err := s.userService.UpdateProfile(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Snapshot())
}
