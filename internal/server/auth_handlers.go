package server

import (
	"ideon/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup registers an unverified member and sends the verification code.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignUpInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	pending, err := s.authService.SignUp(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pending)
}

// Login authenticates by email or display name.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	session, err := s.authService.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// Verify checks a verification code and logs the member in.
func (s *Server) Verify(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
		Code   string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	session, err := s.authService.Verify(c.UserContext(), req.UserID, req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// ResendCode issues a fresh verification code.
func (s *Server) ResendCode(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	pending, err := s.authService.ResendCode(c.UserContext(), req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pending)
}

// Logout forgets the persisted session and the caller's open views.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSession returns the member behind the bearer token. Without a token
// the answer is {"user": null}; a session is only ever proven by a token.
func (s *Server) GetSession(c *fiber.Ctx) error {
	userID := currentUser(c)
	if userID == "" {
		return c.JSON(fiber.Map{"user": nil})
	}
	user, err := s.authService.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
