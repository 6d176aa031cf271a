package server

import (
	"ideon/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed evaluates the caller's feed. Without q the settled value of the
// caller's search box is used.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	req := service.FeedRequest{
		ViewerID: currentUser(c),
		Scope:    c.Query("scope"),
		Sort:     c.Query("sort"),
	}
	if queryPresent(c, "q") {
		q := c.Query("q")
		req.Search = &q
	}

	res, err := s.ideaService.Feed(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// TypeFeedQuery feeds one keystroke state into the caller's search box.
func (s *Server) TypeFeedQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	pending := s.ideaService.TypeSearch(currentUser(c), req.Query)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"pending": pending})
}

// GetTrending returns the sidebar trending list.
func (s *Server) GetTrending(c *fiber.Ctx) error {
	ideas, err := s.ideaService.SidebarTrending(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ideas)
}

// GetDashboard returns the caller's engagement totals.
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	d, err := s.ideaService.Dashboard(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

// GetFeatureFlags returns the flags as evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(currentUser(c)))
}
