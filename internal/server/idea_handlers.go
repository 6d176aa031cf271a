package server

import (
	"ideon/internal/models"
	"ideon/internal/service"

	"github.com/gofiber/fiber/v2"
)

type submitIdeaRequest struct {
	Title              string    `json:"title"`
	Summary            string    `json:"summary"`
	Description        string    `json:"description"`
	Market             string    `json:"market"`
	Tags               listField `json:"tags"`
	IsForSale          bool      `json:"isForSale"`
	Price              *float64  `json:"price"`
	LookingFor         listField `json:"lookingFor"`
	IsSeekingCoFounder bool      `json:"isSeekingCoFounder"`
}

// CreateIdea submits a new idea authored by the caller.
func (s *Server) CreateIdea(c *fiber.Ctx) error {
	var req submitIdeaRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	idea, err := s.ideaService.SubmitIdea(c.UserContext(), service.SubmitIdeaInput{
		AuthorID: currentUser(c),
		IdeaDraft: models.IdeaDraft{
			Title:              req.Title,
			Summary:            req.Summary,
			Description:        req.Description,
			Market:             req.Market,
			Tags:               req.Tags,
			IsForSale:          req.IsForSale,
			Price:              req.Price,
			LookingFor:         req.LookingFor,
			IsSeekingCoFounder: req.IsSeekingCoFounder,
		},
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(idea)
}

// EnhanceIdea returns an improved description, or the input unchanged.
func (s *Server) EnhanceIdea(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	out := s.ideaService.EnhanceDescription(c.UserContext(), currentUser(c), req.Title, req.Description)
	return c.JSON(fiber.Map{"description": out})
}

// GetIdea reads an idea without counting a view.
func (s *Server) GetIdea(c *fiber.Ctx) error {
	detail, err := s.ideaService.GetIdea(c.UserContext(), trimmedParam(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// OpenIdea counts a view and selects the idea into the caller's detail view.
func (s *Server) OpenIdea(c *fiber.Ctx) error {
	id := trimmedParam(c, "id")
	detail, err := s.ideaService.OpenIdea(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if detail == nil {
		return notFound(c, "Idea", id)
	}
	return c.JSON(detail)
}

// CloseIdea clears the caller's detail view.
func (s *Server) CloseIdea(c *fiber.Ctx) error {
	s.ideaService.CloseIdea(currentUser(c))
	return c.SendStatus(fiber.StatusNoContent)
}

// LikeIdea toggles the caller's like.
func (s *Server) LikeIdea(c *fiber.Ctx) error {
	id := trimmedParam(c, "id")
	idea, err := s.ideaService.ToggleLike(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if idea == nil {
		return notFound(c, "Idea", id)
	}
	return c.JSON(idea)
}

// ShareIdea records a share and returns the public link.
func (s *Server) ShareIdea(c *fiber.Ctx) error {
	return s.share(c, service.ShareIdea, "Idea")
}

// ShareProfile returns the public link of a member's profile.
func (s *Server) ShareProfile(c *fiber.Ctx) error {
	return s.share(c, service.ShareProfile, "User")
}

func (s *Server) share(c *fiber.Ctx, kind, resource string) error {
	id := trimmedParam(c, "id")
	res, err := s.ideaService.ShareLink(c.UserContext(), kind, id)
	if err != nil {
		return respondError(c, err)
	}
	if res == nil {
		return notFound(c, resource, id)
	}
	return c.JSON(res)
}
