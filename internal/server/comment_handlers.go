package server

import (
	"ideon/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns the idea's comment thread.
func (s *Server) GetComments(c *fiber.Ctx) error {
	view, err := s.commentService.Thread(c.UserContext(), trimmedParam(c, "id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// CreateComment adds a comment or a reply (parentId) to an idea.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ideaID := trimmedParam(c, "id")
	var req struct {
		Text     string  `json:"text"`
		ParentID *string `json:"parentId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	created, err := s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		UserID:   currentUser(c),
		IdeaID:   ideaID,
		Text:     req.Text,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	if created == nil {
		return notFound(c, "Idea", ideaID)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment edits the caller's own comment.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID := trimmedParam(c, "commentId")
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	updated, err := s.commentService.EditComment(c.UserContext(), service.EditCommentInput{
		UserID:    currentUser(c),
		IdeaID:    trimmedParam(c, "id"),
		CommentID: commentID,
		Text:      req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	if updated == nil {
		return notFound(c, "Comment", commentID)
	}
	return c.JSON(updated)
}

// DeleteComment removes the caller's comment and all replies below it.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID := trimmedParam(c, "commentId")
	removal, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUser(c),
		IdeaID:    trimmedParam(c, "id"),
		CommentID: commentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	if removal == nil {
		return notFound(c, "Comment", commentID)
	}
	return c.JSON(removal)
}

// LikeComment toggles the caller's like on a comment.
func (s *Server) LikeComment(c *fiber.Ctx) error {
	commentID := trimmedParam(c, "commentId")
	liked, err := s.commentService.ToggleCommentLike(c.UserContext(), currentUser(c), trimmedParam(c, "id"), commentID)
	if err != nil {
		return respondError(c, err)
	}
	if liked == nil {
		return notFound(c, "Comment", commentID)
	}
	return c.JSON(liked)
}
