package service

import (
	"context"
	"strings"

	"ideon/internal/models"
	"ideon/internal/notifications"
	"ideon/internal/repository"
	"ideon/internal/thread"
	"ideon/internal/validation"
)

type CommentService struct {
	store *Store
	users repository.UserRepository
}

type AddCommentInput struct {
	UserID   string
	IdeaID   string
	Text     string
	ParentID *string
}

type EditCommentInput struct {
	UserID    string
	IdeaID    string
	CommentID string
	Text      string
}

type DeleteCommentInput struct {
	UserID    string
	IdeaID    string
	CommentID string
}

// ThreadView is an idea's comments arranged for display.
type ThreadView struct {
	IdeaID string         `json:"ideaId"`
	Count  int            `json:"count"`
	Nodes  []*thread.Node `json:"nodes"`
}

// CommentRemoval lists every comment removed by a cascading delete.
type CommentRemoval struct {
	IdeaID  string   `json:"ideaId"`
	Removed []string `json:"removed"`
}

func NewCommentService(store *Store, users repository.UserRepository) *CommentService {
	return &CommentService{store: store, users: users}
}

// Thread returns the idea's comments as a tree: top-level newest first,
// replies oldest first.
func (s *CommentService) Thread(ctx context.Context, ideaID string) (*ThreadView, error) {
	idea, err := s.store.Ideas().GetByID(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	idx := thread.BuildIndex(idea.Comments)
	return &ThreadView{IdeaID: idea.ID, Count: len(idea.Comments), Nodes: idx.Tree()}, nil
}

// AddComment appends a top-level comment or a reply. A missing idea returns
// (nil, nil).
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	author, err := actor(ctx, s.users, in.UserID)
	if err != nil {
		return nil, err
	}
	text := validation.StripMarkup(in.Text)
	if err := validation.ValidateCommentText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	parentID := in.ParentID
	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}

	comment := models.Comment{
		ID:        s.store.NewID("c"),
		User:      author.Snapshot(),
		Text:      text,
		CreatedAt: s.store.Now(),
		Likes:     0,
		LikedBy:   []string{},
		ParentID:  parentID,
	}

	var parentErr error
	idea, changed, err := s.store.Mutate(ctx, "add_comment", in.IdeaID, func(idea *models.Idea) bool {
		if parentID != nil && idea.CommentIndex(*parentID) < 0 {
			parentErr = models.NewValidationError("Parent comment not found")
			return false
		}
		idea.Comments = append(idea.Comments, comment.Clone())
		return true
	})
	if err != nil {
		return nil, err
	}
	if parentErr != nil {
		return nil, parentErr
	}
	if idea == nil || !changed {
		return nil, nil
	}

	s.store.publish(ctx, notifications.Event{
		Type:    notifications.EventCommentAdded,
		IdeaID:  idea.ID,
		Payload: map[string]interface{}{"ideaId": idea.ID, "comment": comment},
	})
	return &comment, nil
}

// EditComment replaces the text of the actor's own comment. A missing idea
// or comment returns (nil, nil).
func (s *CommentService) EditComment(ctx context.Context, in EditCommentInput) (*models.Comment, error) {
	if _, err := actor(ctx, s.users, in.UserID); err != nil {
		return nil, err
	}
	text := validation.StripMarkup(in.Text)
	if err := validation.ValidateCommentText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var authErr error
	idea, changed, err := s.store.Mutate(ctx, "edit_comment", in.IdeaID, func(idea *models.Idea) bool {
		i := idea.CommentIndex(in.CommentID)
		if i < 0 {
			return false
		}
		if idea.Comments[i].User.ID != in.UserID {
			authErr = models.NewUnauthorizedError("You can only edit your own comments")
			return false
		}
		idea.Comments[i].Text = text
		return true
	})
	if err != nil {
		return nil, err
	}
	if authErr != nil {
		return nil, authErr
	}
	if idea == nil || !changed {
		return nil, nil
	}

	edited := idea.Comments[idea.CommentIndex(in.CommentID)].Clone()
	s.store.publish(ctx, notifications.Event{
		Type:    notifications.EventCommentUpdated,
		IdeaID:  idea.ID,
		Payload: map[string]interface{}{"ideaId": idea.ID, "comment": edited},
	})
	return &edited, nil
}

// DeleteComment removes the actor's comment and every reply below it. A
// missing idea or comment returns (nil, nil).
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*CommentRemoval, error) {
	if _, err := actor(ctx, s.users, in.UserID); err != nil {
		return nil, err
	}

	var authErr error
	var removed []string
	idea, changed, err := s.store.Mutate(ctx, "delete_comment", in.IdeaID, func(idea *models.Idea) bool {
		i := idea.CommentIndex(in.CommentID)
		if i < 0 {
			return false
		}
		if idea.Comments[i].User.ID != in.UserID {
			authErr = models.NewUnauthorizedError("You can only delete your own comments")
			return false
		}
		var ids []string
		idea.Comments, ids = thread.RemoveSubtree(idea.Comments, in.CommentID)
		if removed == nil {
			removed = ids
		}
		return len(ids) > 0
	})
	if err != nil {
		return nil, err
	}
	if authErr != nil {
		return nil, authErr
	}
	if idea == nil || !changed {
		return nil, nil
	}

	out := &CommentRemoval{IdeaID: idea.ID, Removed: removed}
	s.store.publish(ctx, notifications.Event{
		Type:    notifications.EventCommentRemoved,
		IdeaID:  idea.ID,
		Payload: out,
	})
	return out, nil
}

// ToggleCommentLike flips the actor's like on a comment. A missing idea or
// comment returns (nil, nil).
func (s *CommentService) ToggleCommentLike(ctx context.Context, actorID, ideaID, commentID string) (*models.Comment, error) {
	if _, err := actor(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	idea, changed, err := s.store.Mutate(ctx, "like_comment", ideaID, func(idea *models.Idea) bool {
		i := idea.CommentIndex(commentID)
		if i < 0 {
			return false
		}
		c := &idea.Comments[i]
		c.LikedBy, _ = thread.ToggleMember(c.LikedBy, actorID)
		c.Likes = len(c.LikedBy)
		return true
	})
	if err != nil || idea == nil || !changed {
		return nil, err
	}

	liked := idea.Comments[idea.CommentIndex(commentID)].Clone()
	s.store.publish(ctx, notifications.Event{
		Type:    notifications.EventCommentUpdated,
		IdeaID:  idea.ID,
		Payload: map[string]interface{}{"ideaId": idea.ID, "comment": liked},
	})
	return &liked, nil
}
