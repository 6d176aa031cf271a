package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"ideon/internal/enhance"
	"ideon/internal/featureflags"
	"ideon/internal/feed"
	"ideon/internal/models"
	"ideon/internal/notifications"
	"ideon/internal/observability"
	"ideon/internal/repository"
	"ideon/internal/validation"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.opentelemetry.io/otel/attribute"
)

// Share targets.
const (
	ShareIdea    = "idea"
	ShareProfile = "profile"
)

type IdeaService struct {
	store    *Store
	users    repository.UserRepository
	enhancer enhance.Enhancer
	flags    *featureflags.Manager
	cache    *feed.ResultCache
	baseURL  string
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

type IdeaServiceConfig struct {
	Enhancer enhance.Enhancer
	Flags    *featureflags.Manager
	Cache    *feed.ResultCache
	BaseURL  string
}

// SubmitIdeaInput is the draft entered in the submission form.
type SubmitIdeaInput struct {
	AuthorID string
	models.IdeaDraft
}

// IdeaDetail is an idea as shown in the detail view.
type IdeaDetail struct {
	*models.Idea
	DescriptionHTML string `json:"descriptionHtml"`
}

// FeedRequest selects a feed. A nil Search uses the viewer's debounced
// search box.
type FeedRequest struct {
	ViewerID string
	Scope    string
	Sort     string
	Search   *string
}

// FeedResult is one evaluated feed.
type FeedResult struct {
	Scope feed.Scope     `json:"scope"`
	Sort  feed.SortKey   `json:"sort"`
	Query string         `json:"query"`
	Ideas []*models.Idea `json:"ideas"`
}

// ShareResult is the link handed to the share dialog.
type ShareResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Dashboard aggregates an author's engagement.
type Dashboard struct {
	TotalIdeas  int            `json:"totalIdeas"`
	TotalLikes  int            `json:"totalLikes"`
	TotalViews  int            `json:"totalViews"`
	TotalShares int            `json:"totalShares"`
	Ideas       []*models.Idea `json:"ideas"`
}

func NewIdeaService(store *Store, users repository.UserRepository, cfg IdeaServiceConfig) *IdeaService {
	enhancer := cfg.Enhancer
	if enhancer == nil {
		enhancer = enhance.Noop{}
	}
	return &IdeaService{
		store:    store,
		users:    users,
		enhancer: enhancer,
		flags:    cfg.Flags,
		cache:    cfg.Cache,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}
}

// actor resolves the acting user; a missing or unknown id is UNAUTHORIZED.
func actor(ctx context.Context, users repository.UserRepository, userID string) (*models.User, error) {
	if userID == "" {
		return nil, models.NewUnauthorizedError("You must be logged in")
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("You must be logged in")
		}
		return nil, err
	}
	return user, nil
}

func (s *IdeaService) SubmitIdea(ctx context.Context, in SubmitIdeaInput) (*models.Idea, error) {
	author, err := actor(ctx, s.users, in.AuthorID)
	if err != nil {
		return nil, err
	}

	draft := in.IdeaDraft
	draft.Title = validation.StripMarkup(draft.Title)
	draft.Summary = validation.StripMarkup(draft.Summary)
	draft.Market = validation.StripMarkup(draft.Market)
	draft.Description = strings.TrimSpace(draft.Description)
	draft.Tags = validation.StripMarkupList(draft.Tags)
	draft.LookingFor = validation.StripMarkupList(draft.LookingFor)
	if !draft.IsForSale {
		draft.Price = nil
	}
	if err := validation.ValidateIdeaFields(draft.Title, draft.Summary, draft.Description, draft.Market,
		draft.Tags, draft.Price, draft.IsForSale); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if draft.Market == "" {
		draft.Market = models.DefaultMarket
	}

	snap := author.Snapshot()
	idea := &models.Idea{
		ID:                 s.store.NewID("idea"),
		Title:              draft.Title,
		Summary:            draft.Summary,
		Description:        draft.Description,
		Market:             draft.Market,
		Author:             snap,
		Tags:               draft.Tags,
		Likes:              0,
		LikedBy:            []string{},
		Comments:           []models.Comment{},
		IsForSale:          draft.IsForSale,
		Price:              draft.Price,
		Team:               []models.UserSnapshot{snap},
		LookingFor:         draft.LookingFor,
		CreatedAt:          s.store.Now(),
		IsSeekingCoFounder: draft.IsSeekingCoFounder,
	}
	if err := s.store.Prepend(ctx, idea); err != nil {
		return nil, err
	}

	s.store.publish(ctx, notifications.Event{Type: notifications.EventIdeaCreated, IdeaID: idea.ID, Payload: idea})
	return idea, nil
}

// GetIdea returns the idea with its rendered description. Unlike OpenIdea
// it does not count a view.
func (s *IdeaService) GetIdea(ctx context.Context, id string) (*IdeaDetail, error) {
	idea, err := s.store.Ideas().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(idea), nil
}

// OpenIdea records a view and selects the idea into the viewer's detail
// view. A missing idea returns (nil, nil).
func (s *IdeaService) OpenIdea(ctx context.Context, viewerID, id string) (*IdeaDetail, error) {
	idea, err := s.store.Open(ctx, viewerID, id)
	if err != nil || idea == nil {
		return nil, err
	}
	s.store.publish(ctx, ideaUpdated(idea))
	return s.detail(idea), nil
}

// CloseIdea clears the viewer's detail view.
func (s *IdeaService) CloseIdea(viewerID string) {
	s.store.Close(viewerID)
}

// SelectedIdea returns the viewer's open idea, or nil.
func (s *IdeaService) SelectedIdea(viewerID string) *models.Idea {
	return s.store.Selected(viewerID)
}

func (s *IdeaService) detail(idea *models.Idea) *IdeaDetail {
	return &IdeaDetail{Idea: idea, DescriptionHTML: s.RenderDescription(idea.Description)}
}

// RenderDescription turns markdown into sanitized HTML. Rendering failures
// fall back to the escaped plain text.
func (s *IdeaService) RenderDescription(markdown string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return s.policy.Sanitize(markdown)
	}
	return s.policy.SanitizeReader(&buf).String()
}

func (s *IdeaService) ToggleLike(ctx context.Context, actorID, id string) (*models.Idea, error) {
	if _, err := actor(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	idea, err := s.store.ToggleIdeaLike(ctx, id, actorID)
	if err != nil || idea == nil {
		return nil, err
	}
	s.store.publish(ctx, ideaUpdated(idea))
	return idea, nil
}

// RecordShare counts a share of the idea. A missing idea returns (nil, nil).
func (s *IdeaService) RecordShare(ctx context.Context, id string) (*models.Idea, error) {
	idea, err := s.store.RecordShare(ctx, id)
	if err != nil || idea == nil {
		return nil, err
	}
	s.store.publish(ctx, ideaUpdated(idea))
	return idea, nil
}

// ShareLink builds the public link for an idea or a profile. Sharing an
// idea counts as a share whether or not the link is used. A missing target
// returns (nil, nil).
func (s *IdeaService) ShareLink(ctx context.Context, kind, id string) (*ShareResult, error) {
	var title string
	switch kind {
	case ShareIdea:
		idea, err := s.RecordShare(ctx, id)
		if err != nil || idea == nil {
			return nil, err
		}
		title = idea.Title
	case ShareProfile:
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return nil, nil
			}
			return nil, err
		}
		title = user.Name
	default:
		return nil, models.NewValidationError("share type must be idea or profile")
	}
	return &ShareResult{URL: s.baseURL + "/" + kind + "/" + id, Title: title}, nil
}

// TypeSearch feeds the viewer's search box and returns the pending query.
func (s *IdeaService) TypeSearch(viewerID, query string) string {
	s.store.TypeSearch(viewerID, query)
	return s.store.PendingSearch(viewerID)
}

// Feed evaluates scope, search and sort against the current collection.
func (s *IdeaService) Feed(ctx context.Context, req FeedRequest) (*FeedResult, error) {
	scope, err := feed.ParseScope(req.Scope)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	sortKey, err := feed.ParseSort(req.Sort)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	search := ""
	if req.Search != nil {
		search = *req.Search
	} else if req.ViewerID != "" {
		search = s.store.SettledSearch(req.ViewerID)
	}

	q := feed.Query{Scope: scope, Search: search, Sort: sortKey, ViewerID: req.ViewerID}
	ctx, span := observability.StartSpan(ctx, "feed", "evaluate",
		attribute.String("feed.scope", string(scope)),
		attribute.String("feed.sort", string(sortKey)),
	)
	defer span.End()
	start := time.Now()

	version := s.store.Version()
	ideas, hit := s.cache.Get(version, q)
	if !hit {
		all, err := s.store.Ideas().List(ctx)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		ideas = feed.Run(all, q)
		s.cache.Add(version, q, ideas)
	}

	cacheLabel := "miss"
	if hit {
		cacheLabel = "hit"
	}
	observability.FeedEvaluations.WithLabelValues(string(scope), string(sortKey), cacheLabel).Inc()
	observability.FeedLatency.Observe(time.Since(start).Seconds())
	span.AddAttributes(attribute.Int("feed.results", len(ideas)), attribute.Bool("feed.cache_hit", hit))

	return &FeedResult{Scope: scope, Sort: sortKey, Query: feed.NormalizeQuery(search), Ideas: ideas}, nil
}

// SidebarTrending returns the top ideas by likes + 2*comments.
func (s *IdeaService) SidebarTrending(ctx context.Context) ([]*models.Idea, error) {
	all, err := s.store.Ideas().List(ctx)
	if err != nil {
		return nil, err
	}
	return feed.SidebarTrending(all, feed.SidebarLimit), nil
}

// Dashboard sums the engagement of every idea authored by userID.
func (s *IdeaService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if _, err := actor(ctx, s.users, userID); err != nil {
		return nil, err
	}
	ideas, err := authoredBy(ctx, s.store.Ideas(), userID)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Ideas: ideas, TotalIdeas: len(ideas)}
	for _, idea := range ideas {
		d.TotalLikes += idea.Likes
		d.TotalViews += idea.Views
		d.TotalShares += idea.Shares
	}
	return d, nil
}

// EnhanceDescription asks the AI collaborator for a better description when
// the ai_enhance flag is on for actorID. Any failure returns the input.
func (s *IdeaService) EnhanceDescription(ctx context.Context, actorID, title, description string) string {
	if strings.TrimSpace(description) == "" {
		return description
	}
	if !s.flags.Enabled(featureflags.AIEnhance, actorID) {
		observability.EnhanceRequests.WithLabelValues("disabled").Inc()
		return description
	}
	return enhance.OrOriginal(ctx, s.enhancer, title, description)
}

func authoredBy(ctx context.Context, ideas repository.IdeaRepository, userID string) ([]*models.Idea, error) {
	all, err := ideas.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Idea, 0)
	for _, idea := range all {
		if idea.Author.ID == userID {
			out = append(out, idea)
		}
	}
	return out, nil
}

func ideaUpdated(idea *models.Idea) notifications.Event {
	return notifications.Event{Type: notifications.EventIdeaUpdated, IdeaID: idea.ID, Payload: idea}
}
