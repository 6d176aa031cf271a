package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ideon/internal/featureflags"
	"ideon/internal/feed"
	"ideon/internal/models"
	"ideon/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEnhancer struct {
	out string
	err error
}

func (e fixedEnhancer) Enhance(context.Context, string, string) (string, error) { return e.out, e.err }
func (e fixedEnhancer) Name() string                                          { return "fixed" }

func newIdeaService(t *testing.T, f *fixture, cfg IdeaServiceConfig) *IdeaService {
	t.Helper()
	if cfg.Cache == nil {
		cache, err := feed.NewResultCache(16)
		require.NoError(t, err)
		cfg.Cache = cache
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ideon.app/"
	}
	return NewIdeaService(f.store, f.users, cfg)
}

func ids(ideas []*models.Idea) []string {
	out := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		out = append(out, idea.ID)
	}
	return out
}

func TestIdeaService_SubmitIdea(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})
	ctx := context.Background()
	price := 5000.0

	idea, err := svc.SubmitIdea(ctx, SubmitIdeaInput{
		AuthorID: f.maria.ID,
		IdeaDraft: models.IdeaDraft{
			Title:       "  <b>Pet</b> Translator ",
			Summary:     "Understand your dog",
			Description: "Collar with **NLP**",
			Tags:        []string{" IoT ", "", "<i>Pets</i>"},
			LookingFor:  []string{"Hardware Engineer"},
			IsForSale:   false,
			Price:       &price,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "idea-1", idea.ID)
	assert.Equal(t, "Pet Translator", idea.Title)
	assert.Equal(t, models.DefaultMarket, idea.Market)
	assert.Equal(t, []string{"IoT", "Pets"}, idea.Tags)
	assert.Nil(t, idea.Price, "price only kept when for sale")
	assert.Equal(t, []models.UserSnapshot{f.maria.Snapshot()}, idea.Team)
	assert.Equal(t, f.maria.Snapshot(), idea.Author)
	assert.Equal(t, models.MillisOf(fixedNow), idea.CreatedAt)
	assert.Empty(t, idea.LikedBy)
	assert.NotNil(t, idea.LikedBy)
	assert.Empty(t, idea.Comments)
	assert.Zero(t, idea.Likes+idea.Views+idea.Shares)

	all, err := f.ideas.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idea-1", all[0].ID, "new ideas are prepended")
	assert.Equal(t, []string{notifications.EventIdeaCreated}, f.events.types())
}

func TestIdeaService_SubmitIdea_Rejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.SubmitIdea(ctx, SubmitIdeaInput{IdeaDraft: models.IdeaDraft{Title: "t", Summary: "s", Description: "d"}})
		assertCode(t, err, models.CodeUnauthorized)
	})
	t.Run("unknown author", func(t *testing.T) {
		_, err := svc.SubmitIdea(ctx, SubmitIdeaInput{AuthorID: "ghost", IdeaDraft: models.IdeaDraft{Title: "t", Summary: "s", Description: "d"}})
		assertCode(t, err, models.CodeUnauthorized)
	})
	t.Run("missing description", func(t *testing.T) {
		_, err := svc.SubmitIdea(ctx, SubmitIdeaInput{AuthorID: f.alex.ID, IdeaDraft: models.IdeaDraft{Title: "t", Summary: "s"}})
		assertCode(t, err, models.CodeValidation)
	})
	t.Run("title only markup", func(t *testing.T) {
		_, err := svc.SubmitIdea(ctx, SubmitIdeaInput{AuthorID: f.alex.ID, IdeaDraft: models.IdeaDraft{Title: "<script>x</script>", Summary: "s", Description: "d"}})
		assertCode(t, err, models.CodeValidation)
	})
}

func TestIdeaService_GetIdeaRendersDescription(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})

	detail, err := svc.GetIdea(context.Background(), f.aiIdea)
	require.NoError(t, err)
	assert.Contains(t, detail.DescriptionHTML, "<strong>AI</strong>")
	assert.Equal(t, 0, detail.Views, "reading does not count a view")

	assert.NotContains(t, svc.RenderDescription("hi <script>alert(1)</script>"), "<script>")

	_, err = svc.GetIdea(context.Background(), "nope")
	assertCode(t, err, models.CodeNotFound)
}

func TestIdeaService_OpenAndLikeStayInSync(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})
	ctx := context.Background()

	detail, err := svc.OpenIdea(ctx, f.maria.ID, f.aiIdea)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Views)

	liked, err := svc.ToggleLike(ctx, f.maria.ID, f.aiIdea)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)
	assert.Equal(t, liked, svc.SelectedIdea(f.maria.ID))

	svc.CloseIdea(f.maria.ID)
	assert.Nil(t, svc.SelectedIdea(f.maria.ID))

	missing, err := svc.OpenIdea(ctx, f.maria.ID, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.ToggleLike(ctx, "", f.aiIdea)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestIdeaService_ShareLink(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})
	ctx := context.Background()

	res, err := svc.ShareLink(ctx, ShareIdea, f.web3Idea)
	require.NoError(t, err)
	assert.Equal(t, "https://ideon.app/idea/idea-web3", res.URL)
	assert.Equal(t, "Decentralized Supply Ledger", res.Title)
	assert.Equal(t, 5, f.idea(t, f.web3Idea).Shares)

	res, err = svc.ShareLink(ctx, ShareProfile, f.sam.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://ideon.app/profile/u3", res.URL)
	assert.Equal(t, "sam", res.Title)

	res, err = svc.ShareLink(ctx, ShareIdea, "nope")
	assert.NoError(t, err)
	assert.Nil(t, res)

	res, err = svc.ShareLink(ctx, ShareProfile, "nope")
	assert.NoError(t, err)
	assert.Nil(t, res)

	_, err = svc.ShareLink(ctx, "post", f.web3Idea)
	assertCode(t, err, models.CodeValidation)
}

func TestIdeaService_Feed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	search := func(s string) *string { return &s }

	t.Run("scopes and sorts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newIdeaService(t, f, IdeaServiceConfig{})

		tests := []struct {
			name string
			req  FeedRequest
			want []string
		}{
			{"all newest first", FeedRequest{}, []string{"idea-ai", "idea-web3", "idea-solo"}},
			{"trending", FeedRequest{Sort: "trending"}, []string{"idea-web3", "idea-ai", "idea-solo"}},
			{"most shared", FeedRequest{Sort: "most-shared"}, []string{"idea-web3", "idea-ai", "idea-solo"}},
			{"seeking cofounder", FeedRequest{Scope: "seeking-cofounder"}, []string{"idea-solo"}},
			{"mine", FeedRequest{Scope: "mine", ViewerID: "u2"}, []string{"idea-web3"}},
			{"mine anonymous", FeedRequest{Scope: "mine"}, []string{}},
			{"search ai", FeedRequest{Search: search("  AI ")}, []string{"idea-ai"}},
			{"search no match", FeedRequest{Scope: "seeking-cofounder", Search: search("zzz-nomatch")}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res, err := svc.Feed(ctx, tt.req)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(res.Ideas))
			})
		}
	})

	t.Run("liked scope follows toggles", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newIdeaService(t, f, IdeaServiceConfig{})
		liked := FeedRequest{Scope: "liked", ViewerID: f.alex.ID}

		_, err := svc.ToggleLike(ctx, f.alex.ID, f.soloIdea)
		require.NoError(t, err)
		res, err := svc.Feed(ctx, liked)
		require.NoError(t, err)
		assert.Equal(t, []string{"idea-solo"}, ids(res.Ideas))

		_, err = svc.ToggleLike(ctx, f.alex.ID, f.soloIdea)
		require.NoError(t, err)
		res, err = svc.Feed(ctx, liked)
		require.NoError(t, err)
		assert.Empty(t, res.Ideas)
	})

	t.Run("uses settled search", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newIdeaService(t, f, IdeaServiceConfig{})

		assert.Equal(t, "farm", svc.TypeSearch(f.alex.ID, "farm"))
		assert.Eventually(t, func() bool {
			res, err := svc.Feed(ctx, FeedRequest{ViewerID: f.alex.ID})
			return err == nil && len(res.Ideas) == 1 && res.Ideas[0].ID == "idea-solo" && res.Query == "farm"
		}, time.Second, 5*time.Millisecond)

		// an explicit query bypasses the search box
		res, err := svc.Feed(ctx, FeedRequest{ViewerID: f.alex.ID, Search: search("")})
		require.NoError(t, err)
		assert.Len(t, res.Ideas, 3)
	})

	t.Run("caches per version", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		cache, err := feed.NewResultCache(8)
		require.NoError(t, err)
		svc := newIdeaService(t, f, IdeaServiceConfig{Cache: cache})

		_, err = svc.Feed(ctx, FeedRequest{Sort: "trending"})
		require.NoError(t, err)
		_, err = svc.Feed(ctx, FeedRequest{Sort: "trending"})
		require.NoError(t, err)
		assert.Equal(t, 1, cache.Len())

		_, err = svc.RecordShare(ctx, f.soloIdea)
		require.NoError(t, err)
		_, err = svc.Feed(ctx, FeedRequest{Sort: "trending"})
		require.NoError(t, err)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("rejects unknown scope and sort", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newIdeaService(t, f, IdeaServiceConfig{})
		_, err := svc.Feed(ctx, FeedRequest{Scope: "friends"})
		assertCode(t, err, models.CodeValidation)
		_, err = svc.Feed(ctx, FeedRequest{Sort: "oldest"})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("list error", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("list failed")
		store := NewStore(&ideaRepoStub{listFn: func(context.Context) ([]*models.Idea, error) { return nil, repoErr }}, nil)
		svc := NewIdeaService(store, nil, IdeaServiceConfig{})
		_, err := svc.Feed(ctx, FeedRequest{})
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestIdeaService_SidebarTrending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})

	top, err := svc.SidebarTrending(context.Background())
	require.NoError(t, err)
	// ai: 0 + 2*3, web3: 1 + 2*1, solo: 0
	assert.Equal(t, []string{"idea-ai", "idea-web3", "idea-solo"}, ids(top))
}

func TestIdeaService_Dashboard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newIdeaService(t, f, IdeaServiceConfig{})
	ctx := context.Background()

	_, err := svc.OpenIdea(ctx, f.sam.ID, f.web3Idea)
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, f.maria.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalIdeas)
	assert.Equal(t, 1, d.TotalLikes)
	assert.Equal(t, 1, d.TotalViews)
	assert.Equal(t, 4, d.TotalShares)
	assert.Equal(t, []string{"idea-web3"}, ids(d.Ideas))

	empty, err := svc.Dashboard(ctx, f.pending.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalIdeas)
	assert.NotNil(t, empty.Ideas)
}

func TestIdeaService_EnhanceDescription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		flags    string
		enhancer fixedEnhancer
		input    string
		want     string
	}{
		{"flag on", "ai_enhance=on", fixedEnhancer{out: "Sharper pitch"}, "draft", "Sharper pitch"},
		{"flag off", "ai_enhance=off", fixedEnhancer{out: "Sharper pitch"}, "draft", "draft"},
		{"flag missing", "", fixedEnhancer{out: "Sharper pitch"}, "draft", "draft"},
		{"enhancer fails", "ai_enhance=on", fixedEnhancer{err: errors.New("quota")}, "draft", "draft"},
		{"blank input", "ai_enhance=on", fixedEnhancer{out: "Sharper pitch"}, "  ", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := newIdeaService(t, f, IdeaServiceConfig{
				Enhancer: tt.enhancer,
				Flags:    featureflags.NewManager(tt.flags),
			})
			assert.Equal(t, tt.want, svc.EnhanceDescription(ctx, f.alex.ID, "Title", tt.input))
		})
	}
}
