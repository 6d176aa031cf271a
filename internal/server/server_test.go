package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ideon/internal/auth"
	"ideon/internal/config"
	"ideon/internal/featureflags"
	"ideon/internal/feed"
	"ideon/internal/models"
	"ideon/internal/persistence"
	"ideon/internal/repository"
	"ideon/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type codeRecorder struct {
	mu    sync.Mutex
	codes map[string]string
}

func (r *codeRecorder) SendCode(_ context.Context, _, email, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[email] = code
	return nil
}

func (r *codeRecorder) code(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.codes[email]
}

type upperEnhancer struct{}

func (upperEnhancer) Enhance(_ context.Context, _, desc string) (string, error) {
	return "Enhanced: " + desc, nil
}
func (upperEnhancer) Name() string { return "upper" }

type harness struct {
	app    *fiber.App
	tokens *auth.TokenIssuer
	sender *codeRecorder
	users  repository.UserRepository
	ideas  repository.IdeaRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	hashed, err := hasher.Hash("password123")
	require.NoError(t, err)

	alex := &models.User{ID: "u1", Name: "alex", Email: "alex@ideon.com", Password: hashed, EmailVerified: true}
	maria := &models.User{ID: "u2", Name: "maria", Email: "maria@ideon.com", Password: hashed, EmailVerified: true}
	sam := &models.User{ID: "u3", Name: "sam", Email: "sam@ideon.com", Password: hashed, EmailVerified: true}
	idea := &models.Idea{
		ID:          "idea-farm",
		Title:       "Urban Vertical Farms",
		Summary:     "Greens grown downtown",
		Description: "Stacked **hydroponics**.",
		Market:      models.DefaultMarket,
		Author:      maria.Snapshot(),
		Tags:        []string{"AgTech"},
		LikedBy:     []string{},
		Team:        []models.UserSnapshot{maria.Snapshot()},
		LookingFor:  []string{},
		Comments:    []models.Comment{},
		CreatedAt:   models.MillisOf(time.Now().Add(-time.Hour)),
	}

	users := repository.NewMemoryUserRepository([]*models.User{alex, maria, sam})
	ideas := repository.NewMemoryIdeaRepository([]*models.Idea{idea})
	store := service.NewStore(ideas, nil, service.WithSearchDebounce(10*time.Millisecond))
	t.Cleanup(store.Shutdown)

	cache, err := feed.NewResultCache(32)
	require.NoError(t, err)
	flags := featureflags.NewManager("ai_enhance=on")
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	sender := &codeRecorder{codes: map[string]string{}}

	srv := NewServer(Deps{
		Config: &config.Config{Port: "0", AllowedOrigins: "http://localhost:5173"},
		Tokens: tokens,
		Flags:  flags,
		Ideas: service.NewIdeaService(store, users, service.IdeaServiceConfig{
			Enhancer: upperEnhancer{},
			Flags:    flags,
			Cache:    cache,
			BaseURL:  "https://ideon.app",
		}),
		Comments: service.NewCommentService(store, users),
		Users:    service.NewUserService(users, store),
		Auth: service.NewAuthService(users, store, service.AuthServiceConfig{
			Hasher:   hasher,
			Tokens:   tokens,
			Sender:   sender,
			Sessions: persistence.NewStore(persistence.NewMemoryKV(), nil),
		}),
		Backend: "memory",
	})
	return &harness{app: srv.App(), tokens: tokens, sender: sender, users: users, ideas: ideas}
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := h.tokens.Issue(userID, userID)
	require.NoError(t, err)
	return tok
}

// call sends a JSON request and decodes a JSON response into out when set.
func (h *harness) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/health/live", "", nil, nil))

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/health/ready", "", nil, &ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "memory", ready.Checks["storage"])
	assert.Equal(t, "disabled", ready.Checks["redis"])

	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/metrics", "", nil, nil))
}

func TestSwaggerDocs(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var doc struct {
		Swagger  string         `json:"swagger"`
		BasePath string         `json:"basePath"`
		Paths    map[string]any `json:"paths"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/swagger/doc.json", "", nil, &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths, "/feed")
	assert.Contains(t, doc.Paths, "/auth/session")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/feed"},
		{http.MethodGet, "/api/ideas/idea-farm"},
		{http.MethodPost, "/api/ideas/idea-farm/like"},
		{http.MethodGet, "/api/dashboard"},
		{http.MethodPut, "/api/users/me"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			var body models.ErrorResponse
			assert.Equal(t, http.StatusUnauthorized, h.call(t, p.method, p.path, "", nil, &body))
			assert.Equal(t, models.CodeUnauthorized, body.Code)
		})
	}
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var pending service.PendingVerification
	status := h.call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Nina", "email": "nina@ideon.com", "password": "password123", "confirmPassword": "password123",
	}, &pending)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, pending.UserID)

	var dup models.ErrorResponse
	status = h.call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Other", "email": "NINA@ideon.com", "password": "password123", "confirmPassword": "password123",
	}, &dup)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already in use.", dup.Error)

	var blocked map[string]string
	status = h.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "nina", "password": "password123",
	}, &blocked)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, pending.UserID, blocked["userId"])
	assert.Equal(t, "Please verify your email before logging in.", blocked["error"])

	status = h.call(t, http.MethodPost, "/api/auth/verify", "", map[string]string{
		"userId": pending.UserID, "code": "000000x",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var session service.Session
	status = h.call(t, http.MethodPost, "/api/auth/verify", "", map[string]string{
		"userId": pending.UserID, "code": h.sender.code("nina@ideon.com"),
	}, &session)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, session.Token)
	assert.True(t, session.User.EmailVerified)

	var current struct {
		User *models.UserSnapshot `json:"user"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/auth/session", session.Token, nil, &current))
	require.NotNil(t, current.User)
	assert.Equal(t, "Nina", current.User.Name)

	// the stored session never stands in for a token
	var anonymous map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/auth/session", "", nil, &anonymous))
	assert.Nil(t, anonymous["user"])
	assert.NotContains(t, anonymous, "token")

	assert.Equal(t, http.StatusNoContent, h.call(t, http.MethodPost, "/api/auth/logout", session.Token, nil, nil))

	var none map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/auth/session", "", nil, &none))
	assert.Nil(t, none["user"])

	var wrong models.ErrorResponse
	status = h.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "alex", "password": "nope-nope",
	}, &wrong)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email/username or password.", wrong.Error)
}

func TestIdeaRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alex := h.token(t, "u1")

	var created models.Idea
	status := h.call(t, http.MethodPost, "/api/ideas", alex, map[string]any{
		"title":       "Pet Translator",
		"summary":     "Understand your dog",
		"description": "Collar with NLP",
		"tags":        "IoT, Pets, ",
		"lookingFor":  []string{"Hardware Engineer"},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, []string{"IoT", "Pets"}, created.Tags)
	assert.Equal(t, "u1", created.Author.ID)

	var bad models.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/api/ideas", alex, map[string]any{"title": "t"}, &bad))
	assert.Equal(t, models.CodeValidation, bad.Code)

	var detail service.IdeaDetail
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/ideas/idea-farm/open", alex, nil, &detail))
	assert.Equal(t, 1, detail.Views)
	assert.Contains(t, detail.DescriptionHTML, "<strong>hydroponics</strong>")

	var liked models.Idea
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/ideas/idea-farm/like", alex, nil, &liked))
	assert.Equal(t, []string{"u1"}, liked.LikedBy)

	var share service.ShareResult
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/ideas/idea-farm/share", alex, nil, &share))
	assert.Equal(t, "https://ideon.app/idea/idea-farm", share.URL)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/users/u2/share", alex, nil, &share))
	assert.Equal(t, "https://ideon.app/profile/u2", share.URL)

	assert.Equal(t, http.StatusNoContent, h.call(t, http.MethodPost, "/api/ideas/close", alex, nil, nil))

	for _, p := range []string{"/api/ideas/nope/open", "/api/ideas/nope/like", "/api/ideas/nope/share"} {
		assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodPost, p, alex, nil, nil), p)
	}
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, "/api/ideas/nope", alex, nil, nil))

	var enhanced map[string]string
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/ideas/enhance", alex, map[string]string{
		"title": "Pet Translator", "description": "Collar",
	}, &enhanced))
	assert.Equal(t, "Enhanced: Collar", enhanced["description"])

	var dash service.Dashboard
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/dashboard", h.token(t, "u2"), nil, &dash))
	assert.Equal(t, 1, dash.TotalIdeas)
	assert.Equal(t, 1, dash.TotalLikes)
	assert.Equal(t, 1, dash.TotalViews)
	assert.Equal(t, 1, dash.TotalShares)
}

func TestCommentRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alex, maria := h.token(t, "u1"), h.token(t, "u2")
	base := "/api/ideas/idea-farm/comments"

	var top models.Comment
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, base, alex, map[string]string{"text": "Love it"}, &top))

	var reply models.Comment
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, base, maria, map[string]any{"text": "Thanks", "parentId": top.ID}, &reply))
	require.NotNil(t, reply.ParentID)

	var thread service.ThreadView
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, base, alex, nil, &thread))
	assert.Equal(t, 2, thread.Count)
	require.Len(t, thread.Nodes, 1)
	require.Len(t, thread.Nodes[0].Replies, 1)
	assert.Equal(t, reply.ID, thread.Nodes[0].Replies[0].ID)

	assert.Equal(t, http.StatusUnauthorized,
		h.call(t, http.MethodPut, base+"/"+top.ID, maria, map[string]string{"text": "mine now"}, nil))

	var edited models.Comment
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPut, base+"/"+top.ID, alex, map[string]string{"text": "Really love it"}, &edited))
	assert.Equal(t, "Really love it", edited.Text)

	var likedComment models.Comment
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, base+"/"+reply.ID+"/like", alex, nil, &likedComment))
	assert.Equal(t, 1, likedComment.Likes)

	var removal service.CommentRemoval
	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, base+"/"+top.ID, alex, nil, &removal))
	assert.ElementsMatch(t, []string{top.ID, reply.ID}, removal.Removed)

	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodDelete, base+"/"+top.ID, alex, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodPost, "/api/ideas/nope/comments", alex, map[string]string{"text": "hi"}, nil))
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, base, alex, map[string]string{"text": "hi", "parentId": "ghost"}, nil))
}

func TestFeedRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alex := h.token(t, "u1")

	var res service.FeedResult
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/feed?sort=trending", alex, nil, &res))
	assert.Equal(t, feed.SortTrending, res.Sort)
	assert.Len(t, res.Ideas, 1)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/feed?q=zzz", alex, nil, &res))
	assert.Empty(t, res.Ideas)

	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodGet, "/api/feed?scope=everything", alex, nil, nil))

	var typed map[string]string
	require.Equal(t, http.StatusAccepted, h.call(t, http.MethodPut, "/api/feed/query", alex, map[string]string{"query": "nothing-matches"}, &typed))
	assert.Equal(t, "nothing-matches", typed["pending"])

	assert.Eventually(t, func() bool {
		var settled service.FeedResult
		h.call(t, http.MethodGet, "/api/feed", alex, nil, &settled)
		return settled.Query == "nothing-matches" && len(settled.Ideas) == 0
	}, 2*time.Second, 20*time.Millisecond)

	var trending []models.Idea
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/trending", alex, nil, &trending))
	assert.Len(t, trending, 1)

	var flags map[string]bool
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/feature-flags", alex, nil, &flags))
	assert.True(t, flags[featureflags.AIEnhance])
}

func TestUserRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alex := h.token(t, "u1")

	var suggested []models.UserSnapshot
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/users/suggested?n=1", alex, nil, &suggested))
	require.Len(t, suggested, 1)
	assert.NotEqual(t, "u1", suggested[0].ID)

	var profile service.Profile
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/users/u2", alex, nil, &profile))
	assert.Equal(t, "maria", profile.User.Name)
	assert.Len(t, profile.Ideas, 1)
	assert.Equal(t, http.StatusNoContent, h.call(t, http.MethodPost, "/api/users/profile/close", alex, nil, nil))

	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, "/api/users/ghost", alex, nil, nil))

	var ideas []models.Idea
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/users/u2/ideas", alex, nil, &ideas))
	assert.Len(t, ideas, 1)

	var conflict models.ErrorResponse
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPut, "/api/users/me", alex, map[string]string{"name": "Maria"}, &conflict))
	assert.Equal(t, "Username already taken.", conflict.Error)

	var updated models.UserSnapshot
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPut, "/api/users/me", h.token(t, "u2"), map[string]string{"title": "CEO"}, &updated))
	assert.Equal(t, "CEO", updated.Title)

	idea, err := h.ideas.GetByID(context.Background(), "idea-farm")
	require.NoError(t, err)
	assert.Equal(t, "CEO", idea.Author.Title)
}
