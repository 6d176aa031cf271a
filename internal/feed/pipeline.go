// Package feed turns the idea collection into an ordered, filtered feed.
package feed

import (
	"fmt"
	"sort"
	"strings"

	"ideon/internal/models"
)

// Scope selects the base subset of the collection.
type Scope string

const (
	ScopeAll              Scope = "all"
	ScopeSeekingCoFounder Scope = "seeking-cofounder"
	ScopeMine             Scope = "mine"
	ScopeLiked            Scope = "liked"
)

// SortKey orders the filtered feed.
type SortKey string

const (
	SortAll        SortKey = "all"
	SortNew        SortKey = "new"
	SortTrending   SortKey = "trending"
	SortMostLiked  SortKey = "most-liked"
	SortMostShared SortKey = "most-shared"
)

// ParseScope validates a scope name. The empty string means ScopeAll.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeSeekingCoFounder, ScopeMine, ScopeLiked:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// ParseSort validates a sort key. The empty string means SortAll.
func ParseSort(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortAll:
		return SortAll, nil
	case SortNew, SortTrending, SortMostLiked, SortMostShared:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Query is one feed evaluation request.
type Query struct {
	Scope  Scope
	Search string
	Sort   SortKey
	// ViewerID is the current user; empty when nobody is logged in.
	ViewerID string
}

// TrendingScore weighs engagement: likes + 2*comments + 3*shares + views/10.
func TrendingScore(idea *models.Idea) float64 {
	return float64(idea.Likes) +
		float64(2*len(idea.Comments)) +
		float64(3*idea.Shares) +
		float64(idea.Views)/10
}

// Run applies scope, search and sort to ideas. The input slice and the ideas
// it points to are never modified.
func Run(ideas []*models.Idea, q Query) []*models.Idea {
	scoped := ApplyScope(ideas, q.Scope, q.ViewerID)
	filtered := ApplySearch(scoped, q.Search)
	return ApplySort(filtered, q.Sort)
}

// ApplyScope selects the base subset. Viewer-relative scopes are empty when
// viewerID is empty.
func ApplyScope(ideas []*models.Idea, scope Scope, viewerID string) []*models.Idea {
	var keep func(*models.Idea) bool
	switch scope {
	case ScopeSeekingCoFounder:
		keep = func(i *models.Idea) bool { return i.IsSeekingCoFounder }
	case ScopeMine:
		if viewerID == "" {
			return []*models.Idea{}
		}
		keep = func(i *models.Idea) bool { return i.Author.ID == viewerID }
	case ScopeLiked:
		if viewerID == "" {
			return []*models.Idea{}
		}
		keep = func(i *models.Idea) bool { return contains(i.LikedBy, viewerID) }
	default:
		keep = func(*models.Idea) bool { return true }
	}

	out := make([]*models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if keep(idea) {
			out = append(out, idea)
		}
	}
	return out
}

// ApplySearch keeps ideas whose title, summary, author name or any tag
// contains the trimmed query, ignoring case. An empty query keeps everything.
func ApplySearch(ideas []*models.Idea, search string) []*models.Idea {
	query := NormalizeQuery(search)
	out := make([]*models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if query == "" || Matches(idea, query) {
			out = append(out, idea)
		}
	}
	return out
}

// NormalizeQuery trims and lower-cases a raw search string.
func NormalizeQuery(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}

// Matches reports whether an already normalized query hits idea.
func Matches(idea *models.Idea, query string) bool {
	if strings.Contains(strings.ToLower(idea.Title), query) ||
		strings.Contains(strings.ToLower(idea.Summary), query) ||
		strings.Contains(strings.ToLower(idea.Author.Name), query) {
		return true
	}
	for _, tag := range idea.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// ApplySort returns a sorted copy. Every ordering is stable so equal keys
// keep collection order.
func ApplySort(ideas []*models.Idea, key SortKey) []*models.Idea {
	sorted := make([]*models.Idea, len(ideas))
	copy(sorted, ideas)

	var less func(a, b *models.Idea) bool
	switch key {
	case SortTrending:
		less = func(a, b *models.Idea) bool { return TrendingScore(a) > TrendingScore(b) }
	case SortMostLiked:
		less = func(a, b *models.Idea) bool { return a.Likes > b.Likes }
	case SortMostShared:
		less = func(a, b *models.Idea) bool { return a.Shares > b.Shares }
	default:
		less = func(a, b *models.Idea) bool { return a.CreatedAt > b.CreatedAt }
	}

	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
