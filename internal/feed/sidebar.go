package feed

import (
	"math/rand"
	"sort"

	"ideon/internal/models"
)

// SidebarLimit is how many entries the trending sidebar shows.
const SidebarLimit = 5

// SidebarScore is the lighter engagement score used by the sidebar:
// likes + 2*comments.
func SidebarScore(idea *models.Idea) int {
	return idea.Likes + 2*len(idea.Comments)
}

// SidebarTrending returns up to limit ideas ordered by SidebarScore.
func SidebarTrending(ideas []*models.Idea, limit int) []*models.Idea {
	sorted := make([]*models.Idea, len(ideas))
	copy(sorted, ideas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return SidebarScore(sorted[i]) > SidebarScore(sorted[j])
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// SuggestUsers picks up to limit users other than viewerID in random order.
func SuggestUsers(users []*models.User, viewerID string, limit int, rng *rand.Rand) []*models.User {
	others := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != viewerID {
			others = append(others, u)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	if len(others) > limit {
		others = others[:limit]
	}
	return others
}
