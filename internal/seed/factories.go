package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"ideon/internal/models"
)

var demoTags = []string{
	"AI", "HealthTech", "FinTech", "EdTech", "SaaS", "Mobile App", "Marketplace",
	"Climate", "Logistics", "Web3", "Developer Tools", "Consumer", "B2B",
}

var demoRoles = []string{
	"CTO", "Growth Marketer", "Product Designer", "Data Scientist",
	"Backend Engineer", "Sales Lead", "Community Manager",
}

// Factory generates demo users, ideas and comments. It never persists.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
	now     func() time.Time
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 30
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays, now: time.Now}
}

// User builds a verified demo user. Its password is "password123" in the
// legacy stored format.
func (f *Factory) User() *models.User {
	id := "u-" + uuid.NewString()
	first, last := f.faker.FirstName(), f.faker.LastName()
	return &models.User{
		ID:            id,
		Name:          first + " " + last,
		AvatarURL:     fmt.Sprintf("https://picsum.photos/seed/%s/100/100", id),
		Title:         f.faker.JobTitle(),
		Email:         strings.ToLower(fmt.Sprintf("%s.%s@%s", first, last, f.faker.DomainName())),
		Phone:         f.faker.Phone(),
		Bio:           f.faker.Sentence(14),
		Password:      "hashed_321drowssap",
		EmailVerified: true,
	}
}

// Idea builds an idea authored by author with a realistic age and
// engagement counters.
func (f *Factory) Idea(author *models.User) *models.Idea {
	product := f.faker.AppName()
	idea := &models.Idea{
		ID:                 "idea-" + uuid.NewString(),
		Title:              fmt.Sprintf("%s: %s", product, f.faker.BuzzWord()),
		Summary:            f.faker.Sentence(18),
		Description:        f.faker.Paragraph(2, 3, 12, "\n\n"),
		Market:             f.faker.Sentence(10),
		Author:             author.Snapshot(),
		Tags:               f.pick(demoTags, 1+f.faker.Number(0, 3)),
		LikedBy:            []string{},
		Comments:           []models.Comment{},
		Team:               []models.UserSnapshot{author.Snapshot()},
		LookingFor:         f.pick(demoRoles, f.faker.Number(0, 3)),
		CreatedAt:          models.MillisOf(f.pastTime()),
		IsSeekingCoFounder: f.faker.Bool(),
		Views:              f.faker.Number(0, 400),
		Shares:             f.faker.Number(0, 60),
	}
	if f.faker.Number(0, 4) == 0 {
		price := float64(f.faker.Number(5, 200) * 1000)
		idea.IsForSale = true
		idea.Price = &price
	}
	return idea
}

// Comment builds a comment by user on an idea created at ideaCreated.
func (f *Factory) Comment(user *models.User, parentID *string, ideaCreated models.Millis) models.Comment {
	created := ideaCreated.Time().Add(time.Duration(f.faker.Number(1, 48*60)) * time.Minute)
	if now := f.now(); created.After(now) {
		created = now
	}
	return models.Comment{
		ID:        "c-" + uuid.NewString(),
		User:      user.Snapshot(),
		Text:      f.faker.Sentence(f.faker.Number(6, 20)),
		CreatedAt: models.MillisOf(created),
		LikedBy:   []string{},
		ParentID:  parentID,
	}
}

// Like adds likers to idea, keeping likes equal to len(likedBy).
func (f *Factory) Like(idea *models.Idea, users []*models.User) {
	for _, u := range users {
		if u.ID == idea.Author.ID || f.faker.Number(0, 2) != 0 {
			continue
		}
		idea.LikedBy = append(idea.LikedBy, u.ID)
	}
	idea.Likes = len(idea.LikedBy)
}

// Populate generates n ideas spread over users, each with a short thread.
func (f *Factory) Populate(users []*models.User, n int) []*models.Idea {
	if len(users) == 0 {
		return nil
	}
	ideas := make([]*models.Idea, 0, n)
	for i := 0; i < n; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		idea := f.Idea(author)
		f.Like(idea, users)

		var last *string
		for j := f.faker.Number(0, 4); j > 0; j-- {
			commenter := users[f.faker.Number(0, len(users)-1)]
			var parent *string
			if last != nil && f.faker.Bool() {
				parent = last
			}
			c := f.Comment(commenter, parent, idea.CreatedAt)
			if parent != nil && c.CreatedAt < idea.Comments[len(idea.Comments)-1].CreatedAt {
				c.CreatedAt = idea.Comments[len(idea.Comments)-1].CreatedAt + 1
			}
			idea.Comments = append(idea.Comments, c)
			id := c.ID
			last = &id
		}
		ideas = append(ideas, idea)
	}
	return ideas
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-back)
}

func (f *Factory) pick(from []string, n int) []string {
	if n > len(from) {
		n = len(from)
	}
	shuffled := append([]string(nil), from...)
	f.faker.ShuffleStrings(shuffled)
	return shuffled[:n]
}
