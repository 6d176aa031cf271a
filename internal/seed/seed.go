// Package seed provides the starter dataset and demo data generators.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"ideon/internal/models"
)

//go:embed dataset.yml
var datasetYAML []byte

type seedUser struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	AvatarURL string `yaml:"avatarUrl"`
	Title     string `yaml:"title"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Bio       string `yaml:"bio"`
	Password  string `yaml:"password"`
}

type seedComment struct {
	ID      string        `yaml:"id"`
	User    string        `yaml:"user"`
	Parent  string        `yaml:"parent"`
	Text    string        `yaml:"text"`
	Age     time.Duration `yaml:"age"`
	LikedBy []string      `yaml:"likedBy"`
}

type seedIdea struct {
	ID               string        `yaml:"id"`
	Title            string        `yaml:"title"`
	Summary          string        `yaml:"summary"`
	Description      string        `yaml:"description"`
	Market           string        `yaml:"market"`
	Author           string        `yaml:"author"`
	Tags             []string      `yaml:"tags"`
	LikedBy          []string      `yaml:"likedBy"`
	Team             []string      `yaml:"team"`
	LookingFor       []string      `yaml:"lookingFor"`
	ForSale          bool          `yaml:"forSale"`
	Price            *float64      `yaml:"price"`
	Age              time.Duration `yaml:"age"`
	SeekingCoFounder bool          `yaml:"seekingCoFounder"`
	Views            int           `yaml:"views"`
	Shares           int           `yaml:"shares"`
	Comments         []seedComment `yaml:"comments"`
}

type dataset struct {
	Users []seedUser `yaml:"users"`
	Ideas []seedIdea `yaml:"ideas"`
}

// Dataset is the hydrated starter data.
type Dataset struct {
	Users []*models.User
	Ideas []*models.Idea
}

// Load parses the embedded dataset with timestamps relative to now.
func Load(now time.Time) (*Dataset, error) {
	return Parse(datasetYAML, now)
}

// MustLoad is Load for callers that treat a broken embedded file as a bug.
func MustLoad(now time.Time) *Dataset {
	ds, err := Load(now)
	if err != nil {
		panic(err)
	}
	return ds
}

// Parse builds a Dataset from YAML. Author, team and comment user fields
// reference user ids and are resolved into snapshots.
func Parse(raw []byte, now time.Time) (*Dataset, error) {
	var in dataset
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parse seed dataset: %w", err)
	}

	out := &Dataset{}
	byID := make(map[string]*models.User, len(in.Users))
	for _, u := range in.Users {
		user := &models.User{
			ID:            u.ID,
			Name:          u.Name,
			AvatarURL:     u.AvatarURL,
			Title:         u.Title,
			Email:         u.Email,
			Phone:         u.Phone,
			Bio:           u.Bio,
			Password:      u.Password,
			EmailVerified: true,
		}
		byID[u.ID] = user
		out.Users = append(out.Users, user)
	}

	snapshot := func(id string) (models.UserSnapshot, error) {
		u, ok := byID[id]
		if !ok {
			return models.UserSnapshot{}, fmt.Errorf("seed references unknown user %q", id)
		}
		return u.Snapshot(), nil
	}

	for _, si := range in.Ideas {
		author, err := snapshot(si.Author)
		if err != nil {
			return nil, err
		}
		idea := &models.Idea{
			ID:                 si.ID,
			Title:              si.Title,
			Summary:            si.Summary,
			Description:        si.Description,
			Market:             si.Market,
			Author:             author,
			Tags:               nonNil(si.Tags),
			LikedBy:            nonNil(si.LikedBy),
			Likes:              len(si.LikedBy),
			Comments:           []models.Comment{},
			IsForSale:          si.ForSale,
			Price:              si.Price,
			Team:               []models.UserSnapshot{},
			LookingFor:         nonNil(si.LookingFor),
			CreatedAt:          models.MillisOf(now.Add(-si.Age)),
			IsSeekingCoFounder: si.SeekingCoFounder,
			Views:              si.Views,
			Shares:             si.Shares,
		}
		for _, memberID := range si.Team {
			member, err := snapshot(memberID)
			if err != nil {
				return nil, err
			}
			idea.Team = append(idea.Team, member)
		}
		for _, sc := range si.Comments {
			user, err := snapshot(sc.User)
			if err != nil {
				return nil, err
			}
			c := models.Comment{
				ID:        sc.ID,
				User:      user,
				Text:      sc.Text,
				CreatedAt: models.MillisOf(now.Add(-sc.Age)),
				LikedBy:   nonNil(sc.LikedBy),
				Likes:     len(sc.LikedBy),
			}
			if sc.Parent != "" {
				parent := sc.Parent
				c.ParentID = &parent
			}
			idea.Comments = append(idea.Comments, c)
		}
		out.Ideas = append(out.Ideas, idea)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
