package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Content limits.
const (
	MaxTitleLength       = 120
	MaxSummaryLength     = 300
	MaxDescriptionLength = 10000
	MaxMarketLength      = 1000
	MaxCommentLength     = 2000
	MaxTags              = 12
	MaxBioLength         = 500
	MaxTitleFieldLength  = 80
)

// ValidateCommentText requires non-blank text within the length limit.
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return fmt.Errorf("comment must not exceed %d characters", MaxCommentLength)
	}
	return nil
}

// ValidateIdeaFields checks the required and bounded fields of an idea draft.
func ValidateIdeaFields(title, summary, description, market string, tags []string, price *float64, forSale bool) error {
	if err := required("title", title, MaxTitleLength); err != nil {
		return err
	}
	if err := required("summary", summary, MaxSummaryLength); err != nil {
		return err
	}
	if err := required("description", description, MaxDescriptionLength); err != nil {
		return err
	}
	if utf8.RuneCountInString(market) > MaxMarketLength {
		return fmt.Errorf("market must not exceed %d characters", MaxMarketLength)
	}
	if len(tags) > MaxTags {
		return fmt.Errorf("an idea can have at most %d tags", MaxTags)
	}
	if forSale && price != nil && *price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return nil
}

// ValidateProfileText checks the free-text profile fields.
func ValidateProfileText(title, bio string) error {
	if utf8.RuneCountInString(title) > MaxTitleFieldLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleFieldLength)
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	return nil
}

// SplitList turns "a, b,, c" into [a b c].
func SplitList(raw string) []string {
	return CleanList(strings.Split(raw, ","))
}

// CleanList trims entries and drops empty ones.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func required(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return nil
}
