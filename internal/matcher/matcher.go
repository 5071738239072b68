// Package matcher maps free text onto a habit from the active list.
package matcher

import (
	"strings"

	"github.com/gosimple/slug"
	"github.com/sahilm/fuzzy"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

type habitSource []models.Habit

func (h habitSource) String(i int) string { return h[i].Name }
func (h habitSource) Len() int            { return len(h) }

// Match returns the habit whose name best matches text. Exact name and slug
// matches win outright; otherwise the top fuzzy match is used. An empty
// result is a ReasonNoMatch ValidationError.
func Match(text string, habits []models.Habit) (models.Habit, error) {
	text = strings.TrimSpace(text)
	noMatch := &apperrors.ValidationError{Reason: apperrors.ReasonNoMatch, Entity: "habit", ID: text}
	if text == "" || len(habits) == 0 {
		return models.Habit{}, noMatch
	}

	wantSlug := slug.Make(text)
	for _, h := range habits {
		if strings.EqualFold(h.Name, text) || h.Slug == wantSlug {
			return h, nil
		}
	}

	matches := fuzzy.FindFrom(text, habitSource(habits))
	if len(matches) == 0 {
		return models.Habit{}, noMatch
	}
	return habits[matches[0].Index], nil
}

// Rank returns every habit matching text, best first.
func Rank(text string, habits []models.Habit) []models.Habit {
	matches := fuzzy.FindFrom(strings.TrimSpace(text), habitSource(habits))
	out := make([]models.Habit, 0, len(matches))
	for _, m := range matches {
		out = append(out, habits[m.Index])
	}
	return out
}
