package filter

import (
	"sort"
	"strings"

	"github.com/support-console/backend/internal/storage/models"
)

// Criteria narrows the ticket list. Empty fields do not constrain.
type Criteria struct {
	Search   string `json:"search"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Categorical drops the text predicate.
func (c Criteria) Categorical() Criteria {
	c.Search = ""
	return c
}

// MatchesText reports whether query is a case-insensitive substring of
// the title, the description or the raw tag string.
func MatchesText(t models.Ticket, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.TagString()), q)
}

func (c Criteria) Matches(t models.Ticket) bool {
	if c.Status != "" && t.StatusName != c.Status {
		return false
	}
	if c.Priority != "" && t.PriorityName != c.Priority {
		return false
	}
	if c.Category != "" && t.CategoryName != c.Category {
		return false
	}
	return MatchesText(t, c.Search)
}

// Apply returns the tickets satisfying every active predicate in their
// original order. The result is always a fresh slice.
func Apply(tickets []models.Ticket, c Criteria) []models.Ticket {
	out := make([]models.Ticket, 0, len(tickets))
	if c.IsZero() {
		return append(out, tickets...)
	}
	for _, t := range tickets {
		if c.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Facets are the distinct categorical values present in a collection.
type Facets struct {
	Statuses   []string `json:"statuses"`
	Priorities []string `json:"priorities"`
	Categories []string `json:"categories"`
}

func Distinct(tickets []models.Ticket) Facets {
	statuses := map[string]struct{}{}
	priorities := map[string]struct{}{}
	categories := map[string]struct{}{}
	for _, t := range tickets {
		statuses[t.StatusName] = struct{}{}
		priorities[t.PriorityName] = struct{}{}
		categories[t.CategoryName] = struct{}{}
	}
	return Facets{
		Statuses:   sortedKeys(statuses),
		Priorities: sortedKeys(priorities),
		Categories: sortedKeys(categories),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
