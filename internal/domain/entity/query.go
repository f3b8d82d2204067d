package entity

import (
	"sort"
	"strings"
	"time"
)

// Helpers for stores that filter and order in process rather than in the database.

// MatchesSearch reports whether search occurs, case-insensitively, in the
// title, description or last message preview.
func (c *Chat) MatchesSearch(search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), needle) ||
		strings.Contains(strings.ToLower(c.Description), needle) {
		return true
	}
	return c.LastMessage != nil && strings.Contains(strings.ToLower(c.LastMessage.Content), needle)
}

// VisibleMessages returns the non-deleted messages created strictly between
// after and before (either may be nil), newest first.
func (c *Chat) VisibleMessages(before, after *time.Time) []Message {
	var matched []Message
	for _, m := range c.Messages {
		if m.IsDeleted {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		matched = append(matched, m)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})
	return matched
}

// SortByActivity orders summaries by last activity, most recent first.
func SortByActivity(rows []ChatSummary) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].LastActivity.Equal(rows[j].LastActivity) {
			return rows[i].LastActivity.After(rows[j].LastActivity)
		}
		return rows[i].ID.Hex() > rows[j].ID.Hex()
	})
}

func (p *Product) MatchesSearch(search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// SortNewest orders products by creation time, newest first.
func SortNewest(products []*Product) {
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID.Hex() > products[j].ID.Hex()
	})
}

// PageBounds clamps [offset, offset+limit) to a slice of length total.
// A non-positive limit selects everything from offset.
func PageBounds(total, offset, limit int) (int, int) {
	if offset > total {
		offset = total
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return offset, end
}
