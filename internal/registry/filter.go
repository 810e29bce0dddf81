package registry

import (
	"slices"
	"strings"

	"github.com/rbxmgr/rbxmgr/internal/models"
)

// Query narrows and orders the account list. Zero values mean "no
// filtering" and the sort preference from settings.
type Query struct {
	// Search matches username, alias and description, case-insensitively.
	Search string
	// Group keeps only accounts of that group.
	Group string
	// SortBy is one of username, alias, group, lastUse, status. Empty
	// falls back to the persisted setting.
	SortBy string
	// SortOrder is asc or desc. Empty falls back to the persisted setting.
	SortOrder string
}

// GetFiltered returns a filtered, sorted snapshot of the collection. The
// sort is stable so ties keep their relative order across re-queries.
func (r *Registry) GetFiltered(q Query) []*models.Account {
	r.mu.Lock()
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = r.settings.SortBy
	}
	sortOrder := q.SortOrder
	if sortOrder == "" {
		sortOrder = r.settings.SortOrder
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]*models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		if q.Group != "" && a.Group != q.Group {
			continue
		}
		if search != "" && !matches(a, search) {
			continue
		}
		out = append(out, a)
	}
	r.mu.Unlock()

	cmp := compareBy(sortBy)
	if sortOrder == "desc" {
		asc := cmp
		// Flip the comparator, not the slice: ties keep insertion order.
		cmp = func(a, b *models.Account) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func matches(a *models.Account, search string) bool {
	return strings.Contains(strings.ToLower(a.Username), search) ||
		strings.Contains(strings.ToLower(a.Alias), search) ||
		strings.Contains(strings.ToLower(a.Description), search)
}

// compareBy returns the ascending comparison for a sort key. lastUse and
// status invert their natural direction so that "asc" reads as
// most-recently-used first and valid-accounts first, matching how the
// list is actually browsed.
func compareBy(sortBy string) func(a, b *models.Account) int {
	switch sortBy {
	case "alias":
		return func(a, b *models.Account) int {
			return strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName()))
		}
	case "group":
		return func(a, b *models.Account) int {
			return a.Compare(b)
		}
	case "lastUse":
		return func(a, b *models.Account) int {
			switch {
			case a.LastUse == nil && b.LastUse == nil:
				return 0
			case a.LastUse == nil:
				return 1
			case b.LastUse == nil:
				return -1
			}
			return b.LastUse.Compare(*a.LastUse)
		}
	case "status":
		return func(a, b *models.Account) int {
			return statusRank(a) - statusRank(b)
		}
	default: // username
		return func(a, b *models.Account) int {
			return strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
		}
	}
}

func statusRank(a *models.Account) int {
	switch a.Valid {
	case models.ValidityValid:
		return 0
	case models.ValidityUnknown:
		return 1
	default:
		return 2
	}
}
