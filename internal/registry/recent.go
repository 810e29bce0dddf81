package registry

import (
	"context"
	"time"
)

// RecentItem is a lightweight record of a recently launched resource,
// kept most-recent-first and capped at Settings.MaxRecentItems.
type RecentItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PlayCount  int       `json:"playCount"`
	LastPlayed time.Time `json:"lastPlayed"`
}

// RecentItems returns a copy of the recent list, most recent first.
func (r *Registry) RecentItems() []RecentItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecentItem, len(r.recent))
	copy(out, r.recent)
	return out
}

// AddRecent records a launch of the given resource, bumping it to the
// front and trimming to capacity.
func (r *Registry) AddRecent(ctx context.Context, id, name string) {
	r.mu.Lock()

	item := RecentItem{ID: id, Name: name, PlayCount: 1, LastPlayed: time.Now().UTC()}
	for i, existing := range r.recent {
		if existing.ID == id {
			item.PlayCount = existing.PlayCount + 1
			if item.Name == "" {
				item.Name = existing.Name
			}
			r.recent = append(r.recent[:i], r.recent[i+1:]...)
			break
		}
	}

	r.recent = append([]RecentItem{item}, r.recent...)
	if max := r.settings.MaxRecentItems; len(r.recent) > max {
		r.recent = r.recent[:max]
	}

	err := r.store.Set(ctx, keyRecent, r.recent)
	r.mu.Unlock()

	if err != nil {
		r.log.Error(ctx, "failed to persist recent items", "error", err)
	}
}
