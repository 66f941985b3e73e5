package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortMode selects how a list is presented. It never changes stored order.
type SortMode string

const (
	SortRecent SortMode = "recent" // most recently updated first
	SortTitle  SortMode = "title"  // case-insensitive title ascending
)

// ParseSortMode maps user input to a SortMode, falling back to SortRecent.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortTitle:
		return SortTitle
	default:
		return SortRecent
	}
}

// ItemPatch carries the fields a caller wants to change. Nil means untouched.
type ItemPatch struct {
	Title *string `json:"title,omitempty"`
	Link  *string `json:"link,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// IndexedItem pairs an item with its position in the stored list so that a
// sorted view can still address the original entry.
type IndexedItem struct {
	Index int `json:"index"`
	Item
}

// DraftList is the mutable, session-scoped list a user edits before publishing.
type DraftList struct {
	Items []Item `json:"items"`
}

// Len returns the number of items.
func (l *DraftList) Len() int { return len(l.Items) }

// AddBlankItem appends an empty item stamped with now and returns its index.
func (l *DraftList) AddBlankItem(now time.Time) int {
	l.Items = append(l.Items, Item{UpdatedAt: now})
	return len(l.Items) - 1
}

// UpdateItem applies patch to the item at index. The timestamp is refreshed
// only when at least one field actually changed.
func (l *DraftList) UpdateItem(index int, patch ItemPatch, now time.Time) (bool, error) {
	if err := l.checkIndex(index); err != nil {
		return false, err
	}

	item := &l.Items[index]
	changed := false
	if patch.Title != nil && *patch.Title != item.Title {
		item.Title = *patch.Title
		changed = true
	}
	if patch.Link != nil {
		if link := NormalizeLink(*patch.Link); link != item.Link {
			item.Link = link
			changed = true
		}
	}
	if patch.Note != nil && *patch.Note != item.Note {
		item.Note = *patch.Note
		changed = true
	}
	if changed {
		item.UpdatedAt = now
	}
	return changed, nil
}

// RemoveItem deletes the item at index, keeping the order of the rest.
func (l *DraftList) RemoveItem(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.Items = append(l.Items[:index], l.Items[index+1:]...)
	return nil
}

// Sorted returns a view of the list in the requested order.
func (l *DraftList) Sorted(mode SortMode) []IndexedItem {
	return SortItems(l.Items, mode)
}

// ImportFrom appends every item whose title is not already present and
// returns how many were added. Titles match exactly, so importing the same
// source twice adds nothing the second time.
func (l *DraftList) ImportFrom(items []Item, now time.Time) int {
	seen := make(map[string]struct{}, len(l.Items)+len(items))
	for _, it := range l.Items {
		seen[it.Title] = struct{}{}
	}

	added := 0
	for _, it := range items {
		if _, dup := seen[it.Title]; dup {
			continue
		}
		seen[it.Title] = struct{}{}
		l.Items = append(l.Items, Item{
			Title:     it.Title,
			Link:      NormalizeLink(it.Link),
			Note:      it.Note,
			UpdatedAt: now,
		})
		added++
	}
	return added
}

// Snapshot returns a copy of the items with links normalized and missing
// timestamps filled, ready to be persisted.
func (l *DraftList) Snapshot(now time.Time) []Item {
	return NormalizeItems(l.Items, now)
}

func (l *DraftList) checkIndex(index int) error {
	if index < 0 || index >= len(l.Items) {
		return fmt.Errorf("%w: %d (len %d)", ErrItemIndex, index, len(l.Items))
	}
	return nil
}

// SortItems returns items in display order. Ties keep stored order.
func SortItems(items []Item, mode SortMode) []IndexedItem {
	out := make([]IndexedItem, len(items))
	for i, it := range items {
		out[i] = IndexedItem{Index: i, Item: it}
	}

	switch mode {
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}
	return out
}

// NormalizeItems copies items, normalizing links and stamping zero timestamps with now.
func NormalizeItems(items []Item, now time.Time) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.Link = NormalizeLink(it.Link)
		if it.UpdatedAt.IsZero() {
			it.UpdatedAt = now
		}
		out[i] = it
	}
	return out
}

// MergeItemEdits prepares a full rewrite of a published list. Items that are
// unchanged compared to the same position in previous keep their timestamp;
// the others are stamped with now.
func MergeItemEdits(previous, edited []Item, now time.Time) []Item {
	out := make([]Item, len(edited))
	for i, it := range edited {
		it.Link = NormalizeLink(it.Link)
		if i < len(previous) && sameContent(previous[i], it) && !previous[i].UpdatedAt.IsZero() {
			it.UpdatedAt = previous[i].UpdatedAt
		} else {
			it.UpdatedAt = now
		}
		out[i] = it
	}
	return out
}

func sameContent(a, b Item) bool {
	return a.Title == b.Title && a.Link == b.Link && a.Note == b.Note
}
