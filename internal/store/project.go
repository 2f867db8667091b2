package store

import (
	"sort"
	"strings"
)

// GridItem is the display projection of either a group or a standalone
// note.
type GridItem struct {
	Kind  string `json:"kind"` // "group" or "note"
	Group *Group `json:"group,omitempty"`
	Note  *Note  `json:"note,omitempty"`
}

// Grid projects the visible list for a query: matching groups sorted by
// recency, then matching standalone notes sorted by recency. Groups
// always precede standalone notes; the two tiers are never interleaved.
// Matching is a case-insensitive substring test. The projection holds
// no state and is recomputed on every call.
func (s *Store) Grid(query string) []GridItem {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	var groupItems, noteItems []GridItem
	for i := range s.groups {
		g := s.groups[i]
		if s.groupMatchesLocked(g, q) {
			groupItems = append(groupItems, GridItem{Kind: "group", Group: &g})
		}
	}
	for i := range s.notes {
		n := s.notes[i]
		if n.GroupID == "" && (q == "" || noteMatches(n, q)) {
			noteItems = append(noteItems, GridItem{Kind: "note", Note: &n})
		}
	}

	sort.SliceStable(groupItems, func(i, j int) bool {
		return groupItems[i].Group.UpdatedAt.After(groupItems[j].Group.UpdatedAt)
	})
	sort.SliceStable(noteItems, func(i, j int) bool {
		return noteItems[i].Note.UpdatedAt.After(noteItems[j].Note.UpdatedAt)
	})

	out := make([]GridItem, 0, len(groupItems)+len(noteItems))
	out = append(out, groupItems...)
	return append(out, noteItems...)
}

// groupMatchesLocked: with an empty query every group is shown; with a
// query, a group matches on its own title or on any member note.
func (s *Store) groupMatchesLocked(g Group, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(g.Title), q) {
		return true
	}
	for _, n := range s.notes {
		if n.GroupID == g.ID && noteMatches(n, q) {
			return true
		}
	}
	return false
}

func noteMatches(n Note, q string) bool {
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Text), q)
}
