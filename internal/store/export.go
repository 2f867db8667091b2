package store

import (
	"context"
	"strings"

	"github.com/v78582514-blip/notes-app-clean/internal/textutil"
)

// GroupExport is the interchange shape for a group and its members.
type GroupExport struct {
	Group Group  `json:"group"`
	Notes []Note `json:"notes"`
}

func (s *Store) ExportNote(id string) (Note, error) {
	return s.Note(id)
}

func (s *Store) ExportGroup(id string) (GroupExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gi := s.groupIndex(id)
	if gi < 0 {
		return GroupExport{}, ErrNotFound
	}
	return GroupExport{
		Group: s.groups[gi],
		Notes: s.notesInGroupLocked(id),
	}, nil
}

// ImportNote adds a copy of an exported note under a fresh identifier.
// The imported note arrives standalone regardless of the membership
// recorded in the export.
func (s *Store) ImportNote(ctx context.Context, n Note) Note {
	return s.AddNote(ctx, NewNote{
		Title:    n.Title,
		Text:     n.Text,
		Color:    n.Color,
		Numbered: n.Numbered,
	})
}

// ImportGroup recreates an exported group with fresh identifiers for
// the group and every note. Passwords never survive an import: the
// group arrives public even if the export was of a private group.
func (s *Store) ImportGroup(ctx context.Context, exp GroupExport) Group {
	s.mu.Lock()
	g := s.newGroupLocked(exp.Group.Title)
	now := s.now()
	for _, n := range exp.Notes {
		text := n.Text
		if n.Numbered {
			text = textutil.Renumber(text)
		}
		imported := Note{
			ID:        s.newID(),
			Title:     n.Title,
			Text:      text,
			Color:     n.Color,
			GroupID:   g.ID,
			Numbered:  n.Numbered,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.notes = append(s.notes, imported)
	}
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "created", Kind: "group", ID: g.ID})
	return g
}

// ShareNote renders a note as plain text for the host share surface.
func (s *Store) ShareNote(id string) (string, error) {
	n, err := s.Note(id)
	if err != nil {
		return "", err
	}
	return renderNote(n), nil
}

// ShareGroup renders a group title followed by every member note,
// separated by blank lines.
func (s *Store) ShareGroup(id string) (string, error) {
	s.mu.Lock()
	gi := s.groupIndex(id)
	if gi < 0 {
		s.mu.Unlock()
		return "", ErrNotFound
	}
	g := s.groups[gi]
	members := s.notesInGroupLocked(id)
	s.mu.Unlock()

	parts := make([]string, 0, len(members)+1)
	parts = append(parts, g.Title)
	for _, n := range members {
		parts = append(parts, renderNote(n))
	}
	return strings.Join(parts, "\n\n"), nil
}

func renderNote(n Note) string {
	title := n.DisplayTitle()
	if n.Title == "" || title == n.Text {
		return n.Text
	}
	return title + "\n" + n.Text
}
