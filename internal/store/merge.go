package store

import (
	"context"
	"errors"
)

var ErrSelfLink = errors.New("cannot link a note with itself")

// LinkNotes records a note being dropped onto another note. srcID is
// the dragged note, dstID the drop destination. It returns the group
// the two notes end up in.
//
// When both notes already belong to different groups the destination
// group wins: every member of the source group moves over and the
// emptied source group is deleted.
func (s *Store) LinkNotes(ctx context.Context, srcID, dstID string) (Group, error) {
	if srcID == dstID {
		return Group{}, ErrSelfLink
	}

	s.mu.Lock()
	si := s.noteIndex(srcID)
	di := s.noteIndex(dstID)
	if si < 0 || di < 0 {
		s.mu.Unlock()
		return Group{}, ErrNotFound
	}
	src, dst := s.notes[si], s.notes[di]
	now := s.now()

	var g Group
	switch {
	case src.GroupID != "" && src.GroupID == dst.GroupID:
		// Already grouped together: nothing to mutate.
		gi := s.groupIndex(src.GroupID)
		if gi < 0 {
			s.mu.Unlock()
			return Group{}, ErrNotFound
		}
		g = s.groups[gi]
		s.mu.Unlock()
		return g, nil

	case src.GroupID == "" && dst.GroupID == "":
		g = s.newGroupLocked("")
		s.notes[si].GroupID = g.ID
		s.notes[si].UpdatedAt = now
		s.notes[di].GroupID = g.ID
		s.notes[di].UpdatedAt = now

	case src.GroupID != "" && dst.GroupID != "":
		// Merge: destination group absorbs the source group. The
		// source group is removed directly, not via DeleteGroup, so
		// the cascade cannot touch the already-moved notes.
		if s.groupIndex(dst.GroupID) < 0 {
			s.mu.Unlock()
			return Group{}, ErrNotFound
		}
		oldID := src.GroupID
		for i := range s.notes {
			if s.notes[i].GroupID == oldID {
				s.notes[i].GroupID = dst.GroupID
				s.notes[i].UpdatedAt = now
			}
		}
		if oi := s.groupIndex(oldID); oi >= 0 {
			s.groups = append(s.groups[:oi], s.groups[oi+1:]...)
		}
		gi := s.groupIndex(dst.GroupID)
		s.groups[gi].UpdatedAt = now
		g = s.groups[gi]

	default:
		// Exactly one side is grouped; the other joins it.
		id := src.GroupID
		joinIdx := di
		if id == "" {
			id = dst.GroupID
			joinIdx = si
		}
		gi := s.groupIndex(id)
		if gi < 0 {
			s.mu.Unlock()
			return Group{}, ErrNotFound
		}
		s.notes[joinIdx].GroupID = id
		s.notes[joinIdx].UpdatedAt = now
		s.groups[gi].UpdatedAt = now
		g = s.groups[gi]
	}

	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "linked", Kind: "group", ID: g.ID})
	return g, nil
}

// AddToGroup puts the note into the group, replacing any previous
// membership.
func (s *Store) AddToGroup(ctx context.Context, noteID, groupID string) error {
	s.mu.Lock()
	ni := s.noteIndex(noteID)
	gi := s.groupIndex(groupID)
	if ni < 0 || gi < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	now := s.now()
	s.notes[ni].GroupID = groupID
	s.notes[ni].UpdatedAt = now
	s.groups[gi].UpdatedAt = now
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "linked", Kind: "group", ID: groupID})
	return nil
}

// RemoveFromGroup makes the note standalone again. Removing an
// already-standalone note is a no-op.
func (s *Store) RemoveFromGroup(ctx context.Context, noteID string) error {
	s.mu.Lock()
	ni := s.noteIndex(noteID)
	if ni < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	oldID := s.notes[ni].GroupID
	if oldID == "" {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	s.notes[ni].GroupID = ""
	s.notes[ni].UpdatedAt = now
	if gi := s.groupIndex(oldID); gi >= 0 {
		s.groups[gi].UpdatedAt = now
	}
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "updated", Kind: "note", ID: noteID})
	return nil
}
