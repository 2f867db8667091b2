// Package store holds the in-memory note and group collections and
// keeps them persisted as one JSON document in a key-value store.
// All mutations are synchronous: the collections are updated, the full
// state is written through, and subscribers are notified.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/v78582514-blip/notes-app-clean/internal/kv"
	"github.com/v78582514-blip/notes-app-clean/internal/textutil"
)

// StateKey is the single key the whole state lives under.
const StateKey = "notes/state"

var ErrNotFound = errors.New("not found")

// Event is the change signal emitted after every successful mutation.
type Event struct {
	Op   string `json:"op"`   // created, updated, deleted, linked, loaded
	Kind string `json:"kind"` // note, group, state
	ID   string `json:"id,omitempty"`
}

type Store struct {
	kv  kv.Store
	log zerolog.Logger

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	notes   []Note
	groups  []Group
	saveErr string
	loadErr string

	subMu sync.RWMutex
	subs  []func(Event)
}

func New(kvs kv.Store, log zerolog.Logger) *Store {
	return &Store{
		kv:     kvs,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		notes:  []Note{},
		groups: []Group{},
	}
}

// Subscribe registers a callback invoked after every successful
// mutation, outside the store lock. Callbacks must not block.
func (s *Store) Subscribe(fn func(Event)) {
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

func (s *Store) emit(ev Event) {
	s.subMu.RLock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Load replaces the in-memory state with the persisted document. A
// missing key is a fresh install, not an error. A corrupt or
// unknown-version blob leaves the collections empty and records the
// failure; callers retry by calling Load again.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	blob, err := s.kv.Get(ctx, StateKey)
	if errors.Is(err, kv.ErrNotFound) {
		s.notes, s.groups = []Note{}, []Group{}
		s.loadErr = ""
		s.mu.Unlock()
		s.emit(Event{Op: "loaded", Kind: "state"})
		return nil
	}
	if err == nil {
		var st persistedState
		st, err = decodeState([]byte(blob))
		if err == nil {
			s.notes, s.groups = st.Notes, st.Groups
			s.loadErr = ""
			s.mu.Unlock()
			s.emit(Event{Op: "loaded", Kind: "state"})
			return nil
		}
	}
	s.notes, s.groups = []Note{}, []Group{}
	s.loadErr = err.Error()
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("loading state failed")
	return err
}

// SaveErr reports the last persist failure, empty when the last save
// succeeded. Mutations are never rolled back on persist failure, so a
// non-empty value means memory and storage have diverged.
func (s *Store) SaveErr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

func (s *Store) LoadErr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Store) AddNote(ctx context.Context, in NewNote) Note {
	s.mu.Lock()
	now := s.now()
	text := in.Text
	if in.Numbered {
		text = textutil.Renumber(text)
	}
	n := Note{
		ID:        s.newID(),
		Title:     in.Title,
		Text:      text,
		Color:     in.Color,
		Numbered:  in.Numbered,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes = append(s.notes, n)
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "created", Kind: "note", ID: n.ID})
	return n
}

func (s *Store) UpdateNote(ctx context.Context, id string, p NotePatch) (Note, error) {
	s.mu.Lock()
	i := s.noteIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return Note{}, ErrNotFound
	}
	n := s.notes[i]
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Text != nil {
		n.Text = *p.Text
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Numbered != nil {
		n.Numbered = *p.Numbered
	}
	switch {
	case n.Numbered && (p.Text != nil || p.Numbered != nil):
		n.Text = textutil.Renumber(n.Text)
	case p.Numbered != nil && !n.Numbered:
		n.Text = textutil.Strip(n.Text)
	}
	n.UpdatedAt = s.now()
	s.notes[i] = n
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "updated", Kind: "note", ID: n.ID})
	return n, nil
}

// DeleteNote removes a single note. It never cascades.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.noteIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "deleted", Kind: "note", ID: id})
	return nil
}

func (s *Store) Note(id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.noteIndex(id)
	if i < 0 {
		return Note{}, ErrNotFound
	}
	return s.notes[i], nil
}

// Notes returns all notes in insertion order.
func (s *Store) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *Store) AddGroup(ctx context.Context, title string) Group {
	s.mu.Lock()
	g := s.newGroupLocked(title)
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "created", Kind: "group", ID: g.ID})
	return g
}

// newGroupLocked appends a fresh group; the caller holds the lock and
// is responsible for persisting.
func (s *Store) newGroupLocked(title string) Group {
	if title == "" {
		title = DefaultGroupTitle
	}
	g := Group{ID: s.newID(), Title: title, UpdatedAt: s.now()}
	s.groups = append(s.groups, g)
	return g
}

func (s *Store) UpdateGroup(ctx context.Context, id string, p GroupPatch) (Group, error) {
	s.mu.Lock()
	i := s.groupIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return Group{}, ErrNotFound
	}
	g := s.groups[i]
	if p.Title != nil {
		g.Title = *p.Title
		if g.Title == "" {
			g.Title = DefaultGroupTitle
		}
	}
	g.UpdatedAt = s.now()
	s.groups[i] = g
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "updated", Kind: "group", ID: g.ID})
	return g, nil
}

// DeleteGroup removes the group and cascades to every member note.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.groupIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.groups = append(s.groups[:i], s.groups[i+1:]...)
	kept := s.notes[:0]
	for _, n := range s.notes {
		if n.GroupID != id {
			kept = append(kept, n)
		}
	}
	s.notes = kept
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "deleted", Kind: "group", ID: id})
	return nil
}

func (s *Store) Group(id string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.groupIndex(id)
	if i < 0 {
		return Group{}, ErrNotFound
	}
	return s.groups[i], nil
}

func (s *Store) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// NotesInGroup returns the members in collection (insertion) order.
func (s *Store) NotesInGroup(groupID string) []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notesInGroupLocked(groupID)
}

func (s *Store) notesInGroupLocked(groupID string) []Note {
	out := []Note{}
	for _, n := range s.notes {
		if n.GroupID == groupID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) noteIndex(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) groupIndex(id string) int {
	for i, g := range s.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}
