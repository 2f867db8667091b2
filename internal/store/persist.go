package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// schemaVersion identifies the persisted document layout so future
// migrations can tell the layouts apart.
const schemaVersion = 1

type persistedState struct {
	Version int     `json:"version"`
	Notes   []Note  `json:"notes"`
	Groups  []Group `json:"groups"`
}

func (s *Store) encodeStateLocked() ([]byte, error) {
	return json.Marshal(persistedState{
		Version: schemaVersion,
		Notes:   s.notes,
		Groups:  s.groups,
	})
}

func decodeState(b []byte) (persistedState, error) {
	var st persistedState
	if err := json.Unmarshal(b, &st); err != nil {
		return persistedState{}, fmt.Errorf("corrupt state document: %w", err)
	}
	if st.Version != schemaVersion {
		return persistedState{}, fmt.Errorf("unsupported state version %d", st.Version)
	}
	if st.Notes == nil {
		st.Notes = []Note{}
	}
	if st.Groups == nil {
		st.Groups = []Group{}
	}
	groups := make(map[string]bool, len(st.Groups))
	for _, g := range st.Groups {
		groups[g.ID] = true
	}
	for _, n := range st.Notes {
		if n.GroupID != "" && !groups[n.GroupID] {
			return persistedState{}, fmt.Errorf("corrupt state document: note %s references missing group %s", n.ID, n.GroupID)
		}
	}
	return st, nil
}

// persist writes the whole state through to the kv store. Called with
// the lock held after every mutation. Failures are recorded, not
// returned: the in-memory mutation stands either way.
func (s *Store) persist(ctx context.Context) {
	blob, err := s.encodeStateLocked()
	if err == nil {
		err = s.kv.Set(ctx, StateKey, string(blob))
	}
	if err != nil {
		s.saveErr = fmt.Sprintf("saving notes failed: %v", err)
		s.log.Warn().Err(err).Msg("persist failed, in-memory state ahead of storage")
		return
	}
	s.saveErr = ""
}
