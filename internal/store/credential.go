package store

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/argon2"
)

// MinPasswordLen is the shortest password accepted for a private group.
const MinPasswordLen = 4

var ErrPasswordTooShort = errors.New("password must be at least 4 characters")

const (
	saltLen      = 16
	saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// SetPassword makes the group private. The digest is argon2id over the
// password with a random per-group salt; only the digest and the salt
// are ever persisted.
func (s *Store) SetPassword(ctx context.Context, groupID, password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	salt, err := newSalt()
	if err != nil {
		return err
	}

	s.mu.Lock()
	gi := s.groupIndex(groupID)
	if gi < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	g := s.groups[gi]
	g.Private = true
	g.Salt = salt
	g.PassHash = digest(password, salt)
	g.UpdatedAt = s.now()
	s.groups[gi] = g
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "updated", Kind: "group", ID: groupID})
	return nil
}

// ClearPassword makes the group public again. Unconditional: going
// private requires the password, going public does not.
func (s *Store) ClearPassword(ctx context.Context, groupID string) error {
	s.mu.Lock()
	gi := s.groupIndex(groupID)
	if gi < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	g := s.groups[gi]
	g.Private = false
	g.Salt = ""
	g.PassHash = ""
	g.UpdatedAt = s.now()
	s.groups[gi] = g
	s.persist(ctx)
	s.mu.Unlock()
	s.emit(Event{Op: "updated", Kind: "group", ID: groupID})
	return nil
}

// VerifyPassword reports whether the candidate matches the group's
// stored digest. A group without a digest never verifies.
func (s *Store) VerifyPassword(groupID, candidate string) (bool, error) {
	s.mu.Lock()
	gi := s.groupIndex(groupID)
	if gi < 0 {
		s.mu.Unlock()
		return false, ErrNotFound
	}
	g := s.groups[gi]
	s.mu.Unlock()

	if g.Salt == "" || g.PassHash == "" {
		return false, nil
	}
	got := digest(candidate, g.Salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.PassHash)) == 1, nil
}

func digest(password, salt string) string {
	sum := argon2.IDKey([]byte(password), []byte(salt), 1, 64*1024, 4, 32)
	return hex.EncodeToString(sum)
}

func newSalt() (string, error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i, b := range raw {
		raw[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(raw), nil
}
