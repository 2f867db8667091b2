package store

import (
	"strings"
	"time"
)

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Color     string    `json:"color,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	Numbered  bool      `json:"numbered,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayTitle falls back to the first line of the text when the note
// has no explicit title.
func (n Note) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	line, _, _ := strings.Cut(n.Text, "\n")
	return strings.TrimSpace(line)
}

type Group struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Private   bool      `json:"private,omitempty"`
	Salt      string    `json:"salt,omitempty"`
	PassHash  string    `json:"pass_hash,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultGroupTitle is used when a group is created or renamed with an
// empty title.
const DefaultGroupTitle = "New group"

type NewNote struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Color    string `json:"color"`
	Numbered bool   `json:"numbered"`
}

// NotePatch updates a note. Nil means leave the field unchanged; a
// pointer to the empty string clears it. Group membership is never
// changed through a patch, only through the membership operations.
type NotePatch struct {
	Title    *string `json:"title"`
	Text     *string `json:"text"`
	Color    *string `json:"color"`
	Numbered *bool   `json:"numbered"`
}

type GroupPatch struct {
	Title *string `json:"title"`
}
