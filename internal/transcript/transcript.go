// Package transcript holds the ordered conversation log of one chat surface
// and the pure transitions that grow it while a reply streams in.
//
// A Transcript is a value. Every transition returns a new Transcript and
// leaves its argument untouched, so snapshots handed to observers never
// change underneath them.
package transcript

import (
	"errors"
	"strings"

	"demystifier-backend/internal/model"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrTurnOpen     = errors.New("a reply is still streaming")
)

// Transcript is an append-only list of entries. At most one entry is open and
// it is always the last one, with role assistant.
type Transcript struct {
	entries []Entry
	open    bool
}

// New returns a transcript seeded with an assistant greeting, or an empty one
// when greeting is blank.
func New(greeting string) Transcript {
	if strings.TrimSpace(greeting) == "" {
		return Transcript{}
	}
	return Transcript{entries: []Entry{{Role: RoleAssistant, Content: greeting}}}
}

// AppendUserTurn appends the trimmed user message and an empty assistant
// placeholder in one step and opens the turn.
func AppendUserTurn(t Transcript, text string) (Transcript, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return t, ErrEmptyMessage
	}
	if t.open {
		return t, ErrTurnOpen
	}

	entries := make([]Entry, len(t.entries), len(t.entries)+2)
	copy(entries, t.entries)
	entries = append(entries,
		Entry{Role: RoleUser, Content: text},
		Entry{Role: RoleAssistant},
	)
	return Transcript{entries: entries, open: true}, nil
}

// AppendFragment concatenates fragment onto the last entry when it is an
// assistant entry. Otherwise the transcript is returned unchanged.
func AppendFragment(t Transcript, fragment string) Transcript {
	n := len(t.entries)
	if n == 0 || t.entries[n-1].Role != RoleAssistant || fragment == "" {
		return t
	}

	entries := make([]Entry, n)
	copy(entries, t.entries)
	entries[n-1].Content += fragment
	return Transcript{entries: entries, open: t.open}
}

// FinalizeTurn fills an empty trailing assistant entry with fallback and
// closes the turn. A non-empty tail is never overwritten.
func FinalizeTurn(t Transcript, fallback string) Transcript {
	n := len(t.entries)
	if n == 0 || t.entries[n-1].Role != RoleAssistant || t.entries[n-1].Content != "" {
		return Complete(t)
	}

	entries := make([]Entry, n)
	copy(entries, t.entries)
	entries[n-1].Content = fallback
	return Transcript{entries: entries}
}

// Complete closes the open turn without touching any content.
func Complete(t Transcript) Transcript {
	if !t.open {
		return t
	}
	return Transcript{entries: t.entries}
}

func (t Transcript) Len() int { return len(t.entries) }

func (t Transcript) IsOpen() bool { return t.open }

// Entries returns a copy of the log.
func (t Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// History serialises the transcript for the chat endpoint. The empty
// placeholder of an open turn is left out and assistant turns use the
// "model" wire role.
func (t Transcript) History() []model.ChatMessage {
	entries := t.entries
	if t.open && len(entries) > 0 && entries[len(entries)-1].Content == "" {
		entries = entries[:len(entries)-1]
	}

	history := make([]model.ChatMessage, 0, len(entries))
	for _, e := range entries {
		role := model.RoleUser
		if e.Role == RoleAssistant {
			role = model.RoleModel
		}
		history = append(history, model.ChatMessage{Role: role, Content: e.Content})
	}
	return history
}
