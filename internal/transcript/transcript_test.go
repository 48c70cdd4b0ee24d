package transcript

import (
	"strings"
	"testing"

	"demystifier-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTurn(t *testing.T, greeting, text string) Transcript {
	t.Helper()
	tr, err := AppendUserTurn(New(greeting), text)
	require.NoError(t, err)
	return tr
}

func TestAppendFragment_ConcatenatesInArrivalOrder(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
	}{
		{"single", []string{"Hello"}},
		{"split", []string{"He", "llo"}},
		{"per rune", []string{"H", "e", "l", "l", "o"}},
		{"with empties", []string{"", "Hel", "", "lo", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := openTurn(t, "", "hi")
			for _, f := range tt.fragments {
				tr = AppendFragment(tr, f)
			}

			last, ok := tr.Last()
			require.True(t, ok)
			assert.Equal(t, RoleAssistant, last.Role)
			assert.Equal(t, strings.Join(tt.fragments, ""), last.Content)
			assert.Equal(t, "Hello", last.Content)
		})
	}
}

func TestAppendFragment_MultiByte(t *testing.T) {
	tr := openTurn(t, "", "hi")
	for _, f := range []string{"Cl", "é ", "de ", "voûte ✓"} {
		tr = AppendFragment(tr, f)
	}
	last, _ := tr.Last()
	assert.Equal(t, "Clé de voûte ✓", last.Content)
}

func TestAppendFragment_NoOpWhenLastIsNotAssistant(t *testing.T) {
	tr := Transcript{entries: []Entry{{Role: RoleUser, Content: "question"}}}

	got := AppendFragment(tr, "stray")

	assert.Equal(t, tr.Entries(), got.Entries())
	assert.Equal(t, 0, AppendFragment(Transcript{}, "stray").Len())
}

func TestAppendFragment_DoesNotMutateInput(t *testing.T) {
	before := openTurn(t, "", "hi")
	after := AppendFragment(before, "reply")

	last, _ := before.Last()
	assert.Empty(t, last.Content)
	last, _ = after.Last()
	assert.Equal(t, "reply", last.Content)
}

func TestAppendUserTurn_AddsExactlyTwoEntries(t *testing.T) {
	for _, greeting := range []string{"", "Hello! How can I help?"} {
		tr := New(greeting)
		before := tr.Len()

		next, err := AppendUserTurn(tr, "  What is a lien?  ")
		require.NoError(t, err)

		assert.Equal(t, before+2, next.Len())
		entries := next.Entries()
		assert.Equal(t, Entry{Role: RoleUser, Content: "What is a lien?"}, entries[len(entries)-2])
		assert.Equal(t, Entry{Role: RoleAssistant}, entries[len(entries)-1])
		assert.True(t, next.IsOpen())
	}
}

func TestAppendUserTurn_Rejects(t *testing.T) {
	_, err := AppendUserTurn(New(""), " \t\n")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	open := openTurn(t, "", "first")
	unchanged, err := AppendUserTurn(open, "second")
	assert.ErrorIs(t, err, ErrTurnOpen)
	assert.Equal(t, open.Len(), unchanged.Len())
}

func TestFinalizeTurn(t *testing.T) {
	const fallback = "Sorry, I couldn't get a response. Please try again."

	t.Run("fills empty tail", func(t *testing.T) {
		tr := FinalizeTurn(openTurn(t, "", "hi"), fallback)
		last, _ := tr.Last()
		assert.Equal(t, fallback, last.Content)
		assert.False(t, tr.IsOpen())
	})

	t.Run("never clobbers partial output", func(t *testing.T) {
		tr := AppendFragment(openTurn(t, "", "hi"), "partial")
		tr = FinalizeTurn(tr, fallback)
		last, _ := tr.Last()
		assert.Equal(t, "partial", last.Content)
		assert.False(t, tr.IsOpen())
	})

	t.Run("leaves user tail alone", func(t *testing.T) {
		tr := Transcript{entries: []Entry{{Role: RoleUser, Content: "q"}}}
		assert.Equal(t, tr.Entries(), FinalizeTurn(tr, fallback).Entries())
	})

	t.Run("only touches last entry", func(t *testing.T) {
		tr := Transcript{entries: []Entry{{Role: RoleAssistant}, {Role: RoleUser, Content: "q"}}}
		got := FinalizeTurn(tr, fallback).Entries()
		assert.Empty(t, got[0].Content)
	})
}

func TestComplete_AllowsNextTurn(t *testing.T) {
	tr := Complete(AppendFragment(openTurn(t, "", "one"), "answer"))
	assert.False(t, tr.IsOpen())

	next, err := AppendUserTurn(tr, "two")
	require.NoError(t, err)
	assert.Equal(t, 4, next.Len())
}

func TestHistory_ExcludesPlaceholder(t *testing.T) {
	tr := openTurn(t, "Hello!", "What is a lien?")

	assert.Equal(t, []model.ChatMessage{
		{Role: model.RoleModel, Content: "Hello!"},
		{Role: model.RoleUser, Content: "What is a lien?"},
	}, tr.History())

	tr = AppendFragment(tr, "A lien is")
	assert.Len(t, tr.History(), 3)
}
