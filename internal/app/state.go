package app

import (
	"errors"
	"fmt"
	"sync"

	"demystifier-backend/internal/storage"
	"demystifier-backend/pkg/logger"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Tab string

const (
	TabAnalyzer Tab = "analyzer"
	TabAdvisor  Tab = "advisor"
	TabHub      Tab = "hub"
)

const prefTheme = "theme"

var (
	ErrSignInRequired = errors.New("sign in to open this tab")
	ErrUnknownTab     = errors.New("unknown tab")
	ErrUnknownTheme   = errors.New("unknown theme")
)

type StateSnapshot struct {
	Theme    Theme
	SignedIn bool
	Tab      Tab
}

// State is the process-wide UI state. The theme survives restarts through
// the preference store; sign-in is a local flag with no credential check.
type State struct {
	store storage.PreferenceStore

	mu       sync.Mutex
	theme    Theme
	signedIn bool
	tab      Tab

	subscribers observers[StateSnapshot]
}

// NewState loads the saved theme, falling back to the system preference.
func NewState(store storage.PreferenceStore, systemPrefersDark bool) *State {
	s := &State{store: store, theme: ThemeLight, tab: TabAnalyzer}
	if systemPrefersDark {
		s.theme = ThemeDark
	}

	saved, err := store.Get(prefTheme)
	switch {
	case err == nil && validTheme(Theme(saved)):
		s.theme = Theme(saved)
	case err != nil && !errors.Is(err, storage.ErrPreferenceNotFound):
		logger.Warnf("Failed to load theme preference: %v", err)
	}
	return s
}

func validTheme(t Theme) bool {
	return t == ThemeLight || t == ThemeDark
}

func (s *State) Subscribe(fn func(StateSnapshot)) func() {
	return s.subscribers.add(fn)
}

func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() StateSnapshot {
	return StateSnapshot{Theme: s.theme, SignedIn: s.signedIn, Tab: s.tab}
}

func (s *State) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subscribers.notify(snap)
}

func (s *State) SetTheme(t Theme) error {
	if !validTheme(t) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, t)
	}
	if err := s.store.Set(prefTheme, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	s.update(func() { s.theme = t })
	return nil
}

func (s *State) ToggleTheme() error {
	next := ThemeDark
	if s.Snapshot().Theme == ThemeDark {
		next = ThemeLight
	}
	return s.SetTheme(next)
}

func (s *State) SignIn() {
	s.update(func() { s.signedIn = true })
}

// SignOut leaves the hub, which is only available while signed in.
func (s *State) SignOut() {
	s.update(func() {
		s.signedIn = false
		if s.tab == TabHub {
			s.tab = TabAnalyzer
		}
	})
}

func (s *State) SetTab(tab Tab) error {
	switch tab {
	case TabAnalyzer, TabAdvisor:
	case TabHub:
		if !s.Snapshot().SignedIn {
			return ErrSignInRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}

	s.update(func() { s.tab = tab })
	return nil
}
