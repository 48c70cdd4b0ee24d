package app

import (
	"context"
	"errors"
	"sync"

	"demystifier-backend/internal/model"
	"demystifier-backend/internal/transcript"
	"demystifier-backend/pkg/logger"
)

// ApologySuffix is appended to a reply that broke off after some text had
// already arrived.
const ApologySuffix = "\n\n(Sorry, the response was interrupted. Please try again.)"

var ErrBusy = errors.New("a reply is already in progress")

// Variant configures one chat surface.
type Variant struct {
	ChatType model.ChatType
	// Greeting seeds the transcript; empty means no greeting.
	Greeting string
	// Fallback replaces a reply that produced no text at all.
	Fallback string
	// Banner is shown above the chat after a failed send; empty shows none.
	Banner string
}

var (
	AnalyzerVariant = Variant{
		ChatType: model.ChatTypeAnalyzer,
		Fallback: "Sorry, I couldn't get a response. Please try again.",
	}
	AdvisorVariant = Variant{
		ChatType: model.ChatTypeAdvisor,
		Greeting: "Hello! I'm your AI Document Advisor. What kind of goal or project are you working on? For example, are you starting a business, buying a house, or creating a will? Let's figure out what documents you might need.",
		Fallback: "I seem to be having trouble connecting. Please try again in a moment.",
		Banner:   "Sorry, an error occurred. Please try sending your message again.",
	}
	HubVariant = Variant{
		ChatType: model.ChatTypeHub,
		Greeting: "Hello! I can help you find the government documents you might need. What are you trying to accomplish? For example, are you starting a business, planning to travel, or applying for benefits?",
		Fallback: "I seem to be having trouble connecting. Please try again.",
		Banner:   "Sorry, an error occurred. Please try sending your message again.",
	}
)

// SurfaceSnapshot is an immutable view of a surface.
type SurfaceSnapshot struct {
	ChatType model.ChatType
	Entries  []transcript.Entry
	Busy     bool
	Error    string
}

// Surface is one chat panel. It owns its transcript and busy flag; at most
// one Send runs against it at a time.
type Surface struct {
	api     API
	variant Variant

	mu         sync.Mutex
	transcript transcript.Transcript
	context    string
	busy       bool
	banner     string

	subscribers observers[SurfaceSnapshot]
}

func NewSurface(api API, variant Variant) *Surface {
	return &Surface{
		api:        api,
		variant:    variant,
		transcript: transcript.New(variant.Greeting),
	}
}

func (s *Surface) Variant() Variant {
	return s.variant
}

// Subscribe registers fn for every later change and returns a function that
// removes it.
func (s *Surface) Subscribe(fn func(SurfaceSnapshot)) func() {
	return s.subscribers.add(fn)
}

func (s *Surface) Snapshot() SurfaceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Surface) snapshotLocked() SurfaceSnapshot {
	return SurfaceSnapshot{
		ChatType: s.variant.ChatType,
		Entries:  s.transcript.Entries(),
		Busy:     s.busy,
		Error:    s.banner,
	}
}

// update applies fn under the lock and publishes the resulting snapshot.
func (s *Surface) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subscribers.notify(snap)
}

// Reset starts a fresh conversation grounded in groundingContext.
func (s *Surface) Reset(groundingContext string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.mu.Unlock()

	s.update(func() {
		s.transcript = transcript.New(s.variant.Greeting)
		s.context = groundingContext
		s.banner = ""
	})
	return nil
}

func (s *Surface) Context() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context
}

// Send appends text as a user turn and streams the reply into the
// transcript. On failure the turn is closed with the variant's fallback, or
// with ApologySuffix when part of the reply already arrived; the error is
// returned for logging only.
func (s *Surface) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	next, err := transcript.AppendUserTurn(s.transcript, text)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.transcript = next
	s.busy = true
	s.banner = ""
	history := next.History()
	groundingContext := s.context
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subscribers.notify(snap)

	err = s.api.StreamChat(ctx, history, groundingContext, s.variant.ChatType, func(fragment string) {
		s.update(func() {
			s.transcript = transcript.AppendFragment(s.transcript, fragment)
		})
	})

	s.update(func() {
		defer func() { s.busy = false }()

		if err == nil {
			s.transcript = transcript.FinalizeTurn(s.transcript, s.variant.Fallback)
			return
		}

		logger.Warnf("Chat %s failed: %v", s.variant.ChatType, err)
		s.banner = s.variant.Banner
		if last, ok := s.transcript.Last(); ok && last.Content != "" {
			s.transcript = transcript.Complete(transcript.AppendFragment(s.transcript, ApologySuffix))
			return
		}
		s.transcript = transcript.FinalizeTurn(s.transcript, s.variant.Fallback)
	})
	return err
}
