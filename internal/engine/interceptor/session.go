// Package interceptor routes every class the frontend defines through the
// native translator and the loader builder.
package interceptor

import (
	"sync"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/engine/loader"
	"go.trai.ch/zerr"
)

// Mode selects what DefineClass does with a class that is not yet loaded.
type Mode uint8

const (
	// ModeTranslate translates and loads classes.
	ModeTranslate Mode = iota
	// ModeCapture translates, loads and writes each image to the cache.
	ModeCapture
	// ModeCollect records bytecode only. DefineClass returns a nil class.
	ModeCollect
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeCapture:
		return "capture"
	case ModeCollect:
		return "collect"
	default:
		return "translate"
	}
}

// State is the lifecycle position of a session.
type State uint8

const (
	// StateIdle means no class has been defined yet.
	StateIdle State = iota
	// StateCollecting means bytecode is being recorded.
	StateCollecting
	// StateTranslating means at least one class has been translated.
	StateTranslating
	// StatePersisting means the manifest is being committed.
	StatePersisting
	// StateDone means the session is finished and rejects further work.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCollecting:
		return "COLLECTING"
	case StateTranslating:
		return "TRANSLATING"
	case StatePersisting:
		return "PERSISTING"
	default:
		return "DONE"
	}
}

// Session is the per-run compilation state. It is never shared between runs.
type Session struct {
	hash    string
	mode    Mode
	builder *loader.Builder
	slot    *loader.Slot

	mu           sync.Mutex
	state        State
	collected    []domain.GeneratedClass
	seen         map[string]struct{}
	produced     []domain.CompiledImage
	translations int
}

// NewSession starts a session for the source identified by hash. Classes are
// linked through builder and published to slot.
func NewSession(hash string, mode Mode, builder *loader.Builder, slot *loader.Slot) *Session {
	return &Session{
		hash:    hash,
		mode:    mode,
		builder: builder,
		slot:    slot,
		seen:    make(map[string]struct{}),
	}
}

// Hash returns the source hash of the run.
func (s *Session) Hash() string {
	return s.hash
}

// Mode returns the mode the session was started in.
func (s *Session) Mode() Mode {
	return s.mode
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Translations returns how many classes were translated in this session.
func (s *Session) Translations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translations
}

// Produced returns the images translated in this session in ordinal order.
func (s *Session) Produced() []domain.CompiledImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CompiledImage(nil), s.produced...)
}

// ClassNames returns the names of the images produced in this session.
func (s *Session) ClassNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.produced))
	for i, img := range s.produced {
		names[i] = img.ClassName
	}
	return names
}

// Collected returns the names of the classes recorded in collection mode.
func (s *Session) Collected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.collected))
	for i, c := range s.collected {
		names[i] = c.Name
	}
	return names
}

// Chain returns the active chain of the session.
func (s *Session) Chain() *loader.Chain {
	return s.slot.Load()
}

// Close ends the session without persisting anything.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDone
}

// closed reports whether the session stopped accepting work. Must be called
// with mu held.
func (s *Session) closed() bool {
	return s.state == StateDone || s.state == StatePersisting
}

func (s *Session) checkOpen(class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return zerr.With(zerr.Wrap(domain.ErrSessionClosed, "define rejected"), "class", class)
	}
	return nil
}

// transition moves to next. Must be called with mu held.
func (s *Session) transition(next State) error {
	if s.allowed(next) {
		s.state = next
		return nil
	}
	if s.state == StateDone || s.state == StatePersisting {
		return zerr.With(zerr.Wrap(domain.ErrSessionClosed, "session rejected work"), "state", s.state.String())
	}
	err := zerr.With(zerr.Wrap(domain.ErrInvalidSessionState, "illegal transition"), "from", s.state.String())
	return zerr.With(err, "to", next.String())
}

func (s *Session) allowed(next State) bool {
	switch s.state {
	case StateIdle:
		return next == StateCollecting || next == StateTranslating || next == StatePersisting
	case StateCollecting:
		return next == StateCollecting || next == StateTranslating || next == StatePersisting
	case StateTranslating:
		return next == StateTranslating || next == StatePersisting
	case StatePersisting:
		return next == StateDone
	default:
		return false
	}
}
