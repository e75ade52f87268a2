// Package session implements the Agent Session state machine (spec
// §4.8): a provider handle, turn history, a bounded event emitter, and a
// shared abort signal. No direct analogue survived from compozy (its LLM
// session layer was pruned along with the rest of engine/llm) — the
// state machine is built straight from §4.8's transition table, using
// buffered channels for event delivery the way the rest of this module
// uses them for other bounded-delivery cases.
package session

import (
	"context"
	"sync"

	"github.com/stencila/attractor/internal/core"
)

// State is one of the three states a Session occupies.
type State int

const (
	Idle State = iota
	Processing
	Closed
)

func (s State) String() string {
	switch s {
	case Processing:
		return "processing"
	case Closed:
		return "closed"
	default:
		return "idle"
	}
}

// Role identifies the speaker of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool_result"
)

// Turn is one entry in a session's conversation history.
type Turn struct {
	Role    Role
	Content string
}

// Config holds per-session limits and optional system instructions.
type Config struct {
	UserInstructions string
	MaxTurns         int // <=0 means unlimited
}

// Provider is the subset of internal/provider's adapter contract the
// session depends on; kept here as a narrow interface so session has no
// import-time dependency on the concrete CLI adapters.
type Provider interface {
	ID() string
	Submit(ctx context.Context, input string, sink EventSink, abort *AbortSignal) error
	Close()
}

// Session owns one logical agent interaction: a provider handle,
// config, conversation history, an event emitter, a shared abort
// signal, and a running turn count.
type Session struct {
	mu         sync.Mutex
	id         string
	provider   Provider
	cfg        Config
	state      State
	history    []Turn
	totalTurns int
	abort      *AbortSignal
	emitter    *Emitter
}

// New constructs a session bound to provider, firing SessionStart
// immediately, and returns the session plus the receive side of its
// event stream.
func New(id string, provider Provider, cfg Config) (*Session, <-chan Event) {
	emitter, events := NewEmitter(64)
	s := &Session{
		id:       id,
		provider: provider,
		cfg:      cfg,
		state:    Idle,
		abort:    NewAbortSignal(),
		emitter:  emitter,
	}
	s.emitter.Emit(Event{Kind: SessionStart, SessionID: s.id})
	return s, events
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Abort exposes the shared abort signal so callers can request a Soft
// or Hard stop from outside the submit() call.
func (s *Session) Abort() *AbortSignal { return s.abort }

// Submit drives one user turn through the provider, per spec §4.8.
func (s *Session) Submit(ctx context.Context, input string) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return core.NewError(nil, core.CodeSessionClosed, nil)
	}
	if s.cfg.MaxTurns > 0 && s.totalTurns >= s.cfg.MaxTurns {
		s.mu.Unlock()
		return core.NewError(nil, core.CodeTurnLimitExceeded, map[string]any{"max_turns": s.cfg.MaxTurns})
	}
	s.abort.ResetSoft()
	s.state = Processing
	s.history = append(s.history, Turn{Role: RoleUser, Content: input})
	s.mu.Unlock()

	s.emitter.Emit(Event{Kind: UserInput, SessionID: s.id, Text: input})

	err := s.provider.Submit(ctx, input, s.emitter, s.abort)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.emitter.Emit(Event{Kind: ErrorEvent, SessionID: s.id, Message: err.Error()})
		s.closeLocked()
		return err
	}

	s.totalTurns++
	switch s.abort.Kind() {
	case Hard:
		s.closeLocked()
	case Soft:
		s.abort.ResetSoft()
		s.state = Idle
	default:
		s.state = Idle
	}
	return nil
}

// Close idempotently tears the session down, asking the provider to
// release its subprocess and emitting SessionEnd. Safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.state == Closed {
		return
	}
	s.state = Closed
	s.provider.Close()
	s.emitter.Emit(Event{Kind: SessionEnd, SessionID: s.id, Data: map[string]any{"state": s.state.String()}})
}

// History returns a copy of the turn history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}
