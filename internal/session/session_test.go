package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencila/attractor/internal/core"
)

type stubProvider struct {
	closed   bool
	err      error
	abortSet AbortKind
	onSubmit func(sink EventSink, abort *AbortSignal)
}

func (p *stubProvider) ID() string { return "stub" }

func (p *stubProvider) Submit(ctx context.Context, input string, sink EventSink, abort *AbortSignal) error {
	if p.onSubmit != nil {
		p.onSubmit(sink, abort)
	}
	if p.abortSet != 0 {
		if p.abortSet == Soft {
			abort.RequestSoft()
		} else {
			abort.RequestHard()
		}
	}
	return p.err
}

func (p *stubProvider) Close() { p.closed = true }

func drain(events <-chan Event, n int) []Event {
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, <-events)
	}
	return out
}

func TestNew_EmitsSessionStartImmediately(t *testing.T) {
	p := &stubProvider{}
	s, events := New("s1", p, Config{})
	assert.Equal(t, Idle, s.State())
	evts := drain(events, 1)
	assert.Equal(t, SessionStart, evts[0].Kind)
}

func TestSubmit_SuccessReturnsToIdle(t *testing.T) {
	p := &stubProvider{}
	s, events := New("s1", p, Config{})
	drain(events, 1) // SessionStart

	err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Idle, s.State())

	evt := <-events // UserInput
	assert.Equal(t, UserInput, evt.Kind)
	assert.Equal(t, "hello", evt.Text)
}

func TestSubmit_ClosedSessionErrors(t *testing.T) {
	p := &stubProvider{}
	s, events := New("s1", p, Config{})
	drain(events, 1)
	s.Close()

	err := s.Submit(context.Background(), "x")
	require.Error(t, err)
	var appErr *core.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, core.CodeSessionClosed, appErr.Code)
}

func TestSubmit_TurnLimitExceeded(t *testing.T) {
	p := &stubProvider{}
	s, events := New("s1", p, Config{MaxTurns: 1})
	drain(events, 1)

	require.NoError(t, s.Submit(context.Background(), "one"))
	drain(events, 1) // UserInput

	err := s.Submit(context.Background(), "two")
	require.Error(t, err)
	var appErr *core.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, core.CodeTurnLimitExceeded, appErr.Code)
}

func TestSubmit_HardAbortClosesSession(t *testing.T) {
	p := &stubProvider{abortSet: Hard}
	s, events := New("s1", p, Config{})
	drain(events, 1)

	require.NoError(t, s.Submit(context.Background(), "x"))
	assert.Equal(t, Closed, s.State())
	assert.True(t, p.closed)

	drain(events, 1) // UserInput
	evt := <-events  // SessionEnd
	assert.Equal(t, SessionEnd, evt.Kind)
}

func TestSubmit_SoftAbortResetsAndStaysIdle(t *testing.T) {
	p := &stubProvider{abortSet: Soft}
	s, events := New("s1", p, Config{})
	drain(events, 1)

	require.NoError(t, s.Submit(context.Background(), "x"))
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, Active, s.Abort().Kind())
	_ = events
}

func TestSubmit_ProviderErrorClosesAndEmitsError(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	s, events := New("s1", p, Config{})
	drain(events, 1)

	err := s.Submit(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, Closed, s.State())

	drain(events, 1)                           // UserInput
	errEvt := <-events                         // Error
	assert.Equal(t, ErrorEvent, errEvt.Kind)
	endEvt := <-events                         // SessionEnd
	assert.Equal(t, SessionEnd, endEvt.Kind)
}

func TestClose_Idempotent(t *testing.T) {
	p := &stubProvider{}
	s, events := New("s1", p, Config{})
	drain(events, 1)

	s.Close()
	s.Close()
	assert.Equal(t, Closed, s.State())
}

func TestHistory_RecordsUserTurns(t *testing.T) {
	p := &stubProvider{}
	s, events := New("s1", p, Config{})
	drain(events, 1)
	require.NoError(t, s.Submit(context.Background(), "hi"))
	drain(events, 1)

	hist := s.History()
	require.Len(t, hist, 1)
	assert.Equal(t, RoleUser, hist[0].Role)
	assert.Equal(t, "hi", hist[0].Content)
}

func TestAbortSignal_SoftThenResetSoft(t *testing.T) {
	sig := NewAbortSignal()
	assert.False(t, sig.IsAborted())
	sig.RequestSoft()
	assert.True(t, sig.IsAborted())
	assert.Equal(t, Soft, sig.Kind())

	sig.ResetSoft()
	assert.Equal(t, Active, sig.Kind())
}

func TestAbortSignal_ResetSoftNoOpFromHard(t *testing.T) {
	sig := NewAbortSignal()
	sig.RequestHard()
	sig.ResetSoft()
	assert.Equal(t, Hard, sig.Kind())
}

func TestAbortSignal_DoneClosesOnAbort(t *testing.T) {
	sig := NewAbortSignal()
	done := sig.Done()
	select {
	case <-done:
		t.Fatal("done should not be closed yet")
	default:
	}
	sig.RequestHard()
	select {
	case <-done:
	default:
		t.Fatal("done should be closed after RequestHard")
	}
}

func TestEmitter_DropsWhenFull(t *testing.T) {
	e, events := NewEmitter(1)
	e.Emit(Event{Kind: UserInput})
	e.Emit(Event{Kind: UserInput}) // dropped, channel already full
	assert.Equal(t, 1, e.Dropped.Count())
	<-events
}
