package session

// EventKind enumerates the session event stream per spec §4.8/§5's
// ordering guarantee: SessionStart, UserInput, (AssistantTextStart,
// {AssistantTextDelta|AssistantReasoning|ToolCall*}, AssistantTextEnd)?,
// (Error)?, SessionEnd.
type EventKind string

const (
	SessionStart         EventKind = "session_start"
	UserInput            EventKind = "user_input"
	AssistantTextStart   EventKind = "assistant_text_start"
	AssistantTextDelta   EventKind = "assistant_text_delta"
	AssistantReasoning   EventKind = "assistant_reasoning_delta"
	AssistantTextEnd     EventKind = "assistant_text_end"
	ToolCallStart        EventKind = "tool_call_start"
	ToolCallEnd          EventKind = "tool_call_end"
	ErrorEvent           EventKind = "error"
	SessionEnd           EventKind = "session_end"
)

// Event is one item in a session's event stream. Seq is a monotonic
// sequence number assigned by the emitter, ordered within one session
// (spec §3: "an ordered monotonic sequence within a session").
type Event struct {
	Kind      EventKind
	SessionID string
	Seq       int
	Text      string
	ToolName  string
	Code      string
	Message   string
	Data      map[string]any
}

// EventSink receives a session's events. Implementations must not block;
// Emitter below is the bounded-channel implementation used in practice.
type EventSink interface {
	Emit(Event)
}

// Emitter delivers events over a bounded channel and never backpressures
// the producer: a full channel drops the event and increments Dropped,
// mirroring spec §5's "reported via a dropped-events counter... but
// never back-pressures the emitter."
type Emitter struct {
	ch      chan Event
	Dropped *DroppedCounter
	seq     int
}

// DroppedCounter is a small atomic-free counter guarded by the emitter's
// own single-producer discipline (spec §5: "single producer per
// session"), so a plain int suffices without extra synchronization.
type DroppedCounter struct {
	n int
}

func (c *DroppedCounter) Count() int { return c.n }

// NewEmitter returns an emitter and the receive side of its channel.
func NewEmitter(bufferSize int) (*Emitter, <-chan Event) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	ch := make(chan Event, bufferSize)
	return &Emitter{ch: ch, Dropped: &DroppedCounter{}}, ch
}

// Emit attempts a non-blocking send; on a full channel the event is
// dropped and the counter incremented rather than blocking the caller.
// Seq is assigned before the send attempt, so dropped events still
// consume a sequence number and gaps in Seq reveal drops.
func (e *Emitter) Emit(evt Event) {
	e.seq++
	evt.Seq = e.seq
	select {
	case e.ch <- evt:
	default:
		e.Dropped.n++
	}
}

// Close closes the underlying channel. Call only after the producer side
// is done emitting.
func (e *Emitter) Close() {
	close(e.ch)
}
