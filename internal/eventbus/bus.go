// Package eventbus fans client status events out to UI subscribers.
package eventbus

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tileboard/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventConnection carries connection state changes.
	EventConnection EventType = "connection"
	// EventRoster carries roster updates.
	EventRoster EventType = "roster"
	// EventNotice carries user-facing notices.
	EventNotice EventType = "notice"
)

// ConnectionState is the sync client's link state.
type ConnectionState string

const (
	// StateDisconnected means no connection and no attempt in flight.
	StateDisconnected ConnectionState = "disconnected"
	// StateConnecting means a connect or reconnect attempt is in flight.
	StateConnecting ConnectionState = "connecting"
	// StateConnected means the link is up.
	StateConnected ConnectionState = "connected"
)

// ConnectionEvent reports a state change, with retry bookkeeping while
// reconnecting.
type ConnectionEvent struct {
	State   ConnectionState
	Attempt int
	RetryIn time.Duration
}

// RosterEvent reports the roster after a join or leave.
type RosterEvent struct {
	Users    []schema.Participant
	Joined   *schema.Participant
	LeftName string
}

// NoticeEvent is a short user-facing message.
type NoticeEvent struct {
	Kind string
	Text string
}

// Event is a UI-facing event emitted by the sync client.
type Event struct {
	Type       EventType
	Connection ConnectionEvent
	Roster     RosterEvent
	Notice     NoticeEvent
}

// Bus fans events out to subscribers. Slow subscribers drop events rather
// than block the publisher.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
		if b.log != nil {
			b.log.Debug("eventbus unsubscribe")
		}
	}
}

// OnConnection publishes a connection state change.
func (b *Bus) OnConnection(event ConnectionEvent) {
	b.publish(Event{Type: EventConnection, Connection: event})
}

// OnRoster publishes a roster update.
func (b *Bus) OnRoster(event RosterEvent) {
	b.publish(Event{Type: EventRoster, Roster: event})
}

// OnNotice publishes a notice.
func (b *Bus) OnNotice(event NoticeEvent) {
	b.publish(Event{Type: EventNotice, Notice: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := make([]chan Event, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
