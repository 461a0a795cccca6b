package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"idregistry/core/events"
)

const (
	eventHistoryLimit    = 1024
	eventSubscriberQueue = 32
)

// EventUpdate is a committed registry event tagged with its position in the
// node's event stream.
type EventUpdate struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type eventStream struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan EventUpdate
	history []EventUpdate
}

func cloneEventUpdate(update EventUpdate) EventUpdate {
	cloned := update
	if update.Attributes != nil {
		cloned.Attributes = make(map[string]string, len(update.Attributes))
		for k, v := range update.Attributes {
			cloned.Attributes[k] = v
		}
	}
	return cloned
}

// publish appends record to the history and fans it out. Slow subscribers
// miss updates rather than block the writer.
func (s *eventStream) publish(record *events.Record) {
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	update := EventUpdate{
		Sequence:   s.seq,
		Cursor:     strconv.FormatUint(s.seq, 10),
		Type:       record.Type,
		Attributes: record.Attributes,
	}
	s.history = append(s.history, cloneEventUpdate(update))
	if len(s.history) > eventHistoryLimit {
		excess := len(s.history) - eventHistoryLimit
		trimmed := make([]EventUpdate, eventHistoryLimit)
		copy(trimmed, s.history[excess:])
		s.history = trimmed
	}
	for _, ch := range s.subs {
		select {
		case ch <- cloneEventUpdate(update):
		default:
		}
	}
}

// SubscribeEvents registers a subscriber for committed registry events. The
// returned backlog holds retained events after cursor; an empty cursor
// replays the whole retained history. The channel is closed by cancel or when
// ctx is done.
func (n *Node) SubscribeEvents(ctx context.Context, cursor string) (<-chan EventUpdate, func(), []EventUpdate, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		since = parsed
	}

	updates := make(chan EventUpdate, eventSubscriberQueue)
	s := &n.stream
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan EventUpdate)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = updates
	backlog := make([]EventUpdate, 0, len(s.history))
	for _, entry := range s.history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneEventUpdate(entry))
		}
	}
	s.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			s.mu.Lock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}
	return updates, cancel, backlog, nil
}
