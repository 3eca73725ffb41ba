package web

import "sync"

// TrackBroadcaster fans track updates out to websocket subscribers. The most
// recent update is kept so a new subscriber gets an immediate sample, and a
// slow subscriber drops updates rather than blocking the tracker loop.
type TrackBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan TrackUpdate
	nextID   int
	last     TrackUpdate
	haveLast bool
}

func NewTrackBroadcaster() *TrackBroadcaster {
	return &TrackBroadcaster{subs: make(map[int]chan TrackUpdate)}
}

func (b *TrackBroadcaster) Subscribe(buffer int) (int, <-chan TrackUpdate) {
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan TrackUpdate, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last := b.last
	have := b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *TrackBroadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *TrackBroadcaster) Publish(upd TrackUpdate) {
	b.mu.RLock()
	subs := make([]chan TrackUpdate, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- upd:
		default:
		}
	}
	b.mu.Lock()
	b.last = upd
	b.haveLast = true
	b.mu.Unlock()
}
