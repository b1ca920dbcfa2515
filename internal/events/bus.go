// Package events carries torrent lifecycle notifications from the session
// watchers to whoever is listening (the SSE endpoint, tests). Publishing
// never blocks: a subscriber that cannot keep up loses events rather than
// stalling a watcher.
package events

import "sync"

type Kind string

const (
	TorrentInit     Kind = "torrent-init"
	TorrentComplete Kind = "torrent-complete"
)

type Event struct {
	Kind      Kind   `json:"kind"`
	TorrentID string `json:"torrentId"`
	Name      string `json:"name,omitempty"`
}

type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the channel; after cancel the channel is closed.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
