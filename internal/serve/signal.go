// Package serve exposes a finished episode's files over a loop-back HTTP
// server so the player can stream them with range requests.
package serve

import (
	"sync"

	"kisara/pkg/types"
)

// Signal coordinates one active playback session. Starting a session for
// a new torrent tears the previous server down; re-requesting the same
// torrent while its routes are cached is a no-op.
type Signal struct {
	mu        sync.Mutex
	torrentID string
	stop      chan struct{}
	done      <-chan struct{}
	info      *types.ServeInfo
}

func NewSignal() *Signal {
	return &Signal{}
}

// Reset prepares a session for the given torrent. A nil return means the
// current session already serves it and the cached routes stand. Otherwise
// the prior session (if any) is stopped — and its port release awaited —
// before the returned channel is handed to Start as the teardown trigger.
func (s *Signal) Reset(torrentID string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.torrentID == torrentID && s.info != nil {
		return nil
	}
	if s.stop != nil {
		close(s.stop)
		if s.done != nil {
			<-s.done
			s.done = nil
		}
	}
	s.torrentID = torrentID
	s.info = nil
	s.stop = make(chan struct{})
	return s.stop
}

// SetInfo caches the routes for the active torrent.
func (s *Signal) SetInfo(info types.ServeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = &info
}

// SetDone records the running server's teardown acknowledgement channel.
func (s *Signal) SetDone(done <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = done
}

// Info returns the cached routes for the active torrent, if any.
func (s *Signal) Info() (types.ServeInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return types.ServeInfo{}, false
	}
	return *s.info, true
}
