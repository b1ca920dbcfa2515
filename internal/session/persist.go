package session

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// sessionStore keeps the magnet list on disk so unfinished downloads can
// be re-attached after a restart. Keys are torrent identifiers.
type sessionStore struct {
	mu      sync.Mutex
	path    string
	magnets map[string]string
}

func newSessionStore(path string) *sessionStore {
	s := &sessionStore{path: path, magnets: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[session] read store: %v", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.magnets); err != nil {
		log.Printf("[session] decode store: %v", err)
		s.magnets = make(map[string]string)
	}
	return s
}

func (s *sessionStore) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.magnets))
	for k, v := range s.magnets {
		out[k] = v
	}
	return out
}

func (s *sessionStore) Put(id, magnet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.magnets[id] = magnet
	s.flush()
}

func (s *sessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.magnets, id)
	s.flush()
}

func (s *sessionStore) flush() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Printf("[session] store dir: %v", err)
		return
	}
	data, err := json.MarshalIndent(s.magnets, "", "  ")
	if err != nil {
		log.Printf("[session] encode store: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Printf("[session] write store: %v", err)
	}
}
