package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "torrents.json")

	s := newSessionStore(path)
	s.Put("aaa", "magnet:?xt=urn:btih:aaa")
	s.Put("bbb", "magnet:?xt=urn:btih:bbb")
	s.Remove("aaa")

	// a fresh store sees only what survived
	reloaded := newSessionStore(path)
	got := reloaded.All()
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	if got["bbb"] != "magnet:?xt=urn:btih:bbb" {
		t.Fatalf("magnet = %q", got["bbb"])
	}
}

func TestSessionStoreMissingFile(t *testing.T) {
	s := newSessionStore(filepath.Join(t.TempDir(), "nope", "torrents.json"))
	if len(s.All()) != 0 {
		t.Fatal("expected empty store")
	}
}

func TestSessionStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torrents.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newSessionStore(path)
	if len(s.All()) != 0 {
		t.Fatal("corrupt store must start empty")
	}
	// and remain writable
	s.Put("aaa", "magnet:a")
	if newSessionStore(path).All()["aaa"] != "magnet:a" {
		t.Fatal("store not writable after corrupt load")
	}
}

func TestSessionStoreAllReturnsCopy(t *testing.T) {
	s := newSessionStore(filepath.Join(t.TempDir(), "torrents.json"))
	s.Put("aaa", "magnet:a")
	m := s.All()
	m["aaa"] = "mutated"
	if s.All()["aaa"] != "magnet:a" {
		t.Fatal("All must hand out a copy")
	}
}
