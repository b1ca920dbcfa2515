package search

import (
	"context"
	"errors"
	"testing"

	"kisara/pkg/types"
)

type stubAdapter struct {
	name     string
	priority int
	releases []types.Release
	err      error
	calls    int
}

func (s *stubAdapter) Name() string  { return s.name }
func (s *stubAdapter) Priority() int { return s.priority }
func (s *stubAdapter) Search(context.Context, types.Episode, types.Anime, int) ([]types.Release, error) {
	s.calls++
	return s.releases, s.err
}

func rel(magnet string, seeders *int) types.Release {
	return types.Release{Name: magnet, Magnet: magnet, Seeders: seeders}
}

func TestRegistryOmitsEmptySources(t *testing.T) {
	nyaa := &stubAdapter{name: "Nyaa", priority: 1, releases: []types.Release{rel("magnet:a", intPtr(5))}}
	dummy := &stubAdapter{name: "Dummy", priority: 0}
	r := NewRegistry(nyaa, dummy)

	got, err := r.Search(context.Background(), types.Episode{}, types.Anime{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["Dummy"]; ok {
		t.Error("empty source must be omitted from the result map")
	}
	if len(got["Nyaa"]) != 1 {
		t.Errorf("Nyaa results = %v", got["Nyaa"])
	}
	if dummy.calls != 1 {
		t.Errorf("dummy consulted %d times", dummy.calls)
	}
}

func TestRegistrySearchPropagatesError(t *testing.T) {
	bad := &stubAdapter{name: "Bad", priority: 0, err: HTMLParseError{Selector: "table.torrent-list"}}
	r := NewRegistry(bad)

	_, err := r.Search(context.Background(), types.Episode{}, types.Anime{})
	var perr HTMLParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected wrapped HTMLParseError, got %v", err)
	}
}

func TestRegistrySearchSourceUnknown(t *testing.T) {
	r := NewRegistry(DummyAdapter{})
	_, err := r.SearchSource(context.Background(), "Nope", types.Episode{}, types.Anime{}, 1)
	var uerr UnknownSourceError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnknownSourceError, got %v", err)
	}
}

func TestDedupeAndRank(t *testing.T) {
	in := []types.Release{
		rel("magnet:a", intPtr(3)),
		rel("magnet:b", nil),
		rel("magnet:a", intPtr(99)), // duplicate, first occurrence wins
		rel("magnet:c", intPtr(10)),
	}
	got := dedupeAndRank(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 releases, got %d", len(got))
	}
	order := []string{got[0].Magnet, got[1].Magnet, got[2].Magnet}
	want := []string{"magnet:c", "magnet:a", "magnet:b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if got[1].Seeders == nil || *got[1].Seeders != 3 {
		t.Errorf("duplicate should keep first occurrence, seeders = %v", got[1].Seeders)
	}
}
