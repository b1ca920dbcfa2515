package search

import (
	"reflect"
	"testing"

	"kisara/pkg/types"
)

func TestKeywordsPadsAndQuotes(t *testing.T) {
	anime := types.Anime{Name: "Frieren"}
	ep := types.Episode{Ep: intPtr(7)}

	got := Keywords(ep, anime)
	want := []string{`Frieren "07"`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKeywordsNoPadAtTen(t *testing.T) {
	got := Keywords(types.Episode{Ep: intPtr(12)}, types.Anime{Name: "Frieren"})
	want := []string{`Frieren "12"`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKeywordsCollectsAllBases(t *testing.T) {
	anime := types.Anime{
		Name:     "Sousou no Frieren",
		NameCN:   "葬送的芙莉莲",
		Aliases:  []string{"Frieren", "Frieren: Beyond Journey's End"},
		Keywords: []string{"1080p"},
	}
	got := Keywords(types.Episode{Ep: intPtr(3)}, anime)
	if len(got) != 5 {
		t.Fatalf("expected 5 keywords, got %d: %v", len(got), got)
	}
	for _, kw := range got {
		if kw[len(kw)-4:] != `"03"` {
			t.Errorf("keyword %q missing quoted episode", kw)
		}
	}
}

func TestKeywordsDropsBlanksAndDuplicates(t *testing.T) {
	anime := types.Anime{
		Name:    "Frieren",
		NameCN:  "  ",
		Aliases: []string{"Frieren", "", " Frieren "},
	}
	got := Keywords(types.Episode{Ep: intPtr(1)}, anime)
	want := []string{`Frieren "01"`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestKeywordsFallsBackToSort(t *testing.T) {
	ep := types.Episode{Sort: 9}
	got := Keywords(ep, types.Anime{Name: "X"})
	want := []string{`X "09"`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func intPtr(n int) *int { return &n }
