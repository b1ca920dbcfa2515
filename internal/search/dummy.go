package search

import (
	"context"

	"kisara/pkg/types"
)

// DummyAdapter is the no-op source. It keeps the registry honest: an
// adapter with no results must be omitted from the answer entirely.
type DummyAdapter struct{}

func (DummyAdapter) Name() string  { return "Dummy" }
func (DummyAdapter) Priority() int { return 0 }

func (DummyAdapter) Search(context.Context, types.Episode, types.Anime, int) ([]types.Release, error) {
	return nil, nil
}
