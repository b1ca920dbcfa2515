// Package httpapi is the HTTP surface of the daemon. Handlers translate
// query parameters into service calls and service errors into status
// codes; all domain logic lives behind the interfaces below.
package httpapi

import (
	"context"
	"net/http"

	"kisara/internal/events"
	"kisara/internal/middleware"
	"kisara/pkg/types"
)

// Searcher aggregates release results across registered sources.
type Searcher interface {
	Search(ctx context.Context, ep types.Episode, anime types.Anime) (map[string][]types.Release, error)
}

// Sessions is the torrent engine boundary.
type Sessions interface {
	Add(magnet string) (string, error)
	Remove(id string) error
	Exists(id string) bool
	Stats() map[string]types.TorrentStats
}

// Catalog is the episode metadata boundary.
type Catalog interface {
	AnimeAndEpisode(ctx context.Context, episodeID int64) (types.Anime, types.Episode, error)
	SetEpisodeTorrent(ctx context.Context, episodeID int64, torrentID string) error
	TorrentForEpisode(ctx context.Context, episodeID int64) (string, error)
	EpisodeByTorrent(ctx context.Context, torrentID string) (types.Episode, bool, error)
	ClearTorrent(ctx context.Context, torrentID string) error
	SaveProgress(ctx context.Context, episodeID int64, positionSeconds float64) error
}

// Player owns the single active playback session.
type Player interface {
	Play(ctx context.Context, torrentID string) (types.ServeInfo, error)
}

// Subscriber hands out event streams for the SSE endpoint.
type Subscriber interface {
	Subscribe() (<-chan events.Event, func())
}

type Server struct {
	Search   Searcher
	Session  Sessions
	Catalog  Catalog
	Playback Player
	Events   Subscriber
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			middleware.EnableCORS(w)
			if r.Method == http.MethodOptions {
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/search", withCORS(s.handleSearch))
	mux.HandleFunc("/torrents/add", withCORS(s.handleTorrentAdd))
	mux.HandleFunc("/torrents/remove", withCORS(s.handleTorrentRemove))
	mux.HandleFunc("/torrents/present", withCORS(s.handleTorrentPresent))
	mux.HandleFunc("/torrents/stats", withCORS(s.handleTorrentStats))
	mux.HandleFunc("/play", withCORS(s.handlePlay))
	mux.HandleFunc("/progress", withCORS(s.handleProgress))
	mux.HandleFunc("/events", withCORS(s.handleEvents))
}
