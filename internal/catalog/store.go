// Package catalog reads and writes the anime/episode records that drive
// search and playback: titles and keyword lists for query synthesis, the
// episode-to-torrent binding, and watch progress.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kisara/pkg/types"
)

// NoSuchEpisodeError reports an episode id the catalog does not contain.
type NoSuchEpisodeError struct {
	EpisodeID int64
}

func (e NoSuchEpisodeError) Error() string {
	return fmt.Sprintf("no such episode: %d", e.EpisodeID)
}

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Printf("[db] connected")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AnimeAndEpisode loads an episode together with its parent anime.
func (s *Store) AnimeAndEpisode(ctx context.Context, episodeID int64) (types.Anime, types.Episode, error) {
	const q = `
SELECT a.id, a.name, a.name_cn, a.aliases, a.keywords,
       e.id, e.anime_id, e.ep, e.sort, COALESCE(e.torrent_id, '')
FROM episode e
JOIN anime a ON a.id = e.anime_id
WHERE e.id = $1`

	var (
		anime    types.Anime
		ep       types.Episode
		aliases  []byte
		keywords []byte
	)
	err := s.db.QueryRowContext(ctx, q, episodeID).Scan(
		&anime.ID, &anime.Name, &anime.NameCN, &aliases, &keywords,
		&ep.ID, &ep.AnimeID, &ep.Ep, &ep.Sort, &ep.TorrentID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Anime{}, types.Episode{}, NoSuchEpisodeError{EpisodeID: episodeID}
	}
	if err != nil {
		return types.Anime{}, types.Episode{}, fmt.Errorf("load episode %d: %w", episodeID, err)
	}
	if len(aliases) > 0 {
		if err := json.Unmarshal(aliases, &anime.Aliases); err != nil {
			return types.Anime{}, types.Episode{}, fmt.Errorf("decode aliases for anime %d: %w", anime.ID, err)
		}
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &anime.Keywords); err != nil {
			return types.Anime{}, types.Episode{}, fmt.Errorf("decode keywords for anime %d: %w", anime.ID, err)
		}
	}
	return anime, ep, nil
}

// SetEpisodeTorrent binds an episode to the torrent that carries it.
func (s *Store) SetEpisodeTorrent(ctx context.Context, episodeID int64, torrentID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE episode SET torrent_id = $2 WHERE id = $1`, episodeID, torrentID)
	if err != nil {
		return fmt.Errorf("bind episode %d: %w", episodeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NoSuchEpisodeError{EpisodeID: episodeID}
	}
	return nil
}

// TorrentForEpisode returns the episode's bound torrent id, empty when
// none is bound.
func (s *Store) TorrentForEpisode(ctx context.Context, episodeID int64) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(torrent_id, '') FROM episode WHERE id = $1`, episodeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", NoSuchEpisodeError{EpisodeID: episodeID}
	}
	if err != nil {
		return "", fmt.Errorf("torrent for episode %d: %w", episodeID, err)
	}
	return id, nil
}

// EpisodeByTorrent finds the episode bound to a torrent. The false return
// means no episode references it.
func (s *Store) EpisodeByTorrent(ctx context.Context, torrentID string) (types.Episode, bool, error) {
	var ep types.Episode
	err := s.db.QueryRowContext(ctx,
		`SELECT id, anime_id, ep, sort, COALESCE(torrent_id, '') FROM episode WHERE torrent_id = $1`,
		torrentID).Scan(&ep.ID, &ep.AnimeID, &ep.Ep, &ep.Sort, &ep.TorrentID)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Episode{}, false, nil
	}
	if err != nil {
		return types.Episode{}, false, fmt.Errorf("episode by torrent %s: %w", torrentID, err)
	}
	return ep, true, nil
}

// ClearTorrent unbinds every episode that references the torrent.
func (s *Store) ClearTorrent(ctx context.Context, torrentID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE episode SET torrent_id = NULL WHERE torrent_id = $1`, torrentID); err != nil {
		return fmt.Errorf("clear torrent %s: %w", torrentID, err)
	}
	return nil
}

// SaveProgress upserts the last playback position for an episode.
func (s *Store) SaveProgress(ctx context.Context, episodeID int64, positionSeconds float64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO watch_progress (episode_id, position_s, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (episode_id) DO UPDATE SET position_s = EXCLUDED.position_s, updated_at = now()`,
		episodeID, positionSeconds)
	if err != nil {
		return fmt.Errorf("save progress for episode %d: %w", episodeID, err)
	}
	return nil
}
