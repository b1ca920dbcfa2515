package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kisara/internal/catalog"
	"kisara/internal/classify"
	"kisara/internal/session"
	"kisara/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unknown episodes,
// torrents and empty torrents are client errors; the rest is 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		noEp      catalog.NoSuchEpisodeError
		noTorrent session.NoSuchTorrentError
		noVideo   classify.NoVideoFoundError
	)
	switch {
	case errors.As(err, &noEp), errors.As(err, &noTorrent):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &noVideo):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseEpisodeID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("epId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad epId %q", raw)
	}
	return id, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	epID, err := parseEpisodeID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	anime, ep, err := s.Catalog.AnimeAndEpisode(r.Context(), epID)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := s.Search.Search(r.Context(), ep, anime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleTorrentAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	magnet := r.URL.Query().Get("magnet")
	if !strings.HasPrefix(magnet, "magnet:") {
		http.Error(w, "bad magnet", http.StatusBadRequest)
		return
	}
	epID, err := parseEpisodeID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.Session.Add(magnet)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Catalog.SetEpisodeTorrent(r.Context(), epID, id); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("[http] added torrent %s for episode %d", id, epID)
	writeJSON(w, http.StatusOK, map[string]string{"torrentId": id})
}

func (s *Server) handleTorrentRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("torrentId")
	if id == "" {
		http.Error(w, "missing torrentId", http.StatusBadRequest)
		return
	}
	if err := s.Session.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Catalog.ClearTorrent(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleTorrentPresent(w http.ResponseWriter, r *http.Request) {
	epID, err := parseEpisodeID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.Catalog.TorrentForEpisode(r.Context(), epID)
	if err != nil {
		writeError(w, err)
		return
	}
	present := id != "" && s.Session.Exists(id)
	if id != "" && !present {
		// stale binding: the engine dropped this torrent
		if err := s.Catalog.ClearTorrent(r.Context(), id); err != nil {
			log.Printf("[http] clear stale torrent %s: %v", id, err)
		}
	}
	resp := map[string]any{"present": present}
	if present {
		resp["torrentId"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

type torrentStatRow struct {
	types.TorrentStats
	EpisodeID int `json:"episodeId,omitempty"`
	AnimeID   int `json:"animeId,omitempty"`
}

func (s *Server) handleTorrentStats(w http.ResponseWriter, r *http.Request) {
	rows := make(map[string]torrentStatRow)
	for id, st := range s.Session.Stats() {
		row := torrentStatRow{TorrentStats: st}
		if ep, ok, err := s.Catalog.EpisodeByTorrent(r.Context(), id); err == nil && ok {
			row.EpisodeID = ep.ID
			row.AnimeID = ep.AnimeID
		}
		rows[id] = row
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("torrentId")
	if id == "" {
		http.Error(w, "missing torrentId", http.StatusBadRequest)
		return
	}
	info, err := s.Playback.Play(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	epID, err := parseEpisodeID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pos, err := strconv.ParseFloat(r.URL.Query().Get("pos"), 64)
	if err != nil || pos < 0 {
		http.Error(w, "bad pos", http.StatusBadRequest)
		return
	}
	if err := s.Catalog.SaveProgress(r.Context(), epID, pos); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// handleEvents streams torrent lifecycle events over SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = io.WriteString(w, "retry: 2000\n\n")
	rc := http.NewResponseController(w)
	_ = rc.Flush()

	ch, cancel := s.Events.Subscribe()
	defer cancel()

	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(ev)
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, b); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
