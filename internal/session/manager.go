// Package session owns the long-lived torrent engine connection. It tracks
// each download's lifecycle with detached watchers that publish init and
// completion events, persists the magnet list so in-flight downloads
// survive a restart, and resolves a finished torrent's playable files.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"

	"kisara/internal/classify"
	"kisara/internal/events"
	"kisara/pkg/types"
)

// completionPollInterval paces the completion watcher's progress checks.
const completionPollInterval = 2 * time.Second

// NoSuchTorrentError reports an identifier the engine does not know, or a
// torrent whose metadata has not arrived yet.
type NoSuchTorrentError struct {
	ID string
}

func (e NoSuchTorrentError) Error() string {
	return "no such torrent: " + e.ID
}

// Manager wraps the engine client. All callers serialize on one mutex at
// the call-site boundary; watcher goroutines only touch the torrent handle
// and the event bus.
type Manager struct {
	mu         sync.Mutex
	client     *torrent.Client
	root       string
	bus        *events.Bus
	classifier *classify.Classifier
	store      *sessionStore
	waitInfo   time.Duration
}

func NewManager(downloadRoot string, waitInfo time.Duration, bus *events.Bus, classifier *classify.Classifier) (*Manager, error) {
	cfg := torrent.NewDefaultClientConfig()
	cfg.DisableUTP = true
	cfg.Seed = false
	return newManager(cfg, downloadRoot, waitInfo, bus, classifier)
}

func newManager(cfg *torrent.ClientConfig, downloadRoot string, waitInfo time.Duration, bus *events.Bus, classifier *classify.Classifier) (*Manager, error) {
	if err := os.MkdirAll(downloadRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create download root: %w", err)
	}
	cfg.DataDir = downloadRoot

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("torrent client init: %w", err)
	}

	m := &Manager{
		client:     client,
		root:       downloadRoot,
		bus:        bus,
		classifier: classifier,
		store:      newSessionStore(filepath.Join(downloadRoot, "session", "torrents.json")),
		waitInfo:   waitInfo,
	}
	m.restore()
	return m, nil
}

// restore re-adds every persisted magnet and re-attaches a completion
// watcher to downloads that did not finish before the last shutdown.
func (m *Manager) restore() {
	for id, magnet := range m.store.All() {
		t, err := m.client.AddMagnet(magnet)
		if err != nil {
			log.Printf("[session] restore %s failed: %v", id, err)
			m.store.Remove(id)
			continue
		}
		log.Printf("[session] restored torrent %s", t.InfoHash().HexString())
		go m.watchComplete(t)
	}
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client.Close()
}

// Add registers a magnet with the engine, spawns the init and completion
// watchers and returns the torrent identifier (infohash hex).
func (m *Manager) Add(magnet string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.client.AddMagnet(magnet)
	if err != nil {
		return "", fmt.Errorf("add magnet: %w", err)
	}
	id := t.InfoHash().HexString()
	m.store.Put(id, magnet)

	log.Printf("[session] added torrent %s", id)
	go m.watchInit(t)
	go m.watchComplete(t)
	return id, nil
}

// startDownload blocks until metadata is available and marks every piece
// wanted. Nothing is fetched before this call; both fresh adds and
// restored sessions must pass through it. Returns false if the torrent
// closed first.
func (m *Manager) startDownload(t *torrent.Torrent) bool {
	select {
	case <-t.GotInfo():
	case <-t.Closed():
		return false
	}
	t.DownloadAll()
	return true
}

// watchInit waits for torrent metadata, switches the download on and
// raises the init notification. Fire-and-forget: failures are logged only.
func (m *Manager) watchInit(t *torrent.Torrent) {
	if !m.startDownload(t) {
		return
	}
	id := t.InfoHash().HexString()
	log.Printf("[watch] torrent %s initialized name=%q files=%d", id, t.Name(), len(t.Files()))
	m.bus.Publish(events.Event{Kind: events.TorrentInit, TorrentID: id, Name: t.Name()})
}

// watchComplete waits for the last byte and raises the completion
// notification. It switches the download on itself so a torrent restored
// without an init watcher still resumes fetching. Within one torrent,
// init always precedes completion because metadata gates both.
func (m *Manager) watchComplete(t *torrent.Torrent) {
	if !m.startDownload(t) {
		return
	}

	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if t.BytesCompleted() >= t.Length() {
				id := t.InfoHash().HexString()
				log.Printf("[watch] torrent %s completed name=%q", id, t.Name())
				m.bus.Publish(events.Event{Kind: events.TorrentComplete, TorrentID: id, Name: t.Name()})
				return
			}
		case <-t.Closed():
			return
		}
	}
}

func (m *Manager) lookup(id string) (*torrent.Torrent, bool) {
	var hash metainfo.Hash
	if err := hash.FromHexString(id); err != nil {
		return nil, false
	}
	return m.client.Torrent(hash)
}

// Remove drops the torrent and deletes its downloaded data: the whole
// torrent directory for multi-file torrents, the single file otherwise.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.lookup(id)
	if !ok {
		return NoSuchTorrentError{ID: id}
	}

	var victim string
	if info := t.Info(); info != nil {
		if name := filepath.Clean(info.Name); name != "" && name != "." &&
			name != ".." && !filepath.IsAbs(name) && !strings.Contains(name, "..") {
			victim = filepath.Join(m.root, name)
		}
	}
	t.Drop()
	m.store.Remove(id)

	if victim != "" {
		if err := os.RemoveAll(victim); err != nil {
			log.Printf("[session] remove data %s: %v", victim, err)
		}
	}
	log.Printf("[session] removed torrent %s", id)
	return nil
}

func (m *Manager) Exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(id)
	return ok
}

// DownloadingCount reports the number of torrents that are not finished.
func (m *Manager) DownloadingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.client.Torrents() {
		if t.Info() == nil || t.BytesCompleted() < t.Length() {
			count++
		}
	}
	return count
}

// Stats snapshots every attached torrent keyed by identifier.
func (m *Manager) Stats() map[string]types.TorrentStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]types.TorrentStats)
	for _, t := range m.client.Torrents() {
		id := t.InfoHash().HexString()
		row := types.TorrentStats{ID: id, Name: t.Name()}
		if t.Info() != nil {
			row.TotalBytes = t.Length()
			row.CompletedBytes = t.BytesCompleted()
			row.Finished = row.CompletedBytes >= row.TotalBytes
			if row.TotalBytes > 0 {
				row.Progress = float64(row.CompletedBytes) / float64(row.TotalBytes)
			}
		}
		out[id] = row
	}
	return out
}

// ResolvePlayableFiles classifies the torrent's files into the episode
// video and its subtitle candidates, waiting a bounded time for metadata
// if it has not arrived yet.
func (m *Manager) ResolvePlayableFiles(ctx context.Context, id string) (string, []string, error) {
	m.mu.Lock()
	t, ok := m.lookup(id)
	m.mu.Unlock()
	if !ok {
		return "", nil, NoSuchTorrentError{ID: id}
	}

	select {
	case <-t.GotInfo():
	case <-t.Closed():
		return "", nil, NoSuchTorrentError{ID: id}
	case <-time.After(m.waitInfo):
		return "", nil, NoSuchTorrentError{ID: id}
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}

	entries := make([]classify.FileEntry, 0, len(t.Files()))
	for _, f := range t.Files() {
		entries = append(entries, classify.FileEntry{RelPath: f.Path(), Size: f.Length()})
	}

	res, err := m.classifier.Classify(ctx, id, m.root, entries)
	if err != nil {
		return "", nil, err
	}
	return res.Video, res.Subtitles, nil
}
