package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kisara/internal/catalog"
	"kisara/internal/events"
	"kisara/internal/session"
	"kisara/pkg/types"
)

type fakeSearcher struct {
	results map[string][]types.Release
	err     error
	gotEp   types.Episode
}

func (f *fakeSearcher) Search(_ context.Context, ep types.Episode, _ types.Anime) (map[string][]types.Release, error) {
	f.gotEp = ep
	return f.results, f.err
}

type fakeSessions struct {
	addID     string
	addErr    error
	removed   []string
	removeErr error
	exists    bool
	stats     map[string]types.TorrentStats
}

func (f *fakeSessions) Add(string) (string, error) { return f.addID, f.addErr }
func (f *fakeSessions) Remove(id string) error {
	f.removed = append(f.removed, id)
	return f.removeErr
}
func (f *fakeSessions) Exists(string) bool { return f.exists }

func (f *fakeSessions) Stats() map[string]types.TorrentStats { return f.stats }

type fakeCatalog struct {
	anime      types.Anime
	episode    types.Episode
	loadErr    error
	bound      map[int64]string
	torrentID  string
	torrentErr error
	cleared    []string
	progress   map[int64]float64
}

func (f *fakeCatalog) AnimeAndEpisode(_ context.Context, id int64) (types.Anime, types.Episode, error) {
	if f.loadErr != nil {
		return types.Anime{}, types.Episode{}, f.loadErr
	}
	return f.anime, f.episode, nil
}
func (f *fakeCatalog) SetEpisodeTorrent(_ context.Context, epID int64, torrentID string) error {
	if f.bound == nil {
		f.bound = make(map[int64]string)
	}
	f.bound[epID] = torrentID
	return nil
}
func (f *fakeCatalog) TorrentForEpisode(context.Context, int64) (string, error) {
	return f.torrentID, f.torrentErr
}
func (f *fakeCatalog) EpisodeByTorrent(context.Context, string) (types.Episode, bool, error) {
	return f.episode, f.episode.ID != 0, nil
}
func (f *fakeCatalog) ClearTorrent(_ context.Context, id string) error {
	f.cleared = append(f.cleared, id)
	return nil
}
func (f *fakeCatalog) SaveProgress(_ context.Context, epID int64, pos float64) error {
	if f.progress == nil {
		f.progress = make(map[int64]float64)
	}
	f.progress[epID] = pos
	return nil
}

type fakePlayer struct {
	info types.ServeInfo
	err  error
}

func (f *fakePlayer) Play(context.Context, string) (types.ServeInfo, error) {
	return f.info, f.err
}

type fakeEvents struct{ evs []events.Event }

func (f *fakeEvents) Subscribe() (<-chan events.Event, func()) {
	ch := make(chan events.Event, len(f.evs))
	for _, ev := range f.evs {
		ch <- ev
	}
	close(ch)
	return ch, func() {}
}

func newTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	if s.Search == nil {
		s.Search = &fakeSearcher{}
	}
	if s.Session == nil {
		s.Session = &fakeSessions{}
	}
	if s.Catalog == nil {
		s.Catalog = &fakeCatalog{}
	}
	if s.Playback == nil {
		s.Playback = &fakePlayer{}
	}
	if s.Events == nil {
		s.Events = &fakeEvents{}
	}
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchEndpoint(t *testing.T) {
	seeders := 42
	searcher := &fakeSearcher{results: map[string][]types.Release{
		"Nyaa": {{Name: "ep", Magnet: "magnet:a", Seeders: &seeders}},
	}}
	ep := 7
	srv := newTestServer(t, &Server{
		Search:  searcher,
		Catalog: &fakeCatalog{anime: types.Anime{Name: "Frieren"}, episode: types.Episode{ID: 11, Ep: &ep}},
	})

	resp, err := http.Get(srv.URL + "/search?epId=11")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string][]types.Release
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got["Nyaa"]) != 1 || got["Nyaa"][0].Magnet != "magnet:a" {
		t.Fatalf("body = %v", got)
	}
	if searcher.gotEp.ID != 11 {
		t.Errorf("searched episode %d", searcher.gotEp.ID)
	}
}

func TestSearchEndpointUnknownEpisode(t *testing.T) {
	srv := newTestServer(t, &Server{
		Catalog: &fakeCatalog{loadErr: catalog.NoSuchEpisodeError{EpisodeID: 99}},
	})
	resp, err := http.Get(srv.URL + "/search?epId=99")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSearchEndpointBadID(t *testing.T) {
	srv := newTestServer(t, &Server{})
	resp, err := http.Get(srv.URL + "/search?epId=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTorrentAdd(t *testing.T) {
	sess := &fakeSessions{addID: "aaa111"}
	cat := &fakeCatalog{}
	srv := newTestServer(t, &Server{Session: sess, Catalog: cat})

	resp, err := http.Post(srv.URL+"/torrents/add?magnet=magnet:%3Fxt%3Durn&epId=5", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if got["torrentId"] != "aaa111" {
		t.Fatalf("body = %v", got)
	}
	if cat.bound[5] != "aaa111" {
		t.Errorf("episode not bound: %v", cat.bound)
	}
}

func TestTorrentAddRejectsGet(t *testing.T) {
	srv := newTestServer(t, &Server{})
	resp, err := http.Get(srv.URL + "/torrents/add?magnet=magnet:x&epId=5")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTorrentAddRejectsBadMagnet(t *testing.T) {
	srv := newTestServer(t, &Server{})
	resp, err := http.Post(srv.URL+"/torrents/add?magnet=http://evil&epId=5", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTorrentRemove(t *testing.T) {
	sess := &fakeSessions{}
	cat := &fakeCatalog{}
	srv := newTestServer(t, &Server{Session: sess, Catalog: cat})

	resp, err := http.Post(srv.URL+"/torrents/remove?torrentId=aaa", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(sess.removed) != 1 || sess.removed[0] != "aaa" {
		t.Errorf("removed = %v", sess.removed)
	}
	if len(cat.cleared) != 1 || cat.cleared[0] != "aaa" {
		t.Errorf("cleared = %v", cat.cleared)
	}
}

func TestTorrentRemoveUnknown(t *testing.T) {
	srv := newTestServer(t, &Server{
		Session: &fakeSessions{removeErr: session.NoSuchTorrentError{ID: "zzz"}},
	})
	resp, err := http.Post(srv.URL+"/torrents/remove?torrentId=zzz", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTorrentPresent(t *testing.T) {
	srv := newTestServer(t, &Server{
		Session: &fakeSessions{exists: true},
		Catalog: &fakeCatalog{torrentID: "aaa"},
	})
	resp, err := http.Get(srv.URL + "/torrents/present?epId=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if got["present"] != true || got["torrentId"] != "aaa" {
		t.Fatalf("body = %v", got)
	}
}

func TestTorrentPresentBoundButDropped(t *testing.T) {
	// catalog still references a torrent the engine no longer has
	cat := &fakeCatalog{torrentID: "aaa"}
	srv := newTestServer(t, &Server{
		Session: &fakeSessions{exists: false},
		Catalog: cat,
	})
	resp, err := http.Get(srv.URL + "/torrents/present?epId=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if got["present"] != false {
		t.Fatalf("body = %v", got)
	}
	if len(cat.cleared) != 1 || cat.cleared[0] != "aaa" {
		t.Errorf("stale binding not cleared: %v", cat.cleared)
	}
}

func TestTorrentStatsJoinsEpisode(t *testing.T) {
	srv := newTestServer(t, &Server{
		Session: &fakeSessions{stats: map[string]types.TorrentStats{
			"aaa": {ID: "aaa", Name: "ep07.mkv", TotalBytes: 10, CompletedBytes: 10, Finished: true, Progress: 1},
		}},
		Catalog: &fakeCatalog{episode: types.Episode{ID: 5, AnimeID: 2}},
	})
	resp, err := http.Get(srv.URL + "/torrents/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string]map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	row := got["aaa"]
	if row["finished"] != true || row["episodeId"] != float64(5) || row["animeId"] != float64(2) {
		t.Fatalf("row = %v", row)
	}
}

func TestPlayEndpoint(t *testing.T) {
	srv := newTestServer(t, &Server{
		Playback: &fakePlayer{info: types.ServeInfo{
			Video:     "http://127.0.0.1:8000/abc",
			Subtitles: []string{"http://127.0.0.1:8000/def"},
		}},
	})
	resp, err := http.Get(srv.URL + "/play?torrentId=aaa")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got types.ServeInfo
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if got.Video == "" || len(got.Subtitles) != 1 {
		t.Fatalf("body = %+v", got)
	}
}

func TestProgressEndpoint(t *testing.T) {
	cat := &fakeCatalog{}
	srv := newTestServer(t, &Server{Catalog: cat})

	resp, err := http.Post(srv.URL+"/progress?epId=5&pos=123.5", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cat.progress[5] != 123.5 {
		t.Errorf("progress = %v", cat.progress)
	}

	resp, err = http.Post(srv.URL+"/progress?epId=5&pos=-1", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative pos: status = %d", resp.StatusCode)
	}
}

func TestEventsSSE(t *testing.T) {
	s := &Server{Events: &fakeEvents{evs: []events.Event{
		{Kind: events.TorrentInit, TorrentID: "aaa", Name: "ep"},
	}}}
	srv := newTestServer(t, s)

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	if !strings.Contains(body, "retry: 2000") {
		t.Errorf("missing retry directive: %q", body)
	}
	if !strings.Contains(body, "event: torrent-init") || !strings.Contains(body, `"torrentId":"aaa"`) {
		t.Errorf("missing event payload: %q", body)
	}
}
