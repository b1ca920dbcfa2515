package types

// Release is one discovered torrent entry from a search source. Immutable
// once parsed; the magnet string doubles as the dedup identifier.
type Release struct {
	Name     string  `json:"name"`
	Size     *string `json:"size,omitempty"`
	URL      *string `json:"url,omitempty"`
	Magnet   string  `json:"magnet"`
	Date     *string `json:"date,omitempty"`
	Seeders  *int    `json:"seeders,omitempty"`
	Leechers *int    `json:"leechers,omitempty"`
	Uploader *string `json:"uploader,omitempty"`
}

// SeederCount treats an unknown seeder count as zero for ranking.
func (r Release) SeederCount() int {
	if r.Seeders == nil {
		return 0
	}
	return *r.Seeders
}

// Anime is the catalog record the search layer builds keywords from.
type Anime struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	NameCN   string   `json:"nameCn"`
	Aliases  []string `json:"aliases"`
	Keywords []string `json:"keywords"`
}

// Episode is one episode row. Ep is the canonical broadcast number and may
// be absent; Sort is the position inside the season and always set.
type Episode struct {
	ID        int    `json:"id"`
	AnimeID   int    `json:"animeId"`
	Ep        *int   `json:"ep,omitempty"`
	Sort      int    `json:"sort"`
	TorrentID string `json:"torrentId,omitempty"`
}

// DisplayNumber is the number used in search keywords: the canonical episode
// number when known, the sort position otherwise.
func (e Episode) DisplayNumber() int {
	if e.Ep != nil {
		return *e.Ep
	}
	return e.Sort
}

// ServeInfo is the served route pair for the current playback selection.
type ServeInfo struct {
	Video     string   `json:"video"`
	Subtitles []string `json:"subtitles"`
}

// TorrentStats is one row of the session stats snapshot.
type TorrentStats struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TotalBytes     int64   `json:"totalBytes"`
	CompletedBytes int64   `json:"completedBytes"`
	Finished       bool    `json:"finished"`
	Progress       float64 `json:"progress"`
}
