package search

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"kisara/pkg/types"
)

const nyaaBaseURL = "https://nyaa.si"

// NyaaAdapter scrapes the nyaa.si listing pages. One request is issued per
// synthesized keyword; keywords run concurrently and a failed keyword only
// loses its own results.
type NyaaAdapter struct {
	Client  *http.Client
	BaseURL string // defaults to nyaa.si
}

func NewNyaaAdapter(client *http.Client) *NyaaAdapter {
	return &NyaaAdapter{Client: client, BaseURL: nyaaBaseURL}
}

func (a *NyaaAdapter) Name() string  { return "Nyaa" }
func (a *NyaaAdapter) Priority() int { return 1 }

func (a *NyaaAdapter) Search(ctx context.Context, ep types.Episode, anime types.Anime, page int) ([]types.Release, error) {
	keywords := Keywords(ep, anime)
	log.Printf("[nyaa] searching ep=%d keywords=%d", ep.ID, len(keywords))

	var (
		mu  sync.Mutex
		all []types.Release
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, kw := range keywords {
		kw := kw
		g.Go(func() error {
			rels, err := a.searchKeyword(gctx, kw, page)
			if err != nil {
				// one keyword failing must not abort its siblings
				log.Printf("[nyaa] keyword %q failed: %v", kw, err)
				return nil
			}
			mu.Lock()
			all = append(all, rels...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ranked := dedupeAndRank(all)
	log.Printf("[nyaa] found %d releases for ep=%d", len(ranked), ep.ID)
	return ranked, nil
}

func (a *NyaaAdapter) searchKeyword(ctx context.Context, keyword string, page int) ([]types.Release, error) {
	base := a.BaseURL
	if base == "" {
		base = nyaaBaseURL
	}
	u := fmt.Sprintf("%s/?f=0&c=1_0&q=%s&s=seeders&o=desc&p=%d", base, url.QueryEscape(keyword), page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nyaa returned status %d", resp.StatusCode)
	}
	return parseNyaaListing(base, resp.Body)
}

// parseNyaaListing scrapes one results page. A missing results table fails
// the whole page; a row missing its name or magnet cell is skipped.
func parseNyaaListing(base string, r io.Reader) ([]types.Release, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	table := doc.Find("table.torrent-list")
	if table.Length() == 0 {
		return nil, HTMLParseError{Selector: "table.torrent-list"}
	}

	var out []types.Release
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		nameLink := row.Find("td:nth-child(2) > a:not(.comments)").First()
		if nameLink.Length() == 0 {
			return
		}
		name := strings.TrimSpace(nameLink.Text())

		var detailURL *string
		if href, ok := nameLink.Attr("href"); ok {
			u := base + href
			detailURL = &u
		}

		magnet, ok := row.Find(`td:nth-child(3) > a[href^="magnet:"]`).First().Attr("href")
		if !ok {
			return
		}

		out = append(out, types.Release{
			Name:     name,
			Size:     cellText(row, "td:nth-child(4)"),
			URL:      detailURL,
			Magnet:   magnet,
			Date:     cellText(row, "td:nth-child(5)"),
			Seeders:  cellInt(row, "td:nth-child(6)"),
			Leechers: cellInt(row, "td:nth-child(7)"),
		})
	})
	return out, nil
}

func cellText(row *goquery.Selection, selector string) *string {
	cell := row.Find(selector).First()
	if cell.Length() == 0 {
		return nil
	}
	s := strings.TrimSpace(cell.Text())
	return &s
}

func cellInt(row *goquery.Selection, selector string) *int {
	s := cellText(row, selector)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil
	}
	return &n
}
