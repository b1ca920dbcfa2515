package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"kisara/internal/catalog"
	"kisara/internal/classify"
	"kisara/internal/config"
	"kisara/internal/events"
	"kisara/internal/httpapi"
	"kisara/internal/mediatool"
	"kisara/internal/middleware"
	"kisara/internal/search"
	"kisara/internal/serve"
	"kisara/internal/session"
	"kisara/internal/subtitle"
)

func mustOpenCatalog() *catalog.Store {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		log.Fatal("PG_DSN missing")
	}
	store, err := catalog.Open(dsn)
	if err != nil {
		log.Fatal(err)
	}
	return store
}

// searchClient builds the scraper HTTP client, honoring the optional
// proxy for regions where the source is blocked.
func searchClient() *http.Client {
	transport := http.DefaultTransport
	if p := config.ProxyURL(); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			log.Fatalf("bad HTTP_PROXY %q: %v", p, err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}
	return &http.Client{Timeout: config.SearchTimeout(), Transport: transport}
}

func main() {
	_ = godotenv.Load(".env")

	// initialize config & logging
	config.Load()
	config.SetupLogging()

	store := mustOpenCatalog()

	tools := mediatool.New(config.FFProbePath(), config.FFMpegPath())
	classifier := classify.New(tools.Duration)
	bus := events.NewBus()

	mgr, err := session.NewManager(config.DownloadRoot(), config.WaitMetadata(), bus, classifier)
	if err != nil {
		log.Fatal(err)
	}

	registry := search.NewRegistry(
		search.NewNyaaAdapter(searchClient()),
		search.DummyAdapter{},
	)

	playback := &serve.Playback{
		Signal:     serve.NewSignal(),
		Resolver:   mgr,
		Normalizer: subtitle.NewNormalizer(tools),
		Root:       config.DownloadRoot(),
		Addr:       config.ServeAddr(),
	}

	api := &httpapi.Server{
		Search:   registry,
		Session:  mgr,
		Catalog:  store,
		Playback: playback,
		Events:   bus,
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	// not found for everything else (with CORS preflight support)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.EnableCORS(w)
			return
		}
		http.NotFound(w, r)
	})

	addr := config.ListenAddr()
	log.Printf("[boot] kisarad listening on %s root=%s serve=%s waitMetadata=%s",
		addr, config.DownloadRoot(), config.ServeAddr(), config.WaitMetadata())

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := &http.Server{
		Addr:     addr,
		Handler:  middleware.Recover(mux),
		ErrorLog: log.New(log.Writer(), "[http] ", 0),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-rootCtx.Done()
	log.Printf("[boot] shutdown requested, %d torrents still downloading", mgr.DownloadingCount())

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)

	mgr.Close()
	_ = store.Close()

	log.Printf("[boot] shutdown complete")
}
