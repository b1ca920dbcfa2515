package serve

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"kisara/pkg/types"
)

// routeFor derives a stable opaque route name from a file path.
func routeFor(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Start serves the video and its subtitles on a loop-back listener and
// returns the playback URLs. The server runs until stop is closed; the
// returned done channel closes once the listener has released the port,
// so a successor can bind the same address without racing the teardown.
func Start(video string, subtitles []string, stop <-chan struct{}, addr string) (types.ServeInfo, <-chan struct{}, error) {
	mux := http.NewServeMux()

	addFile := func(path string) string {
		route := "/" + routeFor(path)
		mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			http.ServeFile(w, r, path)
		})
		return route
	}

	info := types.ServeInfo{Video: "http://" + addr + addFile(video)}
	for _, sub := range subtitles {
		info.Subtitles = append(info.Subtitles, "http://"+addr+addFile(sub))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return types.ServeInfo{}, nil, fmt.Errorf("serve listen %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[serve] server: %v", err)
		}
	}()
	done := make(chan struct{})
	go func() {
		<-stop
		_ = srv.Close()
		close(done)
		log.Printf("[serve] stopped video=%q", video)
	}()

	log.Printf("[serve] started addr=%s video=%q subtitles=%d", addr, video, len(subtitles))
	return info, done, nil
}
