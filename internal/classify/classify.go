// Package classify decides which file of a multi-file torrent is the
// episode video. Videos are recognized by content sniffing and ranked by
// probed duration (the main episode is typically the longest file);
// subtitles are matched by extension and passed through untouched.
package classify

import (
	"container/heap"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var subtitleExts = map[string]bool{
	".srt": true,
	".sub": true,
	".ass": true,
	".vtt": true,
}

// NoVideoFoundError reports a torrent without a single playable video.
type NoVideoFoundError struct {
	TorrentID string
}

func (e NoVideoFoundError) Error() string {
	return "no video found in torrent: " + e.TorrentID
}

// FileEntry is the engine's read-only view of one torrent file.
type FileEntry struct {
	RelPath string
	Size    int64
}

// Result is the outcome of one classification call: exactly one video and
// every subtitle candidate in discovery order.
type Result struct {
	Video     string
	Subtitles []string
}

// Classifier resolves file kinds and durations. The function fields exist
// so tests can avoid touching ffprobe and real media bytes; zero values
// fall back to mimetype sniffing and must be wired a prober.
type Classifier struct {
	// ProbeDuration measures a video's duration in seconds.
	ProbeDuration func(ctx context.Context, path string) (float64, error)
	// DetectMIME returns the sniffed MIME type of the file at path.
	DetectMIME func(path string) (string, error)
}

func New(probe func(ctx context.Context, path string) (float64, error)) *Classifier {
	return &Classifier{ProbeDuration: probe, DetectMIME: detectMIME}
}

func detectMIME(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

// Classify scans the torrent's files rooted at downloadRoot and selects the
// longest-duration video. Any sniff or probe failure aborts the whole call:
// the winner is only meaningful against a fully probed candidate set.
func (c *Classifier) Classify(ctx context.Context, torrentID, downloadRoot string, files []FileEntry) (Result, error) {
	detect := c.DetectMIME
	if detect == nil {
		detect = detectMIME
	}

	videos := &videoHeap{}
	var subtitles []string

	for _, f := range files {
		path := filepath.Join(downloadRoot, f.RelPath)

		if subtitleExts[strings.ToLower(filepath.Ext(path))] {
			subtitles = append(subtitles, path)
			continue
		}

		mime, err := detect(path)
		if err != nil {
			return Result{}, fmt.Errorf("sniff %s: %w", path, err)
		}
		if !strings.HasPrefix(mime, "video/") {
			continue
		}

		duration, err := c.ProbeDuration(ctx, path)
		if err != nil {
			return Result{}, fmt.Errorf("probe %s: %w", path, err)
		}
		heap.Push(videos, videoCandidate{path: path, duration: duration})
	}

	if videos.Len() == 0 {
		return Result{}, NoVideoFoundError{TorrentID: torrentID}
	}

	best := heap.Pop(videos).(videoCandidate)
	log.Printf("[classify] torrent=%s video=%q duration=%.1fs subtitles=%d",
		torrentID, best.path, best.duration, len(subtitles))
	return Result{Video: best.path, Subtitles: subtitles}, nil
}

type videoCandidate struct {
	path     string
	duration float64
}

// videoHeap is a max-heap by duration.
type videoHeap []videoCandidate

func (h videoHeap) Len() int            { return len(h) }
func (h videoHeap) Less(i, j int) bool  { return h[i].duration > h[j].duration }
func (h videoHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *videoHeap) Push(x any)         { *h = append(*h, x.(videoCandidate)) }
func (h *videoHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
