// Package logx provides a filtering, de-duplicating io.Writer for the
// stdlib logger. Lines failing the allow pattern or matching the deny
// pattern are dropped; identical lines repeated within the window are
// collapsed to one.
package logx

import (
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Writer struct {
	dst    io.Writer
	allow  *regexp.Regexp
	deny   *regexp.Regexp
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

// New builds a Writer. Empty or invalid patterns disable the respective
// filter rather than failing.
func New(dst io.Writer, window time.Duration, allowPattern, denyPattern string) *Writer {
	w := &Writer{dst: dst, window: window, seen: make(map[string]time.Time)}
	if p := strings.TrimSpace(allowPattern); p != "" {
		w.allow, _ = regexp.Compile(p)
	}
	if p := strings.TrimSpace(denyPattern); p != "" {
		w.deny, _ = regexp.Compile(p)
	}
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	line := string(p)
	if w.deny != nil && w.deny.MatchString(line) {
		return len(p), nil
	}
	if w.allow != nil && !w.allow.MatchString(line) {
		return len(p), nil
	}
	if w.window > 0 && w.isDuplicate(strings.TrimRight(line, "\r\n")) {
		return len(p), nil
	}
	return w.dst.Write(p)
}

func (w *Writer) isDuplicate(key string) bool {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.seen[key]; ok && now.Sub(last) < w.window {
		return true
	}
	// prune stale keys so the map does not grow without bound
	if len(w.seen) > 1024 {
		for k, t := range w.seen {
			if now.Sub(t) >= w.window {
				delete(w.seen, k)
			}
		}
	}
	w.seen[key] = now
	return false
}
