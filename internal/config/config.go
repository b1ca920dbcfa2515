package config

import (
	"os"
	"path/filepath"
	"time"
)

var (
	downloadRoot = "./downloads"
	listenAddr   = ":4680"
	serveAddr    = "127.0.0.1:8000"

	ffprobePath = "ffprobe"
	ffmpegPath  = "ffmpeg"

	searchTimeout = 20 * time.Second
	waitMetadata  = 25 * time.Second
	proxyURL      = ""

	// logging
	logFilePath   = "kisara.log"
	logAllowRegex = `^\[(boot|db|search|nyaa|session|watch|classify|subs|serve|http|events)\]`
	logDenyRegex  = `FlushFileBuffers|fsync|WriteFile|Permission denied`
	logDedupWin   = 3 * time.Second
)

func Load() {
	if v := getenv("DOWNLOAD_ROOT", ""); v != "" {
		downloadRoot = v
	}
	_ = os.MkdirAll(downloadRoot, 0o755)
	if abs, err := filepath.Abs(downloadRoot); err == nil {
		downloadRoot = abs
	}

	listenAddr = getenv("LISTEN", listenAddr)
	serveAddr = getenv("SERVE_ADDR", serveAddr)

	ffprobePath = getenv("FFPROBE_PATH", ffprobePath)
	ffmpegPath = getenv("FFMPEG_PATH", ffmpegPath)

	searchTimeout = getenvDuration("SEARCH_TIMEOUT", searchTimeout)
	waitMetadata = getenvDuration("WAIT_METADATA", waitMetadata)
	proxyURL = getenv("HTTP_PROXY", proxyURL)

	logFilePath = getenv("LOG_FILE", logFilePath)
	logAllowRegex = getenv("LOG_ALLOW", logAllowRegex)
	logDenyRegex = getenv("LOG_DENY", logDenyRegex)
	logDedupWin = getenvDuration("LOG_DEDUP_WINDOW", logDedupWin)
}

// getters
func DownloadRoot() string          { return downloadRoot }
func ListenAddr() string            { return listenAddr }
func ServeAddr() string             { return serveAddr }
func FFProbePath() string           { return ffprobePath }
func FFMpegPath() string            { return ffmpegPath }
func SearchTimeout() time.Duration  { return searchTimeout }
func WaitMetadata() time.Duration   { return waitMetadata }
func ProxyURL() string              { return proxyURL }
func LogFilePath() string           { return logFilePath }
func LogAllowRegex() string         { return logAllowRegex }
func LogDenyRegex() string          { return logDenyRegex }
func LogDedupWindow() time.Duration { return logDedupWin }

// helpers
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
