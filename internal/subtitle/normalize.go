// Package subtitle converts embedded and external subtitle tracks into
// WebVTT under a per-video cache directory. A zero-byte marker file
// promises that everything in the directory is already normalized, making
// repeat resolution a pure read.
package subtitle

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"kisara/internal/mediatool"
)

// markerName flags a fully converted cache directory.
const markerName = ".kisara"

// Converter is the media tool surface the normalizer needs; satisfied by
// mediatool.Tools and by fakes in tests.
type Converter interface {
	SubtitleStreams(ctx context.Context, path string) ([]mediatool.SubtitleStream, error)
	ExtractSubtitle(ctx context.Context, video string, stream mediatool.SubtitleStream, out string) error
	ConvertSubtitle(ctx context.Context, in, out string) error
}

type Normalizer struct {
	Tools Converter
}

func NewNormalizer(tools Converter) *Normalizer {
	return &Normalizer{Tools: tools}
}

// Normalize prepares every subtitle for video as WebVTT files under
// <downloadRoot>/subtitles/<video file name>/ and returns their paths.
// When the marker file is present the directory contents are returned
// as-is with zero conversion work. The marker is only written after every
// conversion succeeded, so a partial failure never fakes a warm cache.
func (n *Normalizer) Normalize(ctx context.Context, downloadRoot, video string, external []string) ([]string, error) {
	videoName := filepath.Base(video)
	if videoName == "." || videoName == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid video name: %q", video)
	}
	subDir := filepath.Join(downloadRoot, "subtitles", videoName)

	marker := filepath.Join(subDir, markerName)
	if _, err := os.Stat(marker); err == nil {
		cached, err := collectVTT(subDir)
		if err != nil {
			return nil, err
		}
		log.Printf("[subs] cache hit video=%q tracks=%d", videoName, len(cached))
		return cached, nil
	}

	if err := os.MkdirAll(subDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", subDir, err)
	}

	result, err := n.convertEmbedded(ctx, subDir, video)
	if err != nil {
		return nil, err
	}
	ext, err := n.convertExternal(ctx, subDir, external)
	if err != nil {
		return nil, err
	}
	result = append(result, ext...)

	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return nil, fmt.Errorf("write marker %s: %w", marker, err)
	}
	log.Printf("[subs] converted video=%q tracks=%d", videoName, len(result))
	return result, nil
}

func (n *Normalizer) convertEmbedded(ctx context.Context, subDir, video string) ([]string, error) {
	streams, err := n.Tools.SubtitleStreams(ctx, video)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, s := range streams {
		name := s.Title
		if name == "" {
			name = fmt.Sprintf("stream%d", s.Index)
		}
		out := filepath.Join(subDir, name+".vtt")
		if _, err := os.Stat(out); err == nil {
			result = append(result, out)
			continue
		}
		if err := n.Tools.ExtractSubtitle(ctx, video, s, out); err != nil {
			return nil, err
		}
		result = append(result, out)
	}
	return result, nil
}

func (n *Normalizer) convertExternal(ctx context.Context, subDir string, subtitles []string) ([]string, error) {
	var result []string
	for _, sub := range subtitles {
		if _, err := os.Stat(sub); err != nil {
			return nil, fmt.Errorf("subtitle file does not exist: %s", sub)
		}
		base := filepath.Base(sub)
		out := filepath.Join(subDir, strings.TrimSuffix(base, filepath.Ext(base))+".vtt")
		if _, err := os.Stat(out); err == nil {
			result = append(result, out)
			continue
		}
		if err := n.Tools.ConvertSubtitle(ctx, sub, out); err != nil {
			return nil, err
		}
		result = append(result, out)
	}
	return result, nil
}

func collectVTT(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".vtt") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
