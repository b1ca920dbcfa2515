// Package mediatool wraps the ffprobe/ffmpeg subprocess boundary: duration
// probing, subtitle stream discovery and WebVTT conversion. Non-zero exits
// surface as CommandError with the captured stderr.
package mediatool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandError reports a media tool exiting non-zero.
type CommandError struct {
	Tool   string
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Tool, e.Stderr)
}

// SubtitleStream is one embedded subtitle track. Language and Title come
// from stream tags and may be empty.
type SubtitleStream struct {
	Index    int
	Language string
	Title    string
}

type Tools struct {
	FFProbe string
	FFMpeg  string
}

func New(ffprobe, ffmpeg string) Tools {
	if strings.TrimSpace(ffprobe) == "" {
		ffprobe = "ffprobe"
	}
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	return Tools{FFProbe: ffprobe, FFMpeg: ffmpeg}
}

// Duration returns the container duration of path in seconds.
func (t Tools) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.run(ctx, t.FFProbe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, &CommandError{Tool: t.FFProbe, Stderr: fmt.Sprintf("unparseable duration %q for %s", strings.TrimSpace(out), path)}
	}
	return d, nil
}

// SubtitleStreams lists the embedded subtitle tracks of a video as
// index,language,title csv rows. Rows missing fields are skipped.
func (t Tools) SubtitleStreams(ctx context.Context, path string) ([]SubtitleStream, error) {
	out, err := t.run(ctx, t.FFProbe,
		"-v", "error",
		"-select_streams", "s",
		"-show_entries", "stream=index:stream_tags=language,title",
		"-of", "csv=p=0",
		path)
	if err != nil {
		return nil, err
	}
	return parseStreamRows(out), nil
}

func parseStreamRows(out string) []SubtitleStream {
	var streams []SubtitleStream
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), ",")
		if len(parts) < 3 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		streams = append(streams, SubtitleStream{
			Index:    idx,
			Language: strings.TrimSpace(parts[1]),
			Title:    strings.TrimSpace(parts[2]),
		})
	}
	return streams
}

// ExtractSubtitle transcodes one embedded stream of video into a WebVTT
// file at out, carrying the language/title tags over.
func (t Tools) ExtractSubtitle(ctx context.Context, video string, stream SubtitleStream, out string) error {
	_, err := t.run(ctx, t.FFMpeg,
		"-i", video,
		"-map", fmt.Sprintf("0:%d", stream.Index),
		"-c:s", "webvtt",
		"-metadata", "language="+stream.Language,
		"-metadata", "title="+stream.Title,
		out)
	return err
}

// ConvertSubtitle transcodes a standalone subtitle file into WebVTT at out.
func (t Tools) ConvertSubtitle(ctx context.Context, in, out string) error {
	_, err := t.run(ctx, t.FFMpeg, "-i", in, "-c:s", "webvtt", out)
	return err
}

func (t Tools) run(ctx context.Context, bin string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", &CommandError{Tool: bin, Stderr: msg}
	}
	return stdout.String(), nil
}
