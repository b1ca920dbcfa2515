package serve

import (
	"context"
	"log"

	"kisara/pkg/types"
)

// fileResolver and subtitleNormalizer are the two upstream stages of a
// playback request.
type fileResolver interface {
	ResolvePlayableFiles(ctx context.Context, id string) (video string, subtitles []string, err error)
}

type subtitleNormalizer interface {
	Normalize(ctx context.Context, downloadRoot string, video string, external []string) ([]string, error)
}

// Playback runs the full "play this torrent" pipeline: resolve the video
// and subtitle files, normalize subtitles to WebVTT, then serve
// everything on the loop-back address. At most one session is live.
type Playback struct {
	Signal     *Signal
	Resolver   fileResolver
	Normalizer subtitleNormalizer
	Root       string
	Addr       string
}

func (p *Playback) Play(ctx context.Context, torrentID string) (types.ServeInfo, error) {
	stop := p.Signal.Reset(torrentID)
	if stop == nil {
		info, _ := p.Signal.Info()
		log.Printf("[serve] reuse session torrent=%s", torrentID)
		return info, nil
	}

	video, external, err := p.Resolver.ResolvePlayableFiles(ctx, torrentID)
	if err != nil {
		return types.ServeInfo{}, err
	}
	subtitles, err := p.Normalizer.Normalize(ctx, p.Root, video, external)
	if err != nil {
		return types.ServeInfo{}, err
	}
	info, done, err := Start(video, subtitles, stop, p.Addr)
	if err != nil {
		return types.ServeInfo{}, err
	}
	p.Signal.SetInfo(info)
	p.Signal.SetDone(done)
	return info, nil
}
