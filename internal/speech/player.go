package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays one encoded audio clip and returns when playback has audibly
// finished. Implementations must release decoder resources on both the ended
// and the error path.
type Player interface {
	Play(ctx context.Context, audio []byte, formatTag string) error
}

// mixerRate is the speaker mixer's fixed sample rate; clips at other rates
// are resampled into it.
const mixerRate beep.SampleRate = 44100

// BeepPlayer is the speaker-backed [Player]. The underlying mixer is
// initialised once, on first use.
//
// BeepPlayer is safe for concurrent use, though callers serialise playback
// themselves: the controller never starts a clip while another is playing.
type BeepPlayer struct {
	initOnce sync.Once
	initErr  error
}

var _ Player = (*BeepPlayer)(nil)

// NewBeepPlayer returns an uninitialised player; the speaker is claimed on
// the first Play call.
func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

// Play decodes the clip, plays it through the speaker, and blocks until the
// playback-ended callback fires or ctx is cancelled. Cancelling drains the
// mixer so no audio lingers.
func (p *BeepPlayer) Play(ctx context.Context, audio []byte, formatTag string) error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(mixerRate, mixerRate.N(bufferLen))
	})
	if p.initErr != nil {
		return fmt.Errorf("speech: speaker init: %w", p.initErr)
	}

	streamer, fmtInfo, err := decode(audio, formatTag)
	if err != nil {
		return err
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if fmtInfo.SampleRate != mixerRate {
		s = beep.Resample(4, fmtInfo.SampleRate, mixerRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// bufferLen is the mixer buffer length: a tenth of a second, the usual
// latency/underrun compromise.
const bufferLen = 100 * time.Millisecond

// decode turns encoded clip bytes into a beep streamer by format tag.
func decode(audio []byte, formatTag string) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(audio))
	switch formatTag {
	case "mp3":
		s, f, err := mp3.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("speech: decode mp3: %w", err)
		}
		return s, f, nil
	case "wav":
		s, f, err := wav.Decode(rc)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("speech: decode wav: %w", err)
		}
		return s, f, nil
	default:
		return nil, beep.Format{}, fmt.Errorf("speech: undecodable audio format %q", formatTag)
	}
}
