package format

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	opus "gopkg.in/hraban/opus.v2"
)

const (
	// opusFrameMs is the Opus frame duration. 20 ms is the codec's default
	// and what voice pipelines use.
	opusFrameMs = 20

	// opusMaxPacket bounds one encoded Opus packet.
	opusMaxPacket = 4000

	// rtpTimestampStep is the RTP timestamp increment per 20 ms frame. Opus
	// RTP timestamps always run at 48 kHz regardless of the input rate.
	rtpTimestampStep = 960
)

// oggOpusEncoder wraps libopus and an Ogg page writer. Encoded packets are
// carried to the writer as synthetic RTP packets, the same path a live
// WebRTC track would feed it.
type oggOpusEncoder struct {
	enc *opus.Encoder
	ogg *oggwriter.OggWriter
	out *bytes.Buffer

	frameSize int // samples per channel per Opus frame
	pcm       []int16
	packet    []byte

	seq    uint16
	ts     uint32
	closed bool
}

func newOggOpusEncoder(sampleRate, channels int) (Encoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("format: opus encoder: %w", err)
	}

	out := &bytes.Buffer{}
	ogg, err := oggwriter.NewWith(out, uint32(sampleRate), uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("format: ogg writer: %w", err)
	}

	return &oggOpusEncoder{
		enc:       enc,
		ogg:       ogg,
		out:       out,
		frameSize: sampleRate * opusFrameMs / 1000,
		packet:    make([]byte, opusMaxPacket),
		ts:        rtpTimestampStep,
	}, nil
}

func (e *oggOpusEncoder) Encode(frame []int16) error {
	if e.closed {
		return errors.New("format: encode on closed opus encoder")
	}
	e.pcm = append(e.pcm, frame...)
	for len(e.pcm) >= e.frameSize {
		if err := e.writeFrame(e.pcm[:e.frameSize]); err != nil {
			return err
		}
		e.pcm = e.pcm[e.frameSize:]
	}
	return nil
}

func (e *oggOpusEncoder) Flush() ([]byte, error) {
	if e.out.Len() == 0 {
		return nil, nil
	}
	chunk := make([]byte, e.out.Len())
	copy(chunk, e.out.Bytes())
	e.out.Reset()
	return chunk, nil
}

func (e *oggOpusEncoder) Close() ([]byte, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true

	// Pad the tail to a full Opus frame so no captured audio is dropped.
	if len(e.pcm) > 0 {
		tail := make([]int16, e.frameSize)
		copy(tail, e.pcm)
		e.pcm = nil
		if err := e.writeFrame(tail); err != nil {
			return nil, err
		}
	}
	if err := e.ogg.Close(); err != nil {
		return nil, fmt.Errorf("format: close ogg writer: %w", err)
	}
	return e.Flush()
}

func (e *oggOpusEncoder) writeFrame(pcm []int16) error {
	n, err := e.enc.Encode(pcm, e.packet)
	if err != nil {
		return fmt.Errorf("format: opus encode: %w", err)
	}

	e.seq++
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111,
			SequenceNumber: e.seq,
			Timestamp:      e.ts,
		},
		Payload: append([]byte(nil), e.packet[:n]...),
	}
	e.ts += rtpTimestampStep

	if err := e.ogg.WriteRTP(pkt); err != nil {
		return fmt.Errorf("format: write ogg page: %w", err)
	}
	return nil
}
