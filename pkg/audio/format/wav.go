package format

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// streamSize is the placeholder written into the RIFF and data chunk size
// fields. The payload is emitted chunk by chunk before its total length is
// known, so sizes stay open-ended the way browser recorders emit streaming
// WAV. Transcription services accept this form.
const streamSize = 0xFFFFFFFF

// wavEncoder emits a PCM16 little-endian WAV stream. The 44-byte header is
// included in the first flushed chunk.
type wavEncoder struct {
	sampleRate int
	channels   int

	headerSent bool
	pending    bytes.Buffer
	closed     bool
}

func newWAVEncoder(sampleRate, channels int) (Encoder, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.New("format: wav encoder needs positive sample rate and channels")
	}
	return &wavEncoder{sampleRate: sampleRate, channels: channels}, nil
}

func (e *wavEncoder) Encode(frame []int16) error {
	if e.closed {
		return errors.New("format: encode on closed wav encoder")
	}
	for _, s := range frame {
		e.pending.WriteByte(byte(s))
		e.pending.WriteByte(byte(s >> 8))
	}
	return nil
}

func (e *wavEncoder) Flush() ([]byte, error) {
	var out bytes.Buffer
	if !e.headerSent {
		e.writeHeader(&out)
		e.headerSent = true
	}
	out.Write(e.pending.Bytes())
	e.pending.Reset()
	if out.Len() == 0 {
		return nil, nil
	}
	return out.Bytes(), nil
}

func (e *wavEncoder) Close() ([]byte, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true
	return e.Flush()
}

func (e *wavEncoder) writeHeader(w *bytes.Buffer) {
	byteRate := e.sampleRate * e.channels * 2
	blockAlign := e.channels * 2

	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(streamSize))
	w.WriteString("WAVE")

	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(w, binary.LittleEndian, uint16(e.channels))
	binary.Write(w, binary.LittleEndian, uint32(e.sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(byteRate))
	binary.Write(w, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w, binary.LittleEndian, uint16(16)) // bits per sample

	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, uint32(streamSize))
}
