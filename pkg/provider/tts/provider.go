// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a synthesis service and returns one encoded [Clip] per
// request. Two implementations ship with the client — tts/server talks to the
// hearth backend's synthesis endpoint, tts/openai calls OpenAI speech
// directly — plus tts/mock for tests.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"strings"
	"time"
)

// Emotion selects the voice colouring for a reply. The set is fixed by the
// conversation design.
type Emotion string

const (
	EmotionCalm        Emotion = "calm"
	EmotionSupportive  Emotion = "supportive"
	EmotionEncouraging Emotion = "encouraging"
	EmotionEmpathetic  Emotion = "empathetic"
)

// IsValid reports whether e is a recognised emotion tag.
func (e Emotion) IsValid() bool {
	switch e {
	case EmotionCalm, EmotionSupportive, EmotionEncouraging, EmotionEmpathetic:
		return true
	}
	return false
}

// Clip is one synthesized utterance.
type Clip struct {
	// Audio is the encoded audio payload.
	Audio []byte

	// Format tags the encoding ("mp3", "wav", "aiff").
	Format string

	// EstimatedDuration is the service's playback-length estimate. When a
	// provider does not report one, use [EstimateDuration].
	EstimatedDuration time.Duration
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text with the given emotion and returns the encoded
	// clip. A non-nil error means no audio is available; callers decide
	// whether to skip playback or fail.
	Synthesize(ctx context.Context, text string, emotion Emotion, sessionID string) (*Clip, error)
}

// speakingRateWPM is the speaking-rate assumption behind duration estimates.
const speakingRateWPM = 180

// EstimateDuration approximates the spoken length of text at a conversational
// rate, never less than one second.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	secs := float64(words) / speakingRateWPM * 60
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs * float64(time.Second))
}
