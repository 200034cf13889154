package speech

import (
	"strings"

	"github.com/hearthvoice/hearth/pkg/provider/tts"
)

// emotionKeywords maps reply wording to the voice colouring used when the
// backend does not tag the reply itself. Order matters: the first matching
// set wins.
var emotionKeywords = []struct {
	emotion tts.Emotion
	words   []string
}{
	{tts.EmotionEmpathetic, []string{"sorry", "understand", "difficult", "hard", "struggle"}},
	{tts.EmotionEncouraging, []string{"great", "wonderful", "proud", "amazing", "excellent"}},
	{tts.EmotionSupportive, []string{"support", "help", "here for you", "together"}},
}

// DetectEmotion picks a voice emotion from the reply text. Replies matching
// no keyword set are spoken calmly.
func DetectEmotion(text string) tts.Emotion {
	lower := strings.ToLower(text)
	for _, set := range emotionKeywords {
		for _, w := range set.words {
			if strings.Contains(lower, w) {
				return set.emotion
			}
		}
	}
	return tts.EmotionCalm
}
