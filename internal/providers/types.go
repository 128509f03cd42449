package providers

import (
	"errors"
	"fmt"
	"strings"
)

// Transcript is the structured speech-to-text result: segmented text
// with per-segment start times.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TimestampedText renders the transcript as "[12.3s] line" rows, the
// shape the detection prompts embed.
func (t Transcript) TimestampedText() string {
	var b strings.Builder
	for _, s := range t.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%.1fs] %s\n", s.Start, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// SpeechResult is a synthesized narration file with its measured
// duration.
type SpeechResult struct {
	Path     string
	Duration float64
}

var (
	// ErrMissingCredential means no API key is configured for the
	// requested provider. Surfaced immediately, never retried.
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrProvider means the upstream call failed or returned an
	// unexpected shape. Surfaced, not retried; the cache write is
	// withheld so a future call can try again.
	ErrProvider = errors.New("provider call failed")
)
