package render

import "strings"

// Caption layout constants for the 1080x1920 canvas.
const (
	CanvasW = 1080
	CanvasH = 1920

	// Height of the letterboxed 16:9 video band in a meme segment and
	// its vertical offset on the canvas.
	memeVideoH = 608
	memeVideoY = (CanvasH - memeVideoH) / 2

	maxFontSize    = 76
	minFontSize    = 44
	charWRatio     = 0.50
	captionWidth   = CanvasW - 60
	MemeLineChars  = 26
	QuoteLineChars = 32
)

// WrapCaption breaks caption text into display lines. Explicit
// newlines are respected; lines longer than maxChars are wrapped at
// word boundaries. A single word longer than the budget stays on its
// own line rather than being split mid-word.
func WrapCaption(text string, maxChars int) []string {
	var out []string
	for _, seg := range strings.Split(text, "\n") {
		seg = strings.TrimSpace(seg)
		if len(seg) <= maxChars {
			out = append(out, seg)
			continue
		}
		line := ""
		for _, word := range strings.Fields(seg) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= maxChars:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FontSizeFor picks a font size so the longest line fits the caption
// width, clamped to the readable range.
func FontSizeFor(lines []string) int {
	maxLen := 1
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	size := int(captionWidth / (float64(maxLen) * charWRatio))
	if size > maxFontSize {
		return maxFontSize
	}
	if size < minFontSize {
		return minFontSize
	}
	return size
}

// escapeDrawtext makes text safe inside an ffmpeg drawtext filter.
// Straight apostrophes become curly ones because a quoted apostrophe
// inside a filter string is not worth the escaping trouble.
func escapeDrawtext(t string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, "’",
		"‘", "’",
		`:`, `\:`,
		`,`, `\,`,
	)
	return r.Replace(t)
}
