package queue

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxOutputStem = 80

// SanitizeOutputName turns a requested output name into a safe mp4
// filename. Path components and unusual runes are stripped; an empty
// result falls back to a name derived from the job id.
func SanitizeOutputName(name, jobID string) string {
	stem := filepath.Base(strings.TrimSpace(name))
	stem = strings.TrimSuffix(stem, ".mp4")

	var b strings.Builder
	for _, r := range stem {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), " .")
	runes := []rune(cleaned)
	if len(runes) > maxOutputStem {
		cleaned = string(runes[:maxOutputStem])
	}
	if cleaned == "" {
		short := jobID
		if len(short) > 8 {
			short = short[:8]
		}
		cleaned = "render_" + short
	}
	return cleaned + ".mp4"
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.':
		return true
	default:
		return false
	}
}
