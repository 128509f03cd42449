// Package detect asks a reasoning provider to propose clip candidates
// from a transcript, merges and ranks them, and caches the result per
// job id.
package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/clipforge/clipforge/internal/providers"
)

// ErrParse means the provider response was not well-formed JSON after
// stripping optional code fences. Fatal for the call, not retried.
var ErrParse = errors.New("unparseable provider response")

// Candidate is a provisional clip proposed by the detector.
type Candidate struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration"`
	Caption   string  `json:"caption,omitempty"`
	Quote     string  `json:"quote,omitempty"`
	Score     float64 `json:"score"`
	Why       string  `json:"why,omitempty"`
	Context   string  `json:"context,omitempty"`
}

// Text returns the display text for the candidate's kind.
func (c Candidate) Text() string {
	if c.Type == "quote" {
		return c.Quote
	}
	return c.Caption
}

// Completer runs one reasoning call. Satisfied by providers.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Detector struct {
	llm           Completer
	processingDir string
	logger        *slog.Logger
}

func New(llm Completer, processingDir string, logger *slog.Logger) *Detector {
	return &Detector{llm: llm, processingDir: processingDir, logger: logger}
}

// Detect proposes up to count candidates per requested type, merged
// into one list sorted by descending score (stable, so ties keep the
// provider's emission order). The merged result is cached under
// processing/<job>_clips.json; a later call for the same job id is a
// pure cache read.
func (d *Detector) Detect(ctx context.Context, transcript providers.Transcript, jobID string, types []string, count int, audience string) ([]Candidate, error) {
	cachePath := filepath.Join(d.processingDir, jobID+"_clips.json")
	if data, err := os.ReadFile(cachePath); err == nil {
		var cached []Candidate
		if err := json.Unmarshal(data, &cached); err != nil {
			return nil, fmt.Errorf("corrupt candidate cache %s: %w", filepath.Base(cachePath), err)
		}
		return cached, nil
	}

	if audience == "" {
		audience = AudienceDefault
	}

	text := transcript.TimestampedText()
	if len(text) > transcriptLimit {
		text = text[:transcriptLimit]
	}

	var merged []Candidate
	for _, typ := range types {
		var prompt string
		switch typ {
		case "meme":
			prompt = fmt.Sprintf(memePrompt, audience, count, text)
		case "quote":
			prompt = fmt.Sprintf(quotePrompt, audience, count, text)
		default:
			return nil, fmt.Errorf("unknown candidate type %q", typ)
		}

		raw, err := d.llm.Complete(ctx, prompt)
		if err != nil {
			return nil, err
		}

		candidates, err := parseCandidates(raw, typ)
		if err != nil {
			return nil, err
		}
		merged = append(merged, candidates...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if data, err := json.MarshalIndent(merged, "", "  "); err == nil {
		if werr := os.WriteFile(cachePath, data, 0644); werr != nil {
			d.logger.Warn("candidate cache write failed", "path", cachePath, "error", werr)
		}
	}

	d.logger.Info("candidate detection complete",
		"job_id", jobID, "types", types, "candidates", len(merged))
	return merged, nil
}

// parseCandidates extracts the clips array from a provider response
// and tags every entry with its candidate type.
func parseCandidates(raw, typ string) ([]Candidate, error) {
	cleaned := stripFences(raw)
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("%w: %s", ErrParse, snippet(cleaned))
	}

	clips := gjson.Get(cleaned, "clips")
	if !clips.IsArray() {
		return nil, fmt.Errorf("%w: no clips array in %s", ErrParse, snippet(cleaned))
	}

	var out []Candidate
	for _, item := range clips.Array() {
		tagged, err := sjson.Set(item.Raw, "type", typ)
		if err != nil {
			return nil, fmt.Errorf("%w: tagging candidate: %v", ErrParse, err)
		}
		var c Candidate
		if err := json.Unmarshal([]byte(tagged), &c); err != nil {
			return nil, fmt.Errorf("%w: candidate shape: %v", ErrParse, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// stripFences removes an optional markdown code fence wrapper.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	}
	if j := strings.LastIndex(t, "```"); j >= 0 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 120 {
		return string(r[:120]) + "..."
	}
	return s
}
