package catalog

import "errors"

// ErrNotFound is returned when a clip id resolves to nothing.
var ErrNotFound = errors.New("clip not found")

// Clip is a candidate enriched with catalog metadata. Clips are
// recomputed on every cache refresh and never mutated in place; the
// Rendered flag is derived from the output store, not stored.
type Clip struct {
	ClipID       string  `json:"clip_id"`
	SourceSlug   string  `json:"source_slug"`
	SourceLabel  string  `json:"source_label"`
	SourceFile   string  `json:"source_file"`
	Rank         int     `json:"rank,omitempty"`
	Timestamp    string  `json:"timestamp,omitempty"`
	StartSeconds float64 `json:"start_seconds"`
	DurationSecs float64 `json:"duration_seconds"`
	Visual       string  `json:"what_happens_visually,omitempty"`
	DialogueHook string  `json:"dialogue_hook,omitempty"`
	MemeCaption  string  `json:"meme_caption,omitempty"`
	NewsHook     string  `json:"news_hook,omitempty"`
	Quote        string  `json:"quote,omitempty"`
	Score        float64 `json:"score"`
	Audience     string  `json:"audience,omitempty"`
	WhyItWorks   string  `json:"why_it_works,omitempty"`
	Rendered     bool    `json:"rendered"`
}
