package catalog

import (
	"context"
	"errors"
	"testing"
)

type fakeSearchCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeSearchCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const searchArtifact = `{
	"source_file": "/videos/panel.mp4",
	"top_clips": [
		{"start_seconds": 10, "duration_seconds": 15, "meme_caption": "agents writing agents", "meme_score": 9},
		{"start_seconds": 60, "duration_seconds": 15, "meme_caption": "fundraising is a grind", "meme_score": 6},
		{"start_seconds": 120, "duration_seconds": 15, "quote": "ship the agent, not the demo", "meme_score": 4}
	]
}`

func TestSearch_LLMRanking(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "panel_analysis.json", searchArtifact)

	llm := &fakeSearchCompleter{response: `{"clip_ids": ["panel_120", "panel_10"]}`}
	got, err := c.Search(context.Background(), llm, "agents", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].ClipID != "panel_120" || got[1].ClipID != "panel_10" {
		t.Fatalf("order = [%s %s], want provider order", got[0].ClipID, got[1].ClipID)
	}
}

func TestSearch_FallsBackToKeywordsOnProviderError(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "panel_analysis.json", searchArtifact)

	llm := &fakeSearchCompleter{err: errors.New("rate limited")}
	got, err := c.Search(context.Background(), llm, "agent", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2 keyword matches", len(got))
	}
	// Equal keyword scores break ties by clip score.
	if got[0].ClipID != "panel_10" {
		t.Fatalf("first result = %s, want panel_10", got[0].ClipID)
	}
}

func TestSearch_FallsBackOnUnparseableRanking(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "panel_analysis.json", searchArtifact)

	llm := &fakeSearchCompleter{response: "no json here"}
	got, err := c.Search(context.Background(), llm, "fundraising", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].ClipID != "panel_60" {
		t.Fatalf("results = %+v, want only panel_60", got)
	}
}

func TestSearch_NilCompleterUsesKeywords(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "panel_analysis.json", searchArtifact)

	got, err := c.Search(context.Background(), nil, "grind", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].ClipID != "panel_60" {
		t.Fatalf("results = %+v, want only panel_60", got)
	}
}

func TestSearch_EmptyTopic(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "panel_analysis.json", searchArtifact)

	got, err := c.Search(context.Background(), nil, "  ", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("results = %d, want 0 for blank topic", len(got))
	}
}

func TestKeywordSearch_LimitApplies(t *testing.T) {
	clips := []Clip{
		{ClipID: "a", MemeCaption: "go routines", Score: 5},
		{ClipID: "b", MemeCaption: "go generics", Score: 7},
		{ClipID: "c", MemeCaption: "go modules", Score: 6},
	}
	got := keywordSearch("go", clips, 2)
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].ClipID != "b" || got[1].ClipID != "c" {
		t.Fatalf("order = [%s %s], want [b c]", got[0].ClipID, got[1].ClipID)
	}
}
