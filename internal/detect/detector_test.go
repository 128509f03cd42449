package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/clipforge/clipforge/internal/providers"
)

type fakeCompleter struct {
	responses []string
	prompts   []string
	calls     int
	err       error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTranscript(text string) providers.Transcript {
	return providers.Transcript{
		Text:     text,
		Segments: []providers.Segment{{Start: 0, End: 5, Text: text}},
	}
}

func TestDetect_SortsByScoreDescending(t *testing.T) {
	llm := &fakeCompleter{responses: []string{
		`{"clips": [
			{"timestamp": 10, "duration": 15, "caption": "low", "score": 3},
			{"timestamp": 20, "duration": 15, "caption": "high", "score": 9},
			{"timestamp": 30, "duration": 15, "caption": "mid", "score": 7}
		]}`,
	}}
	d := New(llm, t.TempDir(), testLogger())

	got, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme"}, 3, "")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	scores := []float64{got[0].Score, got[1].Score, got[2].Score}
	if scores[0] != 9 || scores[1] != 7 || scores[2] != 3 {
		t.Fatalf("scores = %v, want descending [9 7 3]", scores)
	}
}

func TestDetect_MergesTypesAndTags(t *testing.T) {
	llm := &fakeCompleter{responses: []string{
		`{"clips": [{"timestamp": 10, "duration": 15, "caption": "meme one", "score": 5}]}`,
		`{"clips": [{"timestamp": 40, "duration": 20, "quote": "quote one", "score": 8}]}`,
	}}
	d := New(llm, t.TempDir(), testLogger())

	got, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme", "quote"}, 1, "")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Type != "quote" || got[1].Type != "meme" {
		t.Fatalf("types = [%s %s], want [quote meme]", got[0].Type, got[1].Type)
	}
	if got[0].Text() != "quote one" || got[1].Text() != "meme one" {
		t.Fatalf("texts = [%q %q]", got[0].Text(), got[1].Text())
	}
}

func TestDetect_StripsCodeFences(t *testing.T) {
	llm := &fakeCompleter{responses: []string{
		"```json\n{\"clips\": [{\"timestamp\": 1, \"duration\": 10, \"caption\": \"c\", \"score\": 5}]}\n```",
	}}
	d := New(llm, t.TempDir(), testLogger())

	got, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme"}, 1, "")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(got) != 1 || got[0].Caption != "c" {
		t.Fatalf("candidates = %+v, want one with caption c", got)
	}
}

func TestDetect_UnparseableResponse(t *testing.T) {
	llm := &fakeCompleter{responses: []string{"sorry, I cannot do that"}}
	d := New(llm, t.TempDir(), testLogger())

	_, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme"}, 1, "")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Detect() error = %v, want ErrParse", err)
	}
}

func TestDetect_MissingClipsArray(t *testing.T) {
	llm := &fakeCompleter{responses: []string{`{"items": []}`}}
	d := New(llm, t.TempDir(), testLogger())

	_, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme"}, 1, "")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Detect() error = %v, want ErrParse", err)
	}
}

func TestDetect_UnknownType(t *testing.T) {
	llm := &fakeCompleter{responses: []string{`{"clips": []}`}}
	d := New(llm, t.TempDir(), testLogger())

	_, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"dance"}, 1, "")
	if err == nil || !strings.Contains(err.Error(), "dance") {
		t.Fatalf("Detect() error = %v, want unknown type error", err)
	}
}

func TestDetect_TruncatesLongTranscripts(t *testing.T) {
	llm := &fakeCompleter{responses: []string{`{"clips": []}`}}
	d := New(llm, t.TempDir(), testLogger())

	long := providers.Transcript{Segments: []providers.Segment{
		{Start: 0, End: 1, Text: strings.Repeat("a", 20000)},
	}}
	if _, err := d.Detect(context.Background(), long, "job1", []string{"meme"}, 1, ""); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	prompt := llm.prompts[0]
	if len(prompt) > transcriptLimit+2000 {
		t.Fatalf("prompt length = %d, transcript was not truncated", len(prompt))
	}
}

func TestDetect_CacheHitSkipsProvider(t *testing.T) {
	dir := t.TempDir()
	llm := &fakeCompleter{responses: []string{
		`{"clips": [{"timestamp": 10, "duration": 15, "caption": "cached", "score": 6}]}`,
	}}
	d := New(llm, dir, testLogger())

	first, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme"}, 1, "")
	if err != nil {
		t.Fatalf("first Detect() error = %v", err)
	}

	second, err := d.Detect(context.Background(), testTranscript("different"), "job1", []string{"meme"}, 1, "")
	if err != nil {
		t.Fatalf("second Detect() error = %v", err)
	}

	if llm.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", llm.calls)
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("cache returned different result: %v vs %v", first, second)
	}
}

func TestDetect_AudienceDefault(t *testing.T) {
	llm := &fakeCompleter{responses: []string{`{"clips": []}`}}
	d := New(llm, t.TempDir(), testLogger())

	if _, err := d.Detect(context.Background(), testTranscript("hello"), "job1", []string{"meme"}, 1, ""); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !strings.Contains(llm.prompts[0], AudienceDefault) {
		t.Fatal("prompt does not carry the default audience")
	}
}
