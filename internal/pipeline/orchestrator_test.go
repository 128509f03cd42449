package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/detect"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/render"
)

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("mp3"), 0644)
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(ctx context.Context, audioPath, jobID string) (providers.Transcript, error) {
	return providers.Transcript{
		Text:     "hello world",
		Segments: []providers.Segment{{Start: 0, End: 3, Text: "hello world"}},
	}, nil
}

type fakeDetector struct {
	candidates []detect.Candidate
}

func (f *fakeDetector) Detect(ctx context.Context, transcript providers.Transcript, jobID string, types []string, count int, audience string) ([]detect.Candidate, error) {
	return f.candidates, nil
}

type fakeClipRenderer struct {
	failIndex int // 1-based call number to fail, 0 for none
	calls     int
	withCTA   []bool
}

func (f *fakeClipRenderer) RenderCandidate(ctx context.Context, kind render.Kind, source, out string, start, duration float64, text string, withCTA bool) error {
	f.calls++
	f.withCTA = append(f.withCTA, withCTA)
	if f.calls == f.failIndex {
		return errors.New("render exploded")
	}
	return os.WriteFile(out, []byte("mp4"), 0644)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, o *Orchestrator, jobID string) State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := o.LoadState(jobID)
		if err == nil && state.Status != "running" {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", jobID)
	return State{}
}

func testCandidates() []detect.Candidate {
	return []detect.Candidate{
		{Type: "meme", Timestamp: 12, Duration: 15, Caption: "first", Score: 9},
		{Type: "quote", Timestamp: 80, Duration: 20, Quote: "second", Score: 7},
	}
}

func newTestOrchestrator(t *testing.T, renderer *fakeClipRenderer, cands []detect.Candidate) (*Orchestrator, string) {
	t.Helper()
	processing := t.TempDir()
	library := t.TempDir()
	o := New(&fakeExtractor{}, fakeTranscriber{}, &fakeDetector{candidates: cands}, renderer,
		processing, library, events.NewBus(), testLogger())
	return o, library
}

func testVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestOrchestrator_FullRun(t *testing.T) {
	renderer := &fakeClipRenderer{}
	o, library := newTestOrchestrator(t, renderer, testCandidates())

	jobID, err := o.Start(context.Background(), Request{
		VideoPath: testVideo(t),
		ClipTypes: []string{"meme", "quote"},
		Count:     2,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	state := waitDone(t, o, jobID)
	if state.Status != "done" {
		t.Fatalf("status = %s (error %q), want done", state.Status, state.Error)
	}
	for _, step := range []string{"audio", "transcribe", "detect", "render"} {
		if state.Steps[step] != "done" {
			t.Fatalf("step %s = %q, want done", step, state.Steps[step])
		}
	}
	if state.Candidates != 2 || len(state.Clips) != 2 {
		t.Fatalf("candidates = %d, clips = %d, want 2 and 2", state.Candidates, len(state.Clips))
	}

	if state.Clips[0].OutputFile != "01_meme_12s.mp4" || state.Clips[1].OutputFile != "02_quote_80s.mp4" {
		t.Fatalf("outputs = [%s %s]", state.Clips[0].OutputFile, state.Clips[1].OutputFile)
	}
	for _, clip := range state.Clips {
		if _, err := os.Stat(filepath.Join(library, jobID, clip.OutputFile)); err != nil {
			t.Fatalf("rendered file missing: %v", err)
		}
	}
}

func TestOrchestrator_OneBadCandidateDoesNotSinkTheRun(t *testing.T) {
	renderer := &fakeClipRenderer{failIndex: 1}
	o, _ := newTestOrchestrator(t, renderer, testCandidates())

	jobID, err := o.Start(context.Background(), Request{
		VideoPath: testVideo(t),
		ClipTypes: []string{"meme"},
		Count:     2,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	state := waitDone(t, o, jobID)
	if state.Status != "done" {
		t.Fatalf("status = %s, want done despite one failure", state.Status)
	}
	if len(state.Clips) != 1 || state.Clips[0].OutputFile != "02_quote_80s.mp4" {
		t.Fatalf("clips = %+v, want only the second", state.Clips)
	}
}

func TestOrchestrator_ExtractionFailureMarksError(t *testing.T) {
	processing := t.TempDir()
	o := New(&fakeExtractor{err: errors.New("no audio stream")}, fakeTranscriber{},
		&fakeDetector{}, &fakeClipRenderer{}, processing, t.TempDir(), events.NewBus(), testLogger())

	jobID, err := o.Start(context.Background(), Request{VideoPath: testVideo(t), ClipTypes: []string{"meme"}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	state := waitDone(t, o, jobID)
	if state.Status != "error" || state.Error == "" {
		t.Fatalf("state = %+v, want error with message", state)
	}
}

func TestOrchestrator_NarrationFlagAddsCTA(t *testing.T) {
	renderer := &fakeClipRenderer{}
	o, _ := newTestOrchestrator(t, renderer, testCandidates())

	jobID, err := o.Start(context.Background(), Request{
		VideoPath:    testVideo(t),
		ClipTypes:    []string{"meme"},
		AddNarration: true,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, o, jobID)

	for i, withCTA := range renderer.withCTA {
		if !withCTA {
			t.Fatalf("render %d got withCTA = false, want true", i)
		}
	}
}

func TestOrchestrator_LoadStateUnknownJob(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClipRenderer{}, nil)
	if _, err := o.LoadState("missing"); !os.IsNotExist(err) {
		t.Fatalf("LoadState() error = %v, want not-exist", err)
	}
}
