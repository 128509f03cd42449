package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

const sv1Artifact = `{
	"source_file": "/videos/startup_vlog.mp4",
	"source_label": "Startup Vlog 1",
	"top_clips": [
		{"rank": 1, "start_seconds": 10, "duration_seconds": 15, "meme_caption": "shipping on friday", "meme_score": 9},
		{"rank": 2, "start_seconds": 100, "duration_seconds": 20, "meme_caption": "standup theater", "meme_score": 7},
		{"rank": 3, "start_seconds": 250, "duration_seconds": 12, "meme_caption": "demo gods", "meme_score": 3}
	]
}`

func newTestCatalog(t *testing.T) (*Catalog, string, string) {
	t.Helper()
	processing := t.TempDir()
	output := t.TempDir()
	return New(processing, []string{output}, testLogger()), processing, output
}

func TestList_SortedByScoreDescending(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)

	clips, err := c.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(clips) != 3 {
		t.Fatalf("clips = %d, want 3", len(clips))
	}
	if clips[0].Score != 9 || clips[1].Score != 7 || clips[2].Score != 3 {
		t.Fatalf("scores = [%v %v %v], want descending [9 7 3]",
			clips[0].Score, clips[1].Score, clips[2].Score)
	}
}

func TestList_InterleavesArtifactsByScore(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "a_analysis.json", `{"top_clips": [
		{"start_seconds": 1, "duration_seconds": 10, "meme_caption": "a1", "meme_score": 9},
		{"start_seconds": 2, "duration_seconds": 10, "meme_caption": "a2", "meme_score": 3}]}`)
	writeArtifact(t, processing, "b_analysis.json", `{"top_clips": [
		{"start_seconds": 3, "duration_seconds": 10, "meme_caption": "b1", "meme_score": 7}]}`)

	clips, err := c.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var scores []float64
	for _, clip := range clips {
		scores = append(scores, clip.Score)
	}
	want := []float64{9, 7, 3}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores = %v, want %v", scores, want)
		}
	}
}

func TestList_MinScoreAndSourceFilter(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)
	writeArtifact(t, processing, "other_analysis.json",
		`{"clips": [{"start_seconds": 5, "duration_seconds": 10, "meme_caption": "other", "meme_score": 8}]}`)

	clips, err := c.List("sv1", 5)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	for _, clip := range clips {
		if clip.SourceSlug != "sv1" {
			t.Fatalf("clip %s has slug %q, want sv1", clip.ClipID, clip.SourceSlug)
		}
		if clip.Score < 5 {
			t.Fatalf("clip %s score %v below threshold", clip.ClipID, clip.Score)
		}
	}
}

func TestList_CacheSkipsReloadUntilMtimeAdvances(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	path := writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)

	if _, err := c.List("", 0); err != nil {
		t.Fatalf("first List() error = %v", err)
	}
	if _, err := c.List("", 0); err != nil {
		t.Fatalf("second List() error = %v", err)
	}
	if got := c.Loads(); got != 1 {
		t.Fatalf("loads = %d, want 1 (cache should serve second call)", got)
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := c.List("", 0); err != nil {
		t.Fatalf("third List() error = %v", err)
	}
	if got := c.Loads(); got != 2 {
		t.Fatalf("loads = %d, want 2 after mtime advance", got)
	}
}

func TestGet_ExactID(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)

	clip, err := c.Get("sv1_100")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if clip.StartSeconds != 100 {
		t.Fatalf("start = %v, want 100", clip.StartSeconds)
	}

	if _, err := c.Get("sv1_999"); err == nil {
		t.Fatal("Get() on unknown id should fail")
	}
}

func TestRenderedIndex_ExactIDMatching(t *testing.T) {
	c, processing, output := newTestCatalog(t)
	writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)

	// Output for sv1_10 only. sv1_100 shares the prefix and must not
	// be claimed by it.
	if err := os.WriteFile(filepath.Join(output, "final_sv1_10.mp4"), []byte("x"), 0644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	clips, err := c.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	rendered := map[string]bool{}
	for _, clip := range clips {
		rendered[clip.ClipID] = clip.Rendered
	}
	if !rendered["sv1_10"] {
		t.Fatal("sv1_10 should be rendered")
	}
	if rendered["sv1_100"] {
		t.Fatal("sv1_100 must not match the sv1_10 output")
	}
}

func TestLocateRendered_SearchesSubdirectories(t *testing.T) {
	c, processing, output := newTestCatalog(t)
	writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)

	sub := filepath.Join(output, "job-abc")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := filepath.Join(sub, "sv1_250.mp4")
	if err := os.WriteFile(want, []byte("x"), 0644); err != nil {
		t.Fatalf("write output: %v", err)
	}

	if _, err := c.List("", 0); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	got, ok := c.LocateRendered("sv1_250")
	if !ok {
		t.Fatal("LocateRendered() found nothing")
	}
	if got != want {
		t.Fatalf("LocateRendered() = %q, want %q", got, want)
	}
}

func TestParseArtifact_SkipsInvalidJSON(t *testing.T) {
	c, processing, _ := newTestCatalog(t)
	writeArtifact(t, processing, "bad_analysis.json", "{not json")
	writeArtifact(t, processing, "sv1_analysis.json", sv1Artifact)

	clips, err := c.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(clips) != 3 {
		t.Fatalf("clips = %d, want 3 from the valid artifact", len(clips))
	}
}

func TestStemHasID(t *testing.T) {
	cases := []struct {
		stem, id string
		want     bool
	}{
		{"sv1_10", "sv1_10", true},
		{"final_sv1_10", "sv1_10", true},
		{"sv1_10_take2", "sv1_10", true},
		{"sv1_100", "sv1_10", false},
		{"mysv1_10", "sv1_10", false},
		{"sv1-10", "sv1_10", false},
	}
	for _, tc := range cases {
		if got := stemHasID(tc.stem, tc.id); got != tc.want {
			t.Errorf("stemHasID(%q, %q) = %v, want %v", tc.stem, tc.id, got, tc.want)
		}
	}
}
