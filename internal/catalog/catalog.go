// Package catalog loads analyzed clip candidates from processing
// artifacts and answers queries about them. Artifacts are parsed once
// and cached; the cache key is the newest mtime across all artifact
// files, so edits and new analyses invalidate the whole cache at once.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

type Catalog struct {
	processingDir string
	outputDirs    []string
	logger        *slog.Logger

	mu       sync.Mutex
	clips    []Clip
	loadedAt time.Time
	loaded   bool
	loads    int
}

// New builds a catalog over the processing directory. outputDirs are
// scanned for rendered results when flagging clips.
func New(processingDir string, outputDirs []string, logger *slog.Logger) *Catalog {
	return &Catalog{
		processingDir: processingDir,
		outputDirs:    outputDirs,
		logger:        logger,
	}
}

// List returns clips sorted by descending score, optionally filtered
// to one source slug and a minimum score.
func (c *Catalog) List(source string, minScore float64) ([]Clip, error) {
	clips, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	rendered := c.renderedIndex()
	out := make([]Clip, 0, len(clips))
	for _, clip := range clips {
		if source != "" && clip.SourceSlug != source {
			continue
		}
		if clip.Score < minScore {
			continue
		}
		if _, ok := rendered[clip.ClipID]; ok {
			clip.Rendered = true
		}
		out = append(out, clip)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// Get returns the clip with the exact given id, or ErrNotFound.
func (c *Catalog) Get(id string) (Clip, error) {
	clips, err := c.snapshot()
	if err != nil {
		return Clip{}, err
	}
	for _, clip := range clips {
		if clip.ClipID == id {
			if _, ok := c.renderedIndex()[clip.ClipID]; ok {
				clip.Rendered = true
			}
			return clip, nil
		}
	}
	return Clip{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// LocateRendered returns the rendered output path for a clip id, if a
// matching output exists.
func (c *Catalog) LocateRendered(id string) (string, bool) {
	path, ok := c.renderedIndex()[id]
	return path, ok
}

// Loads reports how many times artifacts have been parsed from disk.
func (c *Catalog) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// snapshot returns the cached clip list, reloading from disk only when
// the newest artifact mtime has advanced past the cached one.
func (c *Catalog) snapshot() ([]Clip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	artifacts, newest, err := c.scanArtifacts()
	if err != nil {
		return nil, err
	}
	if c.loaded && !newest.After(c.loadedAt) {
		return c.clips, nil
	}

	var clips []Clip
	for _, path := range artifacts {
		parsed, err := parseArtifact(path)
		if err != nil {
			c.logger.Warn("skipping unreadable artifact", "path", filepath.Base(path), "error", err)
			continue
		}
		clips = append(clips, parsed...)
	}

	c.clips = clips
	c.loadedAt = newest
	c.loaded = true
	c.loads++
	c.logger.Debug("clip catalog reloaded", "artifacts", len(artifacts), "clips", len(clips))
	return c.clips, nil
}

// scanArtifacts lists analysis artifacts and the newest mtime among
// them. An empty processing directory yields an empty catalog, not an
// error.
func (c *Catalog) scanArtifacts() ([]string, time.Time, error) {
	pattern := filepath.Join(c.processingDir, "*_analysis.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("scan artifacts: %w", err)
	}
	sort.Strings(matches)

	var newest time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return matches, newest, nil
}

// renderedIndex maps clip ids to output files. The id must appear in
// the filename as a complete token: an output for sv1_10 never claims
// sv1_100. Rebuilt on every call so finished renders show up without
// an artifact touch.
func (c *Catalog) renderedIndex() map[string]string {
	c.mu.Lock()
	clips := c.clips
	c.mu.Unlock()

	index := make(map[string]string)
	for _, dir := range c.outputDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			// Output dirs are at most one level deep: published files
			// at the top, library files grouped per processing run.
			if entry.IsDir() {
				sub, err := os.ReadDir(filepath.Join(dir, entry.Name()))
				if err != nil {
					continue
				}
				for _, inner := range sub {
					if !inner.IsDir() {
						indexFile(index, clips, filepath.Join(dir, entry.Name(), inner.Name()))
					}
				}
				continue
			}
			indexFile(index, clips, filepath.Join(dir, entry.Name()))
		}
	}
	return index
}

func indexFile(index map[string]string, clips []Clip, path string) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".mp4") {
		return
	}
	stem := strings.TrimSuffix(name, ".mp4")
	for _, clip := range clips {
		if _, seen := index[clip.ClipID]; seen {
			continue
		}
		if stemHasID(stem, clip.ClipID) {
			index[clip.ClipID] = path
		}
	}
}

// stemHasID reports whether id occurs in stem bounded by separators or
// the string ends, so ids that prefix each other stay distinct.
func stemHasID(stem, id string) bool {
	for start := 0; ; {
		i := strings.Index(stem[start:], id)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(id)
		before := i == 0 || isSep(stem[i-1])
		after := end == len(stem) || isSep(stem[end])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isSep(b byte) bool {
	return b == '_' || b == '-' || b == '.'
}

// parseArtifact reads one analysis artifact. Both the ranked
// top_clips shape and the plain clips shape are accepted.
func parseArtifact(path string) ([]Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("not valid JSON")
	}

	doc := gjson.ParseBytes(data)
	items := doc.Get("top_clips")
	if !items.IsArray() {
		items = doc.Get("clips")
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("no clip array")
	}

	slug := slugFromArtifact(path)
	sourceFile := doc.Get("source_file").String()
	sourceLabel := doc.Get("source_label").String()
	if sourceLabel == "" {
		sourceLabel = slug
	}

	var clips []Clip
	for _, item := range items.Array() {
		start := item.Get("start_seconds").Float()
		score := item.Get("meme_score").Float()
		if score == 0 {
			score = item.Get("score").Float()
		}
		clips = append(clips, Clip{
			ClipID:       slug + "_" + strconv.Itoa(int(start)),
			SourceSlug:   slug,
			SourceLabel:  sourceLabel,
			SourceFile:   sourceFile,
			Rank:         int(item.Get("rank").Int()),
			Timestamp:    item.Get("timestamp").String(),
			StartSeconds: start,
			DurationSecs: item.Get("duration_seconds").Float(),
			Visual:       item.Get("what_happens_visually").String(),
			DialogueHook: item.Get("dialogue_hook").String(),
			MemeCaption:  item.Get("meme_caption").String(),
			NewsHook:     item.Get("news_hook").String(),
			Quote:        item.Get("quote").String(),
			Score:        score,
			Audience:     item.Get("audience").String(),
			WhyItWorks:   item.Get("why_it_works").String(),
		})
	}
	return clips, nil
}

// slugFromArtifact derives the source slug from an artifact filename:
// my_video_visual_analysis.json and my_video_analysis.json both slug
// to my_video.
func slugFromArtifact(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), ".json")
	stem = strings.TrimSuffix(stem, "_analysis")
	stem = strings.TrimSuffix(stem, "_visual")
	return strings.ToLower(stem)
}
