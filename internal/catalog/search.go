package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Completer runs one reasoning call. Satisfied by providers.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const searchPrompt = `You are helping pick video clips relevant to a topic.

Topic: %s

Clips:
%s

Return the ids of the clips most relevant to the topic, best first, as
JSON: {"clip_ids": ["id1", "id2"]}. Return ONLY valid JSON. Include at
most %d ids and omit clips with no real connection to the topic.`

// Search ranks catalog clips against a topic. The reasoning provider
// does the ranking when available; on any provider or parse failure
// the result degrades to keyword matching instead of erroring out.
func (c *Catalog) Search(ctx context.Context, llm Completer, topic string, limit int) ([]Clip, error) {
	clips, err := c.List("", 0)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if llm != nil {
		if ranked, ok := c.searchLLM(ctx, llm, topic, clips, limit); ok {
			return ranked, nil
		}
	}
	return keywordSearch(topic, clips, limit), nil
}

func (c *Catalog) searchLLM(ctx context.Context, llm Completer, topic string, clips []Clip, limit int) ([]Clip, bool) {
	var summaries strings.Builder
	byID := make(map[string]Clip, len(clips))
	for _, clip := range clips {
		byID[clip.ClipID] = clip
		fmt.Fprintf(&summaries, "- %s: %s\n", clip.ClipID, clipSummary(clip))
	}

	raw, err := llm.Complete(ctx, fmt.Sprintf(searchPrompt, topic, summaries.String(), limit))
	if err != nil {
		c.logger.Warn("search ranking failed, falling back to keywords", "error", err)
		return nil, false
	}

	ids := gjson.Get(stripFences(raw), "clip_ids")
	if !ids.IsArray() {
		c.logger.Warn("search ranking returned no clip_ids, falling back to keywords")
		return nil, false
	}

	var out []Clip
	for _, id := range ids.Array() {
		clip, ok := byID[id.String()]
		if !ok {
			continue
		}
		out = append(out, clip)
		if len(out) >= limit {
			break
		}
	}
	return out, true
}

// keywordSearch scores each clip by the fraction of topic words that
// appear in its text, breaking ties by clip score.
func keywordSearch(topic string, clips []Clip, limit int) []Clip {
	keywords := strings.Fields(strings.ToLower(topic))
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		clip  Clip
		score float64
	}
	var matches []scored
	for _, clip := range clips {
		blob := strings.ToLower(clipSummary(clip))
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(blob, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		matches = append(matches, scored{clip, float64(hits) / float64(len(keywords))})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].clip.Score > matches[j].clip.Score
	})

	out := make([]Clip, 0, limit)
	for _, m := range matches {
		out = append(out, m.clip)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func clipSummary(clip Clip) string {
	parts := []string{clip.MemeCaption, clip.Quote, clip.DialogueHook, clip.Visual, clip.WhyItWorks}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
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
