package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompileOptions shape a compilation of rendered clips.
type CompileOptions struct {
	// Placement is where the ad segment goes: "end", "between", or
	// "both".
	Placement string
	// Frequency inserts the ad after every N clips for the between
	// placements.
	Frequency int
	// ImageDuration is how long a static ad image plays, in seconds.
	ImageDuration float64
}

// Compile joins rendered clips into one compilation with an optional
// ad segment woven in. Every input is normalized to canvas size first
// so mixed sources concat cleanly; a static ad image is looped into a
// segment, an ad video is normalized like any clip.
func (r *Renderer) Compile(ctx context.Context, clips []string, adPath, out string, opts CompileOptions) error {
	if len(clips) == 0 {
		return fmt.Errorf("compile: no clips")
	}
	if opts.Placement == "" {
		opts.Placement = "end"
	}
	if opts.Frequency <= 0 {
		opts.Frequency = 2
	}
	if opts.ImageDuration <= 0 {
		opts.ImageDuration = 5
	}

	workDir := out + ".work"
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	ad := ""
	if adPath != "" {
		ad = filepath.Join(workDir, "ad_segment.mp4")
		if isImagePath(adPath) {
			still := filepath.Join(workDir, "ad_still.mp4")
			if err := r.RenderAdImage(ctx, adPath, still, opts.ImageDuration); err != nil {
				return err
			}
			// Image segments are silent; concat needs a uniform
			// stream layout.
			if err := r.AddSilentAudio(ctx, still, ad); err != nil {
				return err
			}
		} else if err := r.Normalize(ctx, adPath, ad); err != nil {
			return err
		}
	}

	normalized := make([]string, len(clips))
	for i, clip := range clips {
		norm := filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := r.Normalize(ctx, clip, norm); err != nil {
			return fmt.Errorf("normalize %s: %w", filepath.Base(clip), err)
		}
		normalized[i] = norm
	}

	return r.Concat(ctx, sequenceWithAd(normalized, ad, opts.Placement, opts.Frequency), out)
}

// sequenceWithAd orders the concat inputs, inserting the ad segment
// per the placement rule. A between-placement ad never lands directly
// before the end slot.
func sequenceWithAd(clips []string, ad, placement string, frequency int) []string {
	var seq []string
	for i, clip := range clips {
		seq = append(seq, clip)
		if ad != "" && (placement == "between" || placement == "both") &&
			(i+1)%frequency == 0 && i < len(clips)-1 {
			seq = append(seq, ad)
		}
	}
	if ad != "" && (placement == "end" || placement == "both") {
		seq = append(seq, ad)
	}
	return seq
}

func isImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}
