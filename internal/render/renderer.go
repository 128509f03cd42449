// Package render turns clip specifications into normalized 1080x1920
// vertical video segments and concatenates them into final outputs.
// Every operation overwrites its output path, so repeat renders with
// identical inputs are idempotent.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/media"
)

// Default font locations; overridable through brand config.
const (
	defaultMemeFont = "/System/Library/Fonts/Supplemental/Impact.ttf"
	defaultCTAFont  = "/System/Library/Fonts/Helvetica.ttc"

	ctaTaglineSize = 34
	ctaURLSize     = 42

	// CTADuration is the fixed length of the branded end card.
	CTADuration = 5.0

	encodePreset = "fast"
	encodeCRF    = "20"
)

// Kind selects the per-candidate rendering strategy.
type Kind string

const (
	KindMeme  Kind = "meme"
	KindQuote Kind = "quote"
	KindAd    Kind = "ad"
)

type renderFunc func(ctx context.Context, source, out string, start, duration float64, text string, withCTA bool) error

// Renderer assembles vertical video segments with the ffmpeg tool.
type Renderer struct {
	tool     *media.Tool
	brand    config.Brand
	memeFont string
	ctaFont  string
	logger   *slog.Logger

	byKind map[Kind]renderFunc
}

func New(tool *media.Tool, brand config.Brand, logger *slog.Logger) *Renderer {
	r := &Renderer{
		tool:     tool,
		brand:    brand,
		memeFont: brand.MemeFont,
		ctaFont:  brand.CTAFont,
		logger:   logger,
	}
	if r.memeFont == "" {
		r.memeFont = defaultMemeFont
	}
	if r.ctaFont == "" {
		r.ctaFont = defaultCTAFont
	}
	// Strategy table: the kind decides the filter chain exactly once,
	// at the call boundary.
	r.byKind = map[Kind]renderFunc{
		KindMeme:  r.renderMeme,
		KindQuote: r.renderQuote,
		KindAd:    r.renderAd,
	}
	return r
}

// RenderCandidate renders one source span styled by kind. Unknown
// kinds fall back to meme styling, matching how loosely typed
// candidate artifacts behave in practice.
func (r *Renderer) RenderCandidate(ctx context.Context, kind Kind, source, out string, start, duration float64, text string, withCTA bool) error {
	fn, ok := r.byKind[kind]
	if !ok {
		fn = r.byKind[KindMeme]
	}
	return fn(ctx, source, out, start, duration, text, withCTA)
}

// renderMeme letterboxes the source span in the middle of a black
// canvas with an Impact caption block above it.
func (r *Renderer) renderMeme(ctx context.Context, source, out string, start, duration float64, caption string, withCTA bool) error {
	lines := WrapCaption(caption, MemeLineChars)
	fs := FontSizeFor(lines)
	lh := fs + 10
	blockY := (memeVideoY - len(lines)*lh) / 2
	if blockY < 24 {
		blockY = 24
	}

	filters := []string{
		fmt.Sprintf("scale=%d:-2", CanvasW),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", CanvasW, CanvasH),
	}
	for i, line := range lines {
		filters = append(filters, fmt.Sprintf(
			"drawtext=fontfile='%s':text='%s':fontcolor=white:fontsize=%d:borderw=6:bordercolor=black:x=(w-text_w)/2:y=%d",
			r.memeFont, escapeDrawtext(line), fs, blockY+i*lh))
	}
	if withCTA {
		filters = append(filters, r.ctaOverlay(memeVideoY+memeVideoH)...)
	}

	return r.encodeSpan(ctx, "meme render", source, out, start, duration, filters)
}

// renderQuote cover-crops the source span behind a dark overlay with
// centered quote lines.
func (r *Renderer) renderQuote(ctx context.Context, source, out string, start, duration float64, quote string, withCTA bool) error {
	lines := WrapCaption(quote, QuoteLineChars)
	fs := 52
	lh := fs + 14
	blockY := (CanvasH - len(lines)*lh) / 2

	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", CanvasW, CanvasH),
		fmt.Sprintf("crop=%d:%d", CanvasW, CanvasH),
		fmt.Sprintf("drawbox=x=0:y=0:w=%d:h=%d:color=black@0.55:t=fill", CanvasW, CanvasH),
	}
	for i, line := range lines {
		filters = append(filters, fmt.Sprintf(
			"drawtext=fontfile='%s':text='%s':fontcolor=white:fontsize=%d:borderw=3:bordercolor=black@0.8:x=(w-text_w)/2:y=%d",
			r.ctaFont, escapeDrawtext(line), fs, blockY+i*lh))
	}
	if withCTA {
		ctaY := CanvasH - 140
		filters = append(filters,
			fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=30:borderw=2:bordercolor=black:x=(w-text_w)/2:y=%d",
				r.ctaFont, escapeDrawtext(r.brand.Tagline), r.brand.Accent, ctaY),
			fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=white:fontsize=36:borderw=2:bordercolor=black:x=(w-text_w)/2:y=%d",
				r.ctaFont, escapeDrawtext(r.brand.URL), ctaY+40),
		)
	}

	return r.encodeSpan(ctx, "quote render", source, out, start, duration, filters)
}

// RenderBody builds the narrated middle segment: branded background
// sized to the narration duration, wrapped subtitle lines, optional
// logo watermark, and the narration as the audio track.
func (r *Renderer) RenderBody(ctx context.Context, audioPath string, audioDuration float64, script, out string) error {
	lines := WrapCaption(script, QuoteLineChars)
	fs := FontSizeFor(lines)
	if fs > 56 {
		fs = 56
	}
	lh := fs + 14
	blockY := (CanvasH - len(lines)*lh) / 2

	args := []string{
		"-y",
		"-f", "lavfi", "-i", fmt.Sprintf("color=c=0x101018:s=%dx%d:d=%.3f", CanvasW, CanvasH, audioDuration),
		"-i", audioPath,
	}

	var filter strings.Builder
	hasLogo := r.brand.LogoPath != "" && fileExists(r.brand.LogoPath)
	if hasLogo {
		args = append(args, "-i", r.brand.LogoPath)
		filter.WriteString("[2:v]scale=220:-1[logo];[0:v][logo]overlay=x=(W-w)/2:y=120[bg];[bg]")
	} else {
		filter.WriteString("[0:v]")
	}
	for i, line := range lines {
		if i > 0 {
			filter.WriteString(",")
		}
		fmt.Fprintf(&filter, "drawtext=fontfile='%s':text='%s':fontcolor=white:fontsize=%d:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d",
			r.ctaFont, escapeDrawtext(line), fs, blockY+i*lh)
	}
	filter.WriteString("[v]")

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[v]", "-map", "1:a",
		"-c:v", "libx264", "-crf", encodeCRF, "-preset", encodePreset,
		"-c:a", "aac", "-b:a", "128k",
		"-t", fmt.Sprintf("%.3f", audioDuration),
		"-movflags", "+faststart", out,
	)
	return r.tool.RunChecked(ctx, "body render", args...)
}

// RenderCTA produces the fixed-length branded end card. The segment is
// silent; AddSilentAudio gives it a uniform audio stream before
// concatenation.
func (r *Renderer) RenderCTA(ctx context.Context, tagline, out string) error {
	taglineY := CanvasH/2 - 60
	args := []string{
		"-y",
		"-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%.1f", CanvasW, CanvasH, CTADuration),
		"-vf", strings.Join([]string{
			fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%d:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d",
				r.ctaFont, escapeDrawtext(tagline), r.brand.Accent, ctaTaglineSize, taglineY),
			fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=white:fontsize=%d:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d",
				r.ctaFont, escapeDrawtext(r.brand.URL), ctaURLSize, taglineY+ctaTaglineSize+10),
		}, ","),
		"-c:v", "libx264", "-crf", encodeCRF, "-preset", encodePreset,
		"-an", "-movflags", "+faststart", out,
	}
	return r.tool.RunChecked(ctx, "cta render", args...)
}

// renderAd treats the source as a static image. The span start, text,
// and CTA flag do not apply to an ad segment.
func (r *Renderer) renderAd(ctx context.Context, source, out string, start, duration float64, text string, withCTA bool) error {
	return r.RenderAdImage(ctx, source, out, duration)
}

// RenderAdImage converts a static image into a fixed-duration silent
// segment at canvas size.
func (r *Renderer) RenderAdImage(ctx context.Context, imagePath, out string, duration float64) error {
	return r.tool.RunChecked(ctx, "ad image render",
		"-y", "-loop", "1", "-i", imagePath,
		"-t", fmt.Sprintf("%.1f", duration),
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", CanvasW, CanvasH, CanvasW, CanvasH),
		"-c:v", "libx264", "-crf", encodeCRF, "-preset", encodePreset,
		"-an", "-movflags", "+faststart", out,
	)
}

// AddSilentAudio muxes a silent stereo AAC track onto a video. The
// concat step requires every input to carry an audio stream of
// matching structure.
func (r *Renderer) AddSilentAudio(ctx context.Context, in, out string) error {
	return r.tool.RunChecked(ctx, "silent audio mux",
		"-y", "-i", in,
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", "copy", "-c:a", "aac", "-b:a", "128k",
		"-shortest", out,
	)
}

// Normalize re-encodes any clip to canvas size so it can join a concat
// sequence.
func (r *Renderer) Normalize(ctx context.Context, in, out string) error {
	return r.tool.RunChecked(ctx, "normalize",
		"-y", "-i", in,
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1", CanvasW, CanvasH, CanvasW, CanvasH),
		"-c:v", "libx264", "-crf", encodeCRF, "-preset", encodePreset,
		"-c:a", "aac", "-b:a", "128k", out,
	)
}

// Concat joins segments into one continuous output with synchronized
// streams, via the concat demuxer and a list file written next to the
// output.
func (r *Renderer) Concat(ctx context.Context, segments []string, out string) error {
	if len(segments) == 0 {
		return fmt.Errorf("concat: no segments")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var list strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return fmt.Errorf("resolve segment path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	listPath := out + ".concat.txt"
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	return r.tool.RunChecked(ctx, "concat",
		"-y", "-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c:v", "libx264", "-crf", encodeCRF, "-preset", encodePreset,
		"-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart", out,
	)
}

// encodeSpan cuts [start, start+duration) out of source and applies
// the filter chain.
func (r *Renderer) encodeSpan(ctx context.Context, op, source, out string, start, duration float64, filters []string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return r.tool.RunChecked(ctx, op,
		"-y", "-i", source,
		"-ss", fmt.Sprintf("%.3f", start), "-t", fmt.Sprintf("%.3f", duration),
		"-vf", strings.Join(filters, ","),
		"-map", "0:v", "-map", "0:a",
		"-c:v", "libx264", "-crf", encodeCRF, "-preset", encodePreset,
		"-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart", out,
	)
}

// ctaOverlay returns the tagline + URL drawtext filters centered in
// the space below the video band.
func (r *Renderer) ctaOverlay(videoBottom int) []string {
	bottomSpace := CanvasH - videoBottom
	blockH := ctaTaglineSize + 10 + ctaURLSize + 10
	textTop := videoBottom + (bottomSpace-blockH)/2
	return []string{
		fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%d:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d",
			r.ctaFont, escapeDrawtext(r.brand.Tagline), r.brand.Accent, ctaTaglineSize, textTop),
		fmt.Sprintf("drawtext=fontfile='%s':text='%s':fontcolor=white:fontsize=%d:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d",
			r.ctaFont, escapeDrawtext(r.brand.URL), ctaURLSize, textTop+ctaTaglineSize+10),
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
