package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/render"
)

// SegmentRenderer is the slice of the renderer the job pipeline uses.
type SegmentRenderer interface {
	RenderCandidate(ctx context.Context, kind render.Kind, source, out string, start, duration float64, text string, withCTA bool) error
	RenderBody(ctx context.Context, audioPath string, audioDuration float64, script, out string) error
	RenderCTA(ctx context.Context, tagline, out string) error
	AddSilentAudio(ctx context.Context, in, out string) error
	Concat(ctx context.Context, segments []string, out string) error
}

// Narrator synthesizes narration audio. Satisfied by providers.Client.
type Narrator interface {
	Synthesize(ctx context.Context, script, voice, provider string) (providers.SpeechResult, error)
}

// AudioProber measures audio duration. Satisfied by media.Tool.
type AudioProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// RunnerOptions configure the job pipeline.
type RunnerOptions struct {
	TmpDir       string
	PublishedDir string
	UploadsDir   string
	TTSVoice     string
	TTSProvider  string
}

// Runner assembles one job's final video: hook segment, narrated body,
// and branded end card, concatenated into the published directory.
type Runner struct {
	render SegmentRenderer
	speech Narrator
	prober AudioProber
	opts   RunnerOptions
	bus    *events.Bus
	logger *slog.Logger
}

func NewRunner(renderer SegmentRenderer, speech Narrator, prober AudioProber, opts RunnerOptions, bus *events.Bus, logger *slog.Logger) *Runner {
	if opts.TTSVoice == "" {
		opts.TTSVoice = "shimmer"
	}
	if opts.TTSProvider == "" {
		opts.TTSProvider = "openai"
	}
	return &Runner{render: renderer, speech: speech, prober: prober, opts: opts, bus: bus, logger: logger}
}

// Run executes the segment pipeline for one job and returns the final
// output path. Intermediates live under tmp and are removed on both
// success and failure; only the concatenated result is kept.
func (r *Runner) Run(ctx context.Context, job Job) (out string, err error) {
	if err := os.MkdirAll(r.opts.TmpDir, 0755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	var temps []string
	defer func() {
		for _, path := range temps {
			if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
				r.logger.Warn("failed to remove intermediate", "path", path, "error", rerr)
			}
		}
	}()
	tmp := func(suffix string) string {
		path := filepath.Join(r.opts.TmpDir, job.ID+suffix)
		temps = append(temps, path)
		return path
	}

	r.step(job.ID, "hook", 10)
	hookOut := tmp("_hook.mp4")
	if err := r.render.RenderCandidate(ctx, render.KindMeme, job.SourceFile, hookOut,
		job.StartSeconds, job.DurationSeconds, job.HookCaption, false); err != nil {
		return "", fmt.Errorf("hook segment: %w", err)
	}

	r.step(job.ID, "narration", 30)
	audioPath, audioDuration, cleanup, err := r.resolveBodyAudio(ctx, job)
	if err != nil {
		return "", fmt.Errorf("body narration: %w", err)
	}
	if cleanup != "" {
		temps = append(temps, cleanup)
	}

	r.step(job.ID, "body", 50)
	bodyOut := tmp("_body.mp4")
	if err := r.render.RenderBody(ctx, audioPath, audioDuration, job.BodyScript, bodyOut); err != nil {
		return "", fmt.Errorf("body segment: %w", err)
	}

	r.step(job.ID, "cta", 70)
	ctaOut := tmp("_cta.mp4")
	if err := r.render.RenderCTA(ctx, job.CTATagline, ctaOut); err != nil {
		return "", fmt.Errorf("cta segment: %w", err)
	}
	ctaWithAudio := tmp("_cta_audio.mp4")
	if err := r.render.AddSilentAudio(ctx, ctaOut, ctaWithAudio); err != nil {
		return "", fmt.Errorf("cta audio mux: %w", err)
	}

	r.step(job.ID, "assemble", 85)
	finalOut := filepath.Join(r.opts.PublishedDir, job.OutputName)
	if err := r.render.Concat(ctx, []string{hookOut, bodyOut, ctaWithAudio}, finalOut); err != nil {
		return "", fmt.Errorf("assemble output: %w", err)
	}

	return finalOut, nil
}

// resolveBodyAudio returns the narration audio for the body segment:
// a pre-recorded file when the job names one, otherwise synthesized
// speech. The cleanup path is non-empty only for synthesized audio.
func (r *Runner) resolveBodyAudio(ctx context.Context, job Job) (path string, duration float64, cleanup string, err error) {
	if job.BodyAudioFile != "" {
		path, err = r.findAudioFile(job.BodyAudioFile)
		if err != nil {
			return "", 0, "", err
		}
		duration, err := r.prober.Probe(ctx, path)
		if err != nil {
			return "", 0, "", fmt.Errorf("measure narration file: %w", err)
		}
		return path, duration, "", nil
	}

	speech, err := r.speech.Synthesize(ctx, job.BodyScript, r.opts.TTSVoice, r.opts.TTSProvider)
	if err != nil {
		return "", 0, "", err
	}
	return speech.Path, speech.Duration, speech.Path, nil
}

// findAudioFile resolves a narration file reference. Absolute paths
// are taken as given; bare names are looked up where synthesized and
// uploaded audio lands.
func (r *Runner) findAudioFile(name string) (string, error) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		base := filepath.Base(name)
		candidates = append(candidates,
			filepath.Join(r.opts.TmpDir, base),
			filepath.Join(r.opts.UploadsDir, base),
		)
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("narration file not found: %s", filepath.Base(name))
}

func (r *Runner) step(jobID, step string, progress int) {
	if r.bus != nil {
		r.bus.Publish(events.Event{JobID: jobID, Step: step, Status: "running", Progress: progress})
	}
	r.logger.Debug("pipeline step", "job_id", jobID, "step", step)
}
