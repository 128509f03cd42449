// Package pipeline orchestrates end-to-end processing of an uploaded
// video: audio extraction, transcription, candidate detection, and
// per-candidate rendering into the library. Progress is observable two
// ways: durable state files under processing/ and live bus events.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/detect"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/render"
)

// AudioExtractor pulls a speech-optimized audio track from a video.
// Satisfied by media.Tool.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
}

// Transcriber produces a segmented transcript. Satisfied by
// providers.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, jobID string) (providers.Transcript, error)
}

// CandidateDetector proposes clip candidates from a transcript.
// Satisfied by detect.Detector.
type CandidateDetector interface {
	Detect(ctx context.Context, transcript providers.Transcript, jobID string, types []string, count int, audience string) ([]detect.Candidate, error)
}

// CandidateRenderer renders one candidate span. Satisfied by
// render.Renderer.
type CandidateRenderer interface {
	RenderCandidate(ctx context.Context, kind render.Kind, source, out string, start, duration float64, text string, withCTA bool) error
}

// Request describes one processing run.
type Request struct {
	VideoPath    string
	ClipTypes    []string
	Count        int
	Audience     string
	AddNarration bool
}

// RenderedClip is one candidate that made it through rendering.
type RenderedClip struct {
	Type       string  `json:"type"`
	Timestamp  float64 `json:"timestamp"`
	Duration   float64 `json:"duration"`
	Caption    string  `json:"caption,omitempty"`
	Quote      string  `json:"quote,omitempty"`
	Score      float64 `json:"score"`
	OutputFile string  `json:"output_file"`
}

// State is the durable progress record for one run. It is rewritten
// whole after every step, so readers always see a consistent document.
type State struct {
	JobID        string            `json:"job_id"`
	Status       string            `json:"status"`
	ClipTypes    []string          `json:"clip_types"`
	AddNarration bool              `json:"add_narration"`
	Count        int               `json:"count"`
	Audience     string            `json:"audience"`
	Steps        map[string]string `json:"steps"`
	Clips        []RenderedClip    `json:"clips"`
	Candidates   int               `json:"candidates,omitempty"`
	Error        string            `json:"error,omitempty"`
	UpdatedAt    string            `json:"updated_at"`
}

type Orchestrator struct {
	extractor   AudioExtractor
	transcriber Transcriber
	detector    CandidateDetector
	renderer    CandidateRenderer
	bus         *events.Bus
	logger      *slog.Logger

	processingDir string
	libraryDir    string
}

func New(extractor AudioExtractor, transcriber Transcriber, detector CandidateDetector, renderer CandidateRenderer,
	processingDir, libraryDir string, bus *events.Bus, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		extractor:     extractor,
		transcriber:   transcriber,
		detector:      detector,
		renderer:      renderer,
		bus:           bus,
		logger:        logger,
		processingDir: processingDir,
		libraryDir:    libraryDir,
	}
}

// Start writes the initial state record and launches the run in the
// background, returning the assigned job id immediately.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	jobID := uuid.NewString()
	state := State{
		JobID:        jobID,
		Status:       "running",
		ClipTypes:    req.ClipTypes,
		AddNarration: req.AddNarration,
		Count:        req.Count,
		Audience:     req.Audience,
		Steps:        map[string]string{},
		Clips:        []RenderedClip{},
	}
	if err := o.saveState(state); err != nil {
		return "", err
	}

	go o.run(ctx, jobID, req, state)
	return jobID, nil
}

// LoadState reads the durable state for a job id.
func (o *Orchestrator) LoadState(jobID string) (State, error) {
	data, err := os.ReadFile(o.statePath(jobID))
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("corrupt state for %s: %w", jobID, err)
	}
	return state, nil
}

func (o *Orchestrator) run(ctx context.Context, jobID string, req Request, state State) {
	fail := func(err error) {
		o.logger.Error("processing run failed", "job_id", jobID, "error", err)
		state.Status = "error"
		state.Error = err.Error()
		o.saveStateLogged(state)
		o.emit(jobID, "error", "error", err.Error(), 0)
	}

	o.emit(jobID, "audio", "running", "Extracting audio...", 0)
	audioPath := filepath.Join(o.processingDir, jobID+"_audio.mp3")
	if err := o.extractor.ExtractAudio(ctx, req.VideoPath, audioPath); err != nil {
		fail(fmt.Errorf("extract audio: %w", err))
		return
	}
	state.Steps["audio"] = "done"
	o.saveStateLogged(state)
	o.emit(jobID, "audio", "done", "Audio extracted", 25)

	o.emit(jobID, "transcribe", "running", "Transcribing...", 25)
	transcript, err := o.transcriber.Transcribe(ctx, audioPath, jobID)
	if err != nil {
		fail(fmt.Errorf("transcribe: %w", err))
		return
	}
	state.Steps["transcribe"] = "done"
	o.saveStateLogged(state)
	o.emit(jobID, "transcribe", "done", "Transcription complete", 50)

	o.emit(jobID, "detect", "running", "Detecting clip candidates...", 50)
	candidates, err := o.detector.Detect(ctx, transcript, jobID, req.ClipTypes, req.Count, req.Audience)
	if err != nil {
		fail(fmt.Errorf("detect candidates: %w", err))
		return
	}
	state.Steps["detect"] = "done"
	state.Candidates = len(candidates)
	o.saveStateLogged(state)
	o.emit(jobID, "detect", "done", fmt.Sprintf("Found %d candidates", len(candidates)), 75)

	outDir := filepath.Join(o.libraryDir, jobID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fail(fmt.Errorf("create library dir: %w", err))
		return
	}

	o.emit(jobID, "render", "running", "Rendering clips...", 75)
	for i, cand := range candidates {
		name := fmt.Sprintf("%02d_%s_%ds.mp4", i+1, candidateKind(cand), int(cand.Timestamp))
		out := filepath.Join(outDir, name)
		err := o.renderer.RenderCandidate(ctx, render.Kind(candidateKind(cand)), req.VideoPath, out,
			cand.Timestamp, cand.Duration, cand.Text(), req.AddNarration)
		if err != nil {
			// One bad candidate never sinks the run.
			o.logger.Warn("candidate render failed", "job_id", jobID, "index", i+1, "error", err)
			o.emit(jobID, "render", "error", fmt.Sprintf("Clip %d failed: %v", i+1, err), 0)
			continue
		}
		state.Clips = append(state.Clips, RenderedClip{
			Type:       cand.Type,
			Timestamp:  cand.Timestamp,
			Duration:   cand.Duration,
			Caption:    cand.Caption,
			Quote:      cand.Quote,
			Score:      cand.Score,
			OutputFile: name,
		})
		o.emit(jobID, "render", "running",
			fmt.Sprintf("Rendered %d/%d: %s", i+1, len(candidates), name),
			75+25*(i+1)/len(candidates))
	}

	state.Steps["render"] = "done"
	state.Status = "done"
	o.saveStateLogged(state)
	o.emit(jobID, "render", "done", fmt.Sprintf("Done! %d clips ready", len(state.Clips)), 100)
	o.logger.Info("processing run complete", "job_id", jobID, "clips", len(state.Clips))
}

func candidateKind(c detect.Candidate) string {
	if c.Type == "quote" {
		return "quote"
	}
	return "meme"
}

func (o *Orchestrator) statePath(jobID string) string {
	return filepath.Join(o.processingDir, jobID+"_state.json")
}

func (o *Orchestrator) saveState(state State) error {
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(o.statePath(state.JobID), data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (o *Orchestrator) saveStateLogged(state State) {
	if err := o.saveState(state); err != nil {
		o.logger.Warn("failed to save pipeline state", "job_id", state.JobID, "error", err)
	}
}

func (o *Orchestrator) emit(jobID, step, status, msg string, progress int) {
	if o.bus != nil {
		o.bus.Publish(events.Event{JobID: jobID, Step: step, Status: status, Message: msg, Progress: progress})
	}
}
