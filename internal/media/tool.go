// Package media wraps the ffmpeg/ffprobe toolchain as subprocesses.
// It is the single execution path for every render and probe in the
// daemon; callers get exit codes and a bounded stderr tail back, never
// raw pipes.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// ErrRender marks a tool invocation that exited nonzero. The wrapped
// message carries the stderr tail.
var ErrRender = errors.New("render tool failed")

// RunResult captures one tool invocation.
type RunResult struct {
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}

func (r RunResult) IsSuccess() bool {
	return r.ExitCode == 0
}

// Tool executes ffmpeg and ffprobe with bounded diagnostics.
type Tool struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	logger  *slog.Logger
}

// NewTool resolves both binaries on PATH. The timeout bounds every
// invocation; zero means no bound.
func NewTool(timeout time.Duration, logger *slog.Logger) (*Tool, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffprobe: %w", err)
	}
	return &Tool{ffmpeg: ffmpeg, ffprobe: ffprobe, timeout: timeout, logger: logger}, nil
}

// Run executes ffmpeg with the given arguments.
func (t *Tool) Run(ctx context.Context, args ...string) RunResult {
	return t.exec(ctx, t.ffmpeg, args)
}

// RunChecked executes ffmpeg and converts a nonzero exit into an
// ErrRender-wrapped error naming the operation.
func (t *Tool) RunChecked(ctx context.Context, op string, args ...string) error {
	result := t.Run(ctx, args...)
	if !result.IsSuccess() {
		return fmt.Errorf("%w: %s exited %d: %s", ErrRender, op, result.ExitCode, result.StderrTail)
	}
	return nil
}

// Probe returns the duration in seconds of the first stream that
// reports one.
func (t *Tool) Probe(ctx context.Context, path string) (float64, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffprobe,
		"-v", "quiet", "-print_format", "json", "-show_streams", path)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	for _, stream := range gjson.GetBytes(stdout.Bytes(), "streams").Array() {
		if d := stream.Get("duration"); d.Exists() {
			return d.Float(), nil
		}
	}
	return 0, fmt.Errorf("ffprobe %s: no stream duration", filepath.Base(path))
}

// ExtractAudio pulls a mono 16 kHz mp3 track out of a video, the shape
// the transcription provider expects.
func (t *Tool) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	return t.RunChecked(ctx, "audio extraction",
		"-y", "-i", videoPath,
		"-vn", "-ar", "16000", "-ac", "1", "-b:a", "32k",
		outPath,
	)
}

func (t *Tool) exec(ctx context.Context, bin string, args []string) RunResult {
	start := time.Now()

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr tailBuffer
	stderr.limit = maxStderrBytes
	cmd.Stderr = &stderr
	cmd.Stdout = io.Discard

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			stderr.Write([]byte(err.Error()))
		}
	}

	if exitCode != 0 {
		t.logger.Warn("tool invocation failed",
			"bin", filepath.Base(bin),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncateTail(stderr.String(), 512),
		)
	} else {
		t.logger.Debug("tool invocation succeeded",
			"bin", filepath.Base(bin),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		StderrTail: stderr.String(),
		Duration:   elapsed,
	}
}

func (t *Tool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

// tailBuffer keeps only the last `limit` bytes written.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if t.buf.Len() > t.limit {
		trimmed := t.buf.Bytes()[t.buf.Len()-t.limit:]
		var next bytes.Buffer
		next.Write(trimmed)
		t.buf = next
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}

func truncateTail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
