package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/detect"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/media"
	"github.com/clipforge/clipforge/internal/providers"
)

// newAnalyzeCommand runs the analysis half of the pipeline once, from
// the terminal: extract audio, transcribe, detect candidates, print
// them as JSON. Useful for previewing a video before committing to
// renders.
func newAnalyzeCommand() *cobra.Command {
	var (
		typesFlag    string
		countFlag    int
		audienceFlag string
	)

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Detect clip candidates in a video and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0], strings.Split(typesFlag, ","), countFlag, audienceFlag)
		},
	}

	cmd.Flags().StringVar(&typesFlag, "types", "meme", "comma-separated candidate types (meme,quote)")
	cmd.Flags().IntVar(&countFlag, "count", 5, "candidates to request per type")
	cmd.Flags().StringVar(&audienceFlag, "audience", "", "target audience description")
	return cmd
}

func runAnalyze(videoPath string, types []string, count int, audience string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create data dirs: %w", err)
	}

	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("video not found: %s", videoPath)
	}

	// Keep stdout clean for the JSON result.
	logger := logging.NewLogger("warn")

	tool, err := media.NewTool(cfg.RenderTimeout, logger)
	if err != nil {
		return fmt.Errorf("media tooling unavailable: %w", err)
	}

	client := providers.NewClient(providers.Options{
		OpenAIKey:     cfg.OpenAIKey,
		ElevenLabsKey: cfg.ElevenLabsKey,
		ProcessingDir: cfg.ProcessingDir(),
		TmpDir:        cfg.TmpDir(),
		Timeout:       cfg.ProviderTimeout,
		Prober:        tool,
		Logger:        logger,
	})
	detector := detect.New(client, cfg.ProcessingDir(), logger)

	ctx := context.Background()
	jobID := uuid.NewString()

	audioPath := filepath.Join(cfg.ProcessingDir(), jobID+"_audio.mp3")
	if err := tool.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}

	transcript, err := client.Transcribe(ctx, audioPath, jobID)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	candidates, err := detector.Detect(ctx, transcript, jobID, types, count, audience)
	if err != nil {
		return fmt.Errorf("detect candidates: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(candidates)
}
