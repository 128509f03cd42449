package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/media"
	"github.com/clipforge/clipforge/internal/render"
)

// newCompileCommand stitches already-rendered clips into one
// compilation, optionally weaving in an ad segment.
func newCompileCommand() *cobra.Command {
	var (
		outFlag       string
		adFlag        string
		placementFlag string
		frequencyFlag int
		imageDurFlag  float64
	)

	cmd := &cobra.Command{
		Use:   "compile <clip>...",
		Short: "Concatenate rendered clips into a compilation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args, adFlag, outFlag, render.CompileOptions{
				Placement:     placementFlag,
				Frequency:     frequencyFlag,
				ImageDuration: imageDurFlag,
			})
		},
	}

	cmd.Flags().StringVar(&outFlag, "out", "compilation.mp4", "output file path")
	cmd.Flags().StringVar(&adFlag, "ad", "", "ad image or video to insert")
	cmd.Flags().StringVar(&placementFlag, "placement", "end", "ad placement: end, between, or both")
	cmd.Flags().IntVar(&frequencyFlag, "frequency", 2, "insert the ad after every N clips")
	cmd.Flags().Float64Var(&imageDurFlag, "image-duration", 5, "seconds a static ad image plays")
	return cmd
}

func runCompile(clips []string, adPath, out string, opts render.CompileOptions) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, clip := range clips {
		if _, err := os.Stat(clip); err != nil {
			return fmt.Errorf("clip not found: %s", clip)
		}
	}
	if adPath != "" {
		if _, err := os.Stat(adPath); err != nil {
			return fmt.Errorf("ad file not found: %s", adPath)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel)
	tool, err := media.NewTool(cfg.RenderTimeout, logger)
	if err != nil {
		return fmt.Errorf("media tooling unavailable: %w", err)
	}

	renderer := render.New(tool, cfg.Brand, logger)
	if err := renderer.Compile(context.Background(), clips, adPath, out, opts); err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
