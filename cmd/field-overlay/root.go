package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/field-overlay-mcp/internal/config"
	"github.com/ironsheep/field-overlay-mcp/internal/logging"
	"github.com/ironsheep/field-overlay-mcp/internal/ocr"
	"github.com/ironsheep/field-overlay-mcp/internal/recognition"
	"github.com/ironsheep/field-overlay-mcp/internal/server"
)

var (
	envFile     string
	logLevel    string
	replayFiles []string

	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "field-overlay",
	Short: "Locate labelled values in camera frames and draw an overlay",
	Long: `field-overlay finds configured labels (Volume, Compliance, ...) in
recognized camera frames, pairs each with the value on the same row and
draws a colored box and caption over it.

Without a subcommand it runs the MCP server on stdin/stdout. Logs go to
stderr. Configuration is read from OVERLAY_* environment variables and an
optional .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "env file read before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides OVERLAY_LOG_LEVEL")
	rootCmd.PersistentFlags().StringSliceVar(&replayFiles, "replay", nil, "recorded frame JSON files to use instead of Tesseract")
	addServeFlags(rootCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFile(envFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}

	l, err := logging.New(c.LogLevel)
	if err != nil {
		return err
	}

	cfg, log = c, l
	server.Version = Version
	return nil
}

// newEngine returns the Tesseract engine, or a replay of the --replay
// recordings when any were given. loop makes the replay cycle forever.
func newEngine(loop bool) (ocr.Engine, func(), error) {
	if len(replayFiles) > 0 {
		frames := make([]recognition.Frame, 0, len(replayFiles))
		for _, path := range replayFiles {
			f, err := ocr.LoadRecording(path)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", path, err)
			}
			frames = append(frames, f)
		}
		log.WithField("frames", len(frames)).Info("Using recorded frames")
		if loop {
			return ocr.NewLoopingReplay(frames...), func() {}, nil
		}
		return ocr.NewReplay(frames...), func() {}, nil
	}

	t, err := ocr.NewTesseract(ocr.TesseractConfig{
		Language:       cfg.Language,
		TessdataPrefix: cfg.TessdataPrefix,
		Preprocess:     cfg.Preprocess,
		Contrast:       cfg.Contrast,
		MinConfidence:  cfg.MinConfidence,
	})
	if err != nil {
		return nil, nil, err
	}
	return t, func() {
		if err := t.Close(); err != nil {
			log.WithError(err).Warn("Failed to close OCR engine")
		}
	}, nil
}

// frameMeta resolves the --rotation and --flipped flags of cmd.
func frameMeta(cmd *cobra.Command, rotation int, flipped bool) (ocr.FrameMeta, error) {
	if !recognition.ValidRotation(rotation) {
		return ocr.FrameMeta{}, fmt.Errorf("%w: %d", recognition.ErrInvalidRotation, rotation)
	}
	if !cmd.Flags().Changed("flipped") {
		flipped = cfg.Flipped
	}
	return ocr.FrameMeta{Rotation: rotation, Flipped: flipped}, nil
}
