package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Analyze frames written to a directory and stream the overlay",
	Long: `Analyze every frame image (.png, .jpg) written to DIR and stream the
overlay to websocket viewers at ws://OVERLAY_FEED_ADDR/feed.

Frames arriving while one is being analyzed are coalesced: only the newest
waits. With --replay the recorded frames cycle instead of running Tesseract.
Send SIGHUP to start a new camera session after the camera changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addLiveFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta, err := frameMeta(cmd, liveRotation, liveFlipped)
	if err != nil {
		return err
	}
	engine, closeEngine, err := newEngine(true)
	if err != nil {
		return err
	}
	defer closeEngine()

	l, err := startLive(ctx, engine, &overlay.SourceCell{}, args[0], meta, liveOutDir)
	if err != nil {
		return err
	}
	defer l.Stop()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		return nil
	case err := <-l.Err():
		return err
	}
}
