package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/field-overlay-mcp/internal/overlay"
	"github.com/ironsheep/field-overlay-mcp/internal/server"
)

var (
	serveWatchDir string
	liveRotation  int
	liveFlipped   bool
	liveOutDir    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Run the MCP server on stdin/stdout.

With --watch the server also analyzes frames dropped into a directory,
streams the overlay on the websocket feed (OVERLAY_FEED_ADDR) and shares the
camera session with the MCP tools.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serveWatchDir, "watch", "", "also analyze frames written to this directory")
	addLiveFlags(cmd)
}

func addLiveFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&liveRotation, "rotation", 0, "clockwise rotation that makes frames upright (0, 90, 180, 270)")
	cmd.Flags().BoolVar(&liveFlipped, "flipped", false, "frames come from a mirrored preview (default OVERLAY_FLIPPED)")
	cmd.Flags().StringVar(&liveOutDir, "out-dir", "", "write an annotated copy of every analyzed frame here")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, closeEngine, err := newEngine(false)
	if err != nil {
		return err
	}
	defer closeEngine()

	cell := &overlay.SourceCell{}
	srv := server.New(cfg,
		server.WithEngine(engine),
		server.WithLogger(log),
		server.WithSourceCell(cell),
	)

	if serveWatchDir != "" {
		meta, err := frameMeta(cmd, liveRotation, liveFlipped)
		if err != nil {
			return err
		}
		l, err := startLive(ctx, engine, cell, serveWatchDir, meta, liveOutDir)
		if err != nil {
			return err
		}
		defer l.Stop()
	}

	log.WithField("version", Version).
		WithField("labels", len(cfg.Labels)).
		Info("Field overlay MCP server starting")

	return srv.Run(ctx)
}
