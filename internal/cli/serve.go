package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/scriptshield/internal/logger"
	"github.com/gzhole/scriptshield/internal/server"
	"github.com/gzhole/scriptshield/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis engine over HTTP",
	Long: `Start the HTTP API.

Endpoints:
  GET  /health            liveness and catalog size
  POST /api/analyze       {"script_content": "...", "file_name": "..."}
  GET  /api/results/:id   a stored result
  GET  /api/catalog       the threat families in use
  GET  /metrics           Prometheus metrics`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := newEngine(cfg, zl)
	if err != nil {
		return err
	}

	opts := server.Options{
		Engine:         engine,
		Logger:         zl,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Timeout:        cfg.Analysis.Timeout,
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open result store: %w", err)
		}
		defer st.Close()
		opts.Store = st
	}

	audit, err := logger.New(cfg.LogPath)
	if err != nil {
		zl.Warn("audit log unavailable", zap.String("path", cfg.LogPath), zap.Error(err))
	} else {
		defer audit.Close()
		opts.Audit = audit
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl.Info("starting scriptshield",
		zap.String("addr", addr),
		zap.Int("families", engine.Catalog().Len()),
		zap.Bool("store", opts.Store != nil),
	)
	return server.New(opts).Run(ctx, addr, cfg.Server.ShutdownTimeout)
}
