package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wfunc/trexbooth/broadcast"
	"github.com/wfunc/trexbooth/commentary"
	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/opponent"
	"github.com/wfunc/trexbooth/server"
	"github.com/wfunc/trexbooth/services"
	"github.com/wfunc/trexbooth/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	// The database may not be attached yet; endpoints fail individually until it is.
	logger.Log.Info("Initializing database tables...")
	if err := a.store.InitSchema(ctx); err != nil {
		logger.Log.Warnw("database init failed, app will start but database endpoints will fail", "error", err)
	} else {
		logger.Log.Info("Database ready.")
	}

	sessions := session.NewManager()
	feed := broadcast.NewFeedBroadcaster(sessions)
	game := services.NewGameService(
		a.store,
		opponent.New(nil),
		commentary.New(a.completer, a.monitor),
		feed,
		a.monitor,
	)

	opts := server.Options{
		Address:    cfg.Server.HTTPAddress,
		RPCAddress: cfg.Server.RPCAddress,
		StaticDir:  cfg.Server.StaticDir,
		Heartbeat:  cfg.Server.Heartbeat,
		Game:       game,
		Sessions:   sessions,
		Monitor:    a.monitor,
	}
	if a.genie != nil {
		opts.Genie = a.genie
	}
	gameServer, err := server.NewGameServer(opts)
	if err != nil {
		return err
	}

	if cfg.Monitor.Address != "" {
		metricsServer := a.monitor.StartServer(cfg.Monitor.Address)
		defer metricsServer.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info("server stopped")
	return nil
}
