package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskdeck/internal/backend"
)

// NewBackendCommand returns the backend subcommand.
func NewBackendCommand() *cli.Command {
	return &cli.Command{
		Name:  "backend",
		Usage: "Start the reference task service the gateway forwards to",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "Storage driver: sqlite or file",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "SQLite database path (sqlite driver)",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Task directory (file driver)",
			},
		},
		Action: runBackend,
	}
}

func runBackend(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	bc := cfg.Backend
	if cmd.IsSet("host") {
		bc.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		bc.Port = cmd.Int("port")
	}
	if cmd.IsSet("driver") {
		bc.Driver = cmd.String("driver")
	}
	if cmd.IsSet("dsn") {
		bc.DSN = cmd.String("dsn")
	}
	if cmd.IsSet("dir") {
		bc.Dir = cmd.String("dir")
	}

	repo, err := backend.Open(bc.Driver, bc.DSN, bc.Dir)
	if err != nil {
		return fmt.Errorf("open %s repository: %w", bc.Driver, err)
	}
	defer repo.Close()

	srv := &http.Server{
		Addr:              net.JoinHostPort(bc.Host, strconv.Itoa(bc.Port)),
		Handler:           backend.NewHandler(repo),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("taskdeck backend listening", "addr", srv.Addr, "driver", bc.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
