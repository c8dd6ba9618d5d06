package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskdeck/internal/config"
	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/gateway"
	"github.com/dohr-michael/taskdeck/internal/heartbeat"
	"github.com/dohr-michael/taskdeck/internal/storage"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Start the taskdeck gateway server",
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
				Name:  "backend-url",
				Usage: "Backend task service origin (overrides config and TASKDECK_API_URL)",
			},
		},
		Action: runGateway,
	}
}

func runGateway(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}
	if cmd.IsSet("backend-url") {
		cfg.Gateway.BackendURL = cmd.String("backend-url")
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	upstream := gateway.NewUpstream(cfg.Gateway.BackendURL, &http.Client{Timeout: cfg.Gateway.Timeout.Duration()})
	server := gateway.NewServer(bus, upstream, cfg.Gateway.Host, cfg.Gateway.Port)

	// SIGHUP re-reads .env and the config file and repoints the upstream.
	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), cfg)
	reloader.OnReload(func(c *config.Config) {
		if cmd.IsSet("backend-url") {
			return
		}
		upstream.SetBaseURL(c.Gateway.BackendURL)
	})
	go reloader.ReloadOnSignal(ctx, syscall.SIGHUP)

	if err := os.MkdirAll(config.TaskdeckPath(), 0o755); err != nil {
		return fmt.Errorf("create home: %w", err)
	}
	changes := storage.NewChangeLog(changesDir(), bus)
	defer changes.Close()

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	hb := heartbeat.NewWriter(heartbeatPath(), addr, 0, func(ctx context.Context) (string, error) {
		return upstream.BaseURL(), upstream.Ping(ctx)
	})
	hb.Start()
	defer hb.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func heartbeatPath() string {
	return filepath.Join(config.TaskdeckPath(), "heartbeat.json")
}

func changesDir() string {
	return filepath.Join(config.TaskdeckPath(), "logs", "changes")
}
