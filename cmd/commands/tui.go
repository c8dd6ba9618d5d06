package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskdeck/clients/tui"
	"github.com/dohr-michael/taskdeck/internal/config"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive TUI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway base URL (defaults to client.gateway_url)",
			},
			&cli.StringFlag{
				Name:  "refresh",
				Usage: `Background refresh schedule, cron or "@every 30s"; "off" disables`,
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Undo optimistic changes the backend rejects",
			},
		},
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logFile, err := setupTUILogging(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	opts := tui.RunOptions{
		GatewayURL:        cfg.Client.GatewayURL,
		RefreshSchedule:   cfg.Client.RefreshSchedule,
		RollbackOnFailure: cfg.Client.RollbackOnFailure,
		BufferSize:        cfg.Events.BufferSize,
		HTTPClient:        &http.Client{Timeout: requestTimeout},
	}
	if cmd.IsSet("gateway") {
		opts.GatewayURL = cmd.String("gateway")
	}
	if cmd.IsSet("refresh") {
		opts.RefreshSchedule = cmd.String("refresh")
	}
	if cmd.IsSet("rollback") {
		opts.RollbackOnFailure = cmd.Bool("rollback")
	}
	if strings.EqualFold(opts.RefreshSchedule, "off") {
		opts.RefreshSchedule = ""
	}

	slog.Info("starting tui", "gateway", opts.GatewayURL, "refresh", opts.RefreshSchedule)
	return tui.Run(ctx, opts)
}

// setupTUILogging keeps log output off the terminal while the TUI owns it:
// debug logs go to logs/tui.log, everything else is dropped.
func setupTUILogging(debug bool) (*os.File, error) {
	if !debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}
	dir := filepath.Join(config.TaskdeckPath(), "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f, nil
}
