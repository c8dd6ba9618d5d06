package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskdeck/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show taskdeck gateway status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			status, hb, err := heartbeat.Check(heartbeatPath(), 2*time.Minute)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Gateway: ALIVE (PID %d, %s, uptime %s)\n", hb.PID, hb.Addr, hb.Uptime)
			case heartbeat.StatusStale:
				fmt.Printf("Gateway: STALE (PID %d, last heartbeat %s ago)\n",
					hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Gateway: NOT RUNNING")
			}
			if hb != nil && hb.Backend != "" {
				if hb.BackendUp {
					fmt.Printf("Backend: UP (%s)\n", hb.Backend)
				} else {
					fmt.Printf("Backend: DOWN (%s: %s)\n", hb.Backend, hb.BackendErr)
				}
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			health, err := fetchHealth(ctx, cfg.Client.GatewayURL)
			if err != nil {
				fmt.Printf("API:     unreachable at %s (%v)\n", cfg.Client.GatewayURL, err)
				return nil
			}
			fmt.Printf("API:     %s at %s, %d live client(s)\n", health.Status, cfg.Client.GatewayURL, health.WSClients)
			return nil
		},
	}
}

type gatewayHealth struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	WSClients int    `json:"ws_clients"`
}

func fetchHealth(ctx context.Context, gatewayURL string) (gatewayHealth, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var h gatewayHealth
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL+"/api/health", nil)
	if err != nil {
		return h, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&h)
	return h, err
}
