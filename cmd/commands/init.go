package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskdeck/internal/config"
)

// NewInitCommand returns the onboarding subcommand.
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Initialize the taskdeck home directory (~/.taskdeck)",
		Action: runInit,
	}
}

func runInit(_ context.Context, _ *cli.Command) error {
	root := config.TaskdeckPath()
	created := false

	dirs := []string{
		root,
		filepath.Join(root, "tasks"),
		filepath.Join(root, "logs"),
	}
	for _, d := range dirs {
		if _, err := os.Stat(d); err != nil {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", d, err)
			}
			fmt.Printf("  Created %s\n", d)
			created = true
		}
	}

	configPath := config.ConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("  Created %s\n", configPath)
		created = true
	}

	dotenvPath := config.DotenvPath()
	if _, err := os.Stat(dotenvPath); err != nil {
		if err := os.WriteFile(dotenvPath, []byte(defaultDotenv), 0o600); err != nil {
			return fmt.Errorf("write .env: %w", err)
		}
		fmt.Printf("  Created %s\n", dotenvPath)
		created = true
	}

	if !created {
		fmt.Printf("%s is already set up. Nothing to do.\n", root)
		return nil
	}

	fmt.Println(initMessage(root))
	return nil
}

const defaultConfig = `{
	// taskdeck configuration

	"gateway": {
		"host": "127.0.0.1",
		"port": 18420,
		// Defaults to $TASKDECK_API_URL, then http://backend:8000
		"backend_url": "${{ .Env.TASKDECK_API_URL }}",
		"timeout": "10s"
	},

	"backend": {
		"host": "127.0.0.1",
		"port": 8000,
		"driver": "sqlite" // or "file"
	},

	"client": {
		"refresh_schedule": "@every 1m",
		"rollback_on_failure": false
	},

	"events": {
		"buffer_size": 1024
	}
}
`

const defaultDotenv = `# taskdeck environment variables
# This file is loaded automatically. Existing env vars are never overridden.

# TASKDECK_API_URL=http://127.0.0.1:8000
`

func initMessage(root string) string {
	return fmt.Sprintf(`
  taskdeck home set up at %s

  Next steps:
    1. Start the reference backend:  taskdeck backend
    2. Point the gateway at it in %s/.env (TASKDECK_API_URL)
    3. Start the gateway:            taskdeck gateway
    4. Open the board:               taskdeck tui
`, root, root)
}
