package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	wsclient "github.com/dohr-michael/taskdeck/clients/ws"
	"github.com/dohr-michael/taskdeck/internal/client"
	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/scheduler"
	"github.com/dohr-michael/taskdeck/internal/store"
)

const maxReconnectDelay = 30 * time.Second

// RunOptions configures Run.
type RunOptions struct {
	GatewayURL        string
	RefreshSchedule   string // cron spec; empty disables periodic refresh
	RollbackOnFailure bool
	BufferSize        int
	HTTPClient        *http.Client
}

// Run starts the TUI against a gateway and blocks until the user quits.
func Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewBus(opts.BufferSize)
	defer bus.Close()
	ch, unsubscribe := bus.SubscribeChan(64, events.EventStoreLoaded, events.EventStoreChanged, events.EventStoreError)
	defer unsubscribe()

	var clientOpts []client.Option
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(opts.HTTPClient))
	}
	s := store.New(client.New(opts.GatewayURL, clientOpts...),
		store.WithBus(bus),
		store.WithRollback(opts.RollbackOnFailure),
	)
	defer s.Close()

	if opts.RefreshSchedule != "" {
		r, err := scheduler.NewRefresher(opts.RefreshSchedule, func() {
			if err := s.Refresh(ctx); err != nil && !errors.Is(err, store.ErrClosed) {
				slog.Debug("scheduled refresh failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("refresh schedule: %w", err)
		}
		r.Start()
		defer r.Stop()
	}

	app := NewApp(Options{Context: ctx, Store: s, Events: ch})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	go watchChanges(ctx, wsclient.URL(opts.GatewayURL), s, p.Send)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// watchChanges keeps a change feed connection open and refreshes the store
// on every notification, reconnecting with exponential delay.
func watchChanges(ctx context.Context, url string, s *store.Store, send func(tea.Msg)) {
	delay := time.Second
	for ctx.Err() == nil {
		c, err := wsclient.Dial(ctx, url)
		if err == nil {
			delay = time.Second
			send(ConnectedMsg{})
			// Catch up on anything missed while disconnected.
			_ = s.Refresh(ctx)
			err = c.Watch(func(ch wsclient.Change) {
				slog.Debug("task changed", "op", ch.Op, "id", ch.ID)
				if err := s.Refresh(ctx); err != nil && !errors.Is(err, store.ErrClosed) {
					slog.Debug("refresh after change failed", "error", err)
				}
			})
			_ = c.Close()
		}
		if ctx.Err() != nil {
			return
		}
		slog.Debug("change feed disconnected", "error", err, "retry_in", delay)
		send(DisconnectedMsg{Err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}
