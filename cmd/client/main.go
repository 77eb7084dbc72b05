// Package main is the entry point for the order book summary TUI client:
// it dials a running aggregator's book_summary stream and renders the
// merged top-of-book as it updates.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/streamclient"
	"github.com/keyrock-labs/orderbook-aggregator/internal/config"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
	"github.com/keyrock-labs/orderbook-aggregator/pkg/ui"
)

func main() {
	// Positional CLI surface: client [<port>], default host [::1] and
	// port 30253 per the reference configuration.
	var portArg string
	if len(os.Args) > 1 {
		portArg = os.Args[1]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, portArg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, portArg string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if portArg != "" {
		port, err := strconv.Atoi(portArg)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", portArg, err)
		}
		cfg.Client.Port = port
	}

	log := logger.New(io.Discard, logger.LevelInfo, "orderbook-client", nil)

	clientCfg := streamclient.Config{Host: cfg.Client.Host, Port: cfg.Client.Port}
	sc, err := streamclient.New(clientCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create stream client: %w", err)
	}

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		ui.Send(ui.ConnectionStatusMsg{Addr: clientCfg.Addr(), Connected: false})

		runErrCh := make(chan error, 1)
		go func() { runErrCh <- sc.Run(ctx) }()

		ui.Send(ui.ConnectionStatusMsg{Addr: clientCfg.Addr(), Connected: true})

		for {
			select {
			case summary := <-sc.Summaries():
				ui.Send(ui.SummaryMsg{Summary: summary})
			case err := <-runErrCh:
				if err != nil && ctx.Err() == nil {
					ui.Send(ui.ErrorMsg{Error: err})
				}
				errCh <- err
				return
			case <-ctx.Done():
				errCh <- nil
				return
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
