package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/crazyagent/internal/gateway"
	"github.com/rahul/crazyagent/internal/observability"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept instructions over Telegram",
	Long: `Serve starts the Telegram gateway configured under gateways.telegram
and executes each received instruction, replying with the step log.
Structured events are written to stdout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var heartbeatInterval = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tgCfg, ok := cfg.GetTelegramConfig()
	if !ok {
		return errors.New("telegram gateway is not enabled")
	}

	observability.PrintBanner(os.Stderr)

	rt, err := newRuntime(cfg, observability.NewStdoutLogger())
	if err != nil {
		return err
	}
	defer rt.Close()

	tg, err := gateway.NewTelegramGateway(tgCfg.Token, gateway.NewHandler(rt.session, rt.logger), tgCfg.AllowedChats)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail at startup rather than on the first instruction.
	if rt.browser != nil {
		if err := rt.browser.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return tg.Start(gctx)
	})
	g.Go(func() error {
		return heartbeat(gctx, rt.logger, heartbeatInterval)
	})

	err = g.Wait()
	log.Println("[ EXIT ] gateway stopped")
	return err
}

// heartbeat records liveness until ctx is done.
func heartbeat(ctx context.Context, logger *observability.Logger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			observability.Heartbeat()
			logger.LogHeartbeat()
		}
	}
}
