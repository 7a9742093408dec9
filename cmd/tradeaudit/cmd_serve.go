package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantpulse/tradeaudit/internal/config"
	"github.com/quantpulse/tradeaudit/internal/metrics"
	"github.com/quantpulse/tradeaudit/internal/server"
)

var serveAddr string

// serveCmd runs periodic audits with an HTTP inspection surface
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run periodic audits with HTTP inspection and metrics",
	Long: `Run the auditor as a long-lived process: a ticker triggers audit
passes (the run throttle still applies, so most ticks are no-ops) and an
HTTP surface exposes /healthz, /state and /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := server.New(cfg.Serve.Addr, reg)

	audit := func() {
		result, err := a.auditor.Run(ctx, false)
		if err != nil {
			log.Error().Err(err).Msg("Audit pass failed")
			return
		}
		m.ObserveRun(result, time.Now().Unix())
		srv.SetResult(result)
	}

	interval := time.Duration(cfg.Serve.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	go func() {
		audit()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				audit()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
