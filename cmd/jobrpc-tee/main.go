// jobrpc-tee sits between clients and an automation server, forwards every
// request untouched and appends each exchange to a daily JSONL audit file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/soffa-projects/jobrpc/adapters"
	"github.com/soffa-projects/jobrpc/config"
	"github.com/soffa-projects/jobrpc/log"
	"github.com/soffa-projects/jobrpc/proxy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cfg config.Proxy
	if err := config.Load(&cfg); err != nil {
		return err
	}

	flagSet := pflag.NewFlagSet("jobrpc-tee", pflag.ContinueOnError)
	flagSet.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flagSet.StringVar(&cfg.Upstream, "upstream", cfg.Upstream, "automation server base URL")
	flagSet.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for the daily audit files")
	flagSet.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "limit for one upstream exchange")
	flagSet.StringSliceVar(&cfg.AllowOrigins, "allow-origin", cfg.AllowOrigins, "origin allowed to call through CORS (repeatable)")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := config.Validate(&cfg); err != nil {
		return err
	}
	log.Setup(cfg.LogLevel, cfg.LogFormat)

	sink := adapters.NewFileAuditSink(cfg.LogDir)
	server, err := proxy.New(proxy.Config{
		Upstream:     cfg.Upstream,
		Timeout:      cfg.Timeout,
		AllowOrigins: cfg.AllowOrigins,
	}, sink)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info("audit files go to %s", sink.FileFor(time.Now()))
		errs <- server.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if n := server.AuditFailures(); n > 0 {
		log.Warn("%d audit records could not be written", n)
	}
	return nil
}
