// jobrpc sends one command to an automation server and prints its result.
//
// The command is enqueued, its job is polled until it settles, and busy or
// timed-out attempts are retried. The result (or a classified error
// envelope) is printed to stdout as JSON. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/soffa-projects/jobrpc/adapters"
	"github.com/soffa-projects/jobrpc/config"
	f "github.com/soffa-projects/jobrpc/core"
	"github.com/soffa-projects/jobrpc/errors"
	"github.com/soffa-projects/jobrpc/log"
	"github.com/soffa-projects/jobrpc/rpc"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2

	idempotencyTTL = time.Hour
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	host        string
	port        int
	command     string
	params      string
	paramsFile  string
	outputFile  string
	force       bool
	timeoutSec  int
	waitSeconds float64
	retries     int
	policyFile  string
	logLevel    string
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	log.SetOutput(stderr)

	var cfg config.Client
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	var opts options
	flagSet := pflag.NewFlagSet("jobrpc", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.host, "host", cfg.Host, "automation server host")
	flagSet.IntVar(&opts.port, "port", cfg.Port, "automation server port (required)")
	flagSet.StringVar(&opts.command, "command", "", "JSON-RPC method to run (required)")
	flagSet.StringVar(&opts.params, "params", "", "command parameters as a JSON object")
	flagSet.StringVar(&opts.paramsFile, "params-file", "", "read command parameters from a JSON file")
	flagSet.StringVar(&opts.outputFile, "output-file", "", "write the result to this file instead of stdout")
	flagSet.BoolVar(&opts.force, "force", false, "pre-empt whatever command the server is running")
	flagSet.IntVar(&opts.timeoutSec, "timeout-sec", 0, "server-side execution limit in seconds")
	flagSet.Float64Var(&opts.waitSeconds, "wait-seconds", cfg.MaxWait.Seconds(), "how long to wait for the job before giving up")
	flagSet.IntVar(&opts.retries, "retries", cfg.Retries, "attempts before giving up, 1 disables retrying")
	flagSet.StringVar(&opts.policyFile, "policy-file", cfg.PolicyFile, "TOML file overriding the busy and timeout classification")
	flagSet.StringVar(&opts.logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flagSet.Usage = func() { printHelp(flagSet, stderr) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	log.Setup(opts.logLevel, cfg.LogFormat)

	if err := opts.validate(flagSet.Args()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	params, err := opts.loadParams()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	policy, err := config.LoadPolicy(opts.policyFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	cache := openCache(cfg.Cache)
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn("failed to close cache: %v", err)
		}
	}()

	client := rpc.NewClient(rpc.Options{
		Host:           opts.host,
		Port:           opts.port,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		Policy:         &policy,
		Retry:          rpc.RetryOptions{MaxAttempts: opts.retries},
		Idempotency:    adapters.NewIdempotencyStore(cache, idempotencyTTL),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := client.Call(ctx, opts.command, params, rpc.CallOptions{
		Force:      opts.force,
		JobTimeout: time.Duration(opts.timeoutSec) * time.Second,
		MaxWait:    time.Duration(opts.waitSeconds * float64(time.Second)),
	})
	if err != nil {
		rpcErr, ok := errors.AsRpcError(err)
		if !ok {
			rpcErr, _ = errors.AsRpcError(errors.Transport(errors.PhasePoll, err))
		}
		log.Error("%s failed: %v", opts.command, err)
		envelope := rpcErr.Envelope()
		if opts.outputFile != "" {
			if _, werr := save(envelope, opts.outputFile); werr != nil {
				fmt.Fprintf(stderr, "error: %v\n", werr)
			}
		}
		if werr := writeJSON(envelope, stdout); werr != nil {
			fmt.Fprintf(stderr, "error: %v\n", werr)
		}
		return exitFailure
	}

	if opts.outputFile == "" {
		err = writeJSON(result, stdout)
	} else {
		var abs string
		if abs, err = save(result, opts.outputFile); err == nil {
			err = writeJSON(map[string]any{"ok": true, "savedTo": abs}, stdout)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func (o options) validate(rest []string) error {
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if o.port < 1 || o.port > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535")
	}
	if strings.TrimSpace(o.command) == "" {
		return fmt.Errorf("--command is required")
	}
	if o.params != "" && o.paramsFile != "" {
		return fmt.Errorf("--params and --params-file are mutually exclusive")
	}
	if o.timeoutSec < 0 || o.waitSeconds < 0 {
		return fmt.Errorf("--timeout-sec and --wait-seconds cannot be negative")
	}
	if o.retries < 1 {
		return fmt.Errorf("--retries must be at least 1")
	}
	return nil
}

func (o options) loadParams() (map[string]any, error) {
	raw := o.params
	source := "--params"
	if o.paramsFile != "" {
		content, err := os.ReadFile(o.paramsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
		raw = string(content)
		source = o.paramsFile
	}
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", source, err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// openCache returns the configured idempotency cache, or an in-memory one
// when it cannot be reached.
func openCache(provider string) f.CacheProvider {
	cache, err := adapters.NewCacheProvider(provider)
	if err == nil {
		err = cache.Init()
	}
	if err != nil {
		log.Warn("cache %q unavailable, using memory: %v", provider, err)
		if cache != nil {
			_ = cache.Close()
		}
		return adapters.NewInMemoryCacheProvider()
	}
	return cache
}

func encode(value any) ([]byte, error) {
	content, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	return append(content, '\n'), nil
}

func writeJSON(value any, w io.Writer) error {
	content, err := encode(value)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// save writes value to path, creating its directory, and returns the
// absolute path it went to.
func save(value any, path string) (string, error) {
	content, err := encode(value)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return abs, nil
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `jobrpc runs one command on an automation server and waits for its result.

Usage:
  jobrpc --port N --command METHOD [--params JSON | --params-file FILE] [flags]

Examples:
  jobrpc --port 5210 --command get_walls
  jobrpc --port 5210 --command select_elements --params '{"elementIds":[12,13]}'
  jobrpc --port 5210 --command export --timeout-sec 600 --wait-seconds 900 --output-file out/export.json

Exit codes:
  0  the command succeeded
  1  the command failed, the error envelope is printed
  2  bad flags or parameters

Flags:
`)
	flagSet.PrintDefaults()
}
