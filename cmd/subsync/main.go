// Command subsync is an interactive client for the notification
// subscription API.
//
// It signs in with a bearer token, loads the user's subscriptions and lets
// the user change them. Changes show up immediately and are written in the
// background; a failed write is rolled back and reported at the prompt.
//
// Usage:
//
//	subsync [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-api-url string       API base URL (overrides config)
//	-token string         Bearer token (default $SUBSYNC_TOKEN)
//	-log-level string     Log level: debug, info, warn, error
//	-event-log string     Write sync events to this file
//	-discover             Find a development API over mDNS
//	-write-timeout value  Bound each subscription write (e.g. 5s)
//
// Examples:
//
//	# Connect to a local dev server
//	subsync -api-url http://localhost:8080 -token dev
//
//	# Find the dev server on the LAN and record events
//	subsync -discover -token dev -event-log session.slog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hermes-notify/subsync/cmd/subsync/interactive"
	"github.com/hermes-notify/subsync/pkg/account"
	"github.com/hermes-notify/subsync/pkg/config"
	"github.com/hermes-notify/subsync/pkg/discovery"
	"github.com/hermes-notify/subsync/pkg/fetch"
	"github.com/hermes-notify/subsync/pkg/log"
)

// TokenEnv is read when no token is given on the command line or in config.
const TokenEnv = "SUBSYNC_TOKEN"

// historySize bounds the events kept for the history command.
const historySize = 200

var (
	configFile   string
	apiURL       string
	token        string
	logLevel     string
	eventLog     string
	discover     bool
	writeTimeout time.Duration
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&apiURL, "api-url", "", "API base URL (overrides config)")
	flag.StringVar(&token, "token", "", "Bearer token (default $"+TokenEnv+")")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&eventLog, "event-log", "", "Write sync events to this file")
	flag.BoolVar(&discover, "discover", false, "Find a development API over mDNS")
	flag.DurationVar(&writeTimeout, "write-timeout", 0, "Bound each subscription write (0 = none)")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ui, err := interactive.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Logs go through readline to avoid interfering with input.
	logger := slog.New(slog.NewTextHandler(ui.Stdout(), &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Discover {
		svc, err := discovery.NewBrowser(discovery.BrowserConfig{}).Find(ctx)
		if err != nil {
			logger.Error("Discovery failed", "error", err)
			os.Exit(1)
		}
		cfg.APIURL = svc.BaseURL()
		cfg.APIVersion = svc.Version.String()
		logger.Info("Discovered API", "instance", svc.Instance, "url", cfg.APIURL)
	}

	f, err := fetch.NewHTTPFetcher(fetch.Config{
		BaseURL:     cfg.APIURL,
		Version:     cfg.Version(),
		Token:       cfg.Token,
		Timeout:     cfg.HTTPTimeout,
		ReadRetries: cfg.ReadRetries,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Invalid API settings", "error", err)
		os.Exit(1)
	}

	history := log.NewRecorder(historySize)
	ui.SetHistory(history)

	events, closeEvents, err := eventLogger(cfg, logger, history)
	if err != nil {
		logger.Error("Failed to open event log", "error", err)
		os.Exit(1)
	}
	defer closeEvents()

	sess := account.New(f,
		account.WithLogger(logger),
		account.WithEventLogger(events),
		account.WithReporter(ui),
		account.WithWriteTimeout(cfg.WriteTimeout),
	)
	ui.Bind(sess)

	logger.Info("Connecting", "url", f.URL(""), "session_id", sess.ID())
	if err := sess.Start(ctx); err != nil {
		logger.Warn("Start incomplete; use 'reload' or 'me' to retry", "error", err)
	}

	go ui.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received signal", "signal", sig)
		cancel()
	case <-ctx.Done():
	}

	sess.End()
}

// loadConfig merges the config file, environment and flags.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return config.Config{}, err
		}
	}

	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if token != "" {
		cfg.Token = token
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv(TokenEnv)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if eventLog != "" {
		cfg.EventLog = eventLog
	}
	if discover {
		cfg.Discover = true
	}
	if writeTimeout > 0 {
		cfg.WriteTimeout = writeTimeout
	}
	return cfg, cfg.Validate()
}

// eventLogger builds the sync event sink: debug-level slog output, the
// in-memory history and an optional CBOR file.
func eventLogger(cfg config.Config, logger *slog.Logger, history *log.Recorder) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger)
	if cfg.EventLog == "" {
		return log.NewMultiLogger(adapter, history), func() {}, nil
	}

	fl, err := log.NewFileLogger(cfg.EventLog)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Recording sync events", "path", fl.Path())
	return log.NewMultiLogger(adapter, history, fl), func() { _ = fl.Close() }, nil
}
