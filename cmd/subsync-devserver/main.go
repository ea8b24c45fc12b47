// Command subsync-devserver runs a local stand-in for the subscription API.
//
// Data lives in SQLite. Failures and latency can be injected at startup or
// at runtime through PUT /_dev/faults, which makes rollback behavior easy to
// reproduce from the subsync client.
//
// Usage:
//
//	subsync-devserver [flags]
//
// Examples:
//
//	# In-memory server with one seeded user
//	subsync-devserver -token dev -seed-topics news,billing
//
//	# Persistent database, advertised over mDNS, every write delayed
//	subsync-devserver -db dev.db -advertise -latency 2s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hermes-notify/subsync/internal/devserver"
	"github.com/hermes-notify/subsync/pkg/config"
	"github.com/hermes-notify/subsync/pkg/discovery"
	"github.com/hermes-notify/subsync/pkg/session"
	"github.com/hermes-notify/subsync/pkg/version"
)

var (
	addr       string
	dbPath     string
	token      string
	userName   string
	userEmail  string
	seedTopics string
	advertise  bool
	instance   string
	latency    time.Duration
	failWrites int
	logLevel   string
)

func init() {
	flag.StringVar(&addr, "addr", ":8080", "Listen address")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (default in-memory)")
	flag.StringVar(&token, "token", "dev", "Token of the seeded user; also accepted without an Authorization header")
	flag.StringVar(&userName, "name", "Dev User", "Seeded user name")
	flag.StringVar(&userEmail, "email", "dev@example.com", "Seeded user email")
	flag.StringVar(&seedTopics, "seed-topics", "", "Comma-separated topics for a newly seeded user")
	flag.BoolVar(&advertise, "advertise", false, "Advertise the API over mDNS")
	flag.StringVar(&instance, "instance", "", "mDNS instance name (default subsync-<hostname>)")
	flag.DurationVar(&latency, "latency", 0, "Delay every API response")
	flag.IntVar(&failWrites, "fail-writes", 0, "Fail the next N subscription writes")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	level, err := config.ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv, err := devserver.New(devserver.Config{
		Addr:         addr,
		DBPath:       dbPath,
		DefaultToken: token,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	if err := seed(srv.Store()); err != nil {
		logger.Error("Failed to seed store", "error", err)
		os.Exit(1)
	}
	srv.SetFaults(devserver.Faults{FailWrites: failWrites, Latency: latency})

	l, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("Failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}
	port := uint16(l.Addr().(*net.TCPAddr).Port)
	logger.Info("Serving subscription API", "addr", l.Addr().String(), "prefix", version.MustParse(version.Current).Prefix())

	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	}()

	var adv *discovery.Advertiser
	if advertise {
		adv = discovery.NewAdvertiser(discovery.AdvertiserConfig{Logger: logger})
		info := &discovery.APIInfo{
			Instance: instanceName(),
			Port:     port,
			Version:  version.MustParse(version.Current),
		}
		if err := adv.Advertise(context.Background(), info); err != nil {
			logger.Warn("mDNS advertisement failed", "error", err)
			adv = nil
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig)

	if adv != nil {
		adv.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Shutdown incomplete", "error", err)
	}
}

// seed creates the default user unless it already exists.
func seed(store *devserver.Store) error {
	if _, err := store.User(token); err == nil {
		return nil
	} else if !errors.Is(err, devserver.ErrUnknownUser) {
		return err
	}

	if err := store.PutUser(token, session.UserInfo{Name: userName, Email: userEmail}); err != nil {
		return err
	}
	var topics []string
	for _, t := range strings.Split(seedTopics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return store.ReplaceTopics(token, topics)
}

func instanceName() string {
	if instance != "" {
		return instance
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = strconv.Itoa(os.Getpid())
	}
	name := "subsync-" + host
	if len(name) > discovery.MaxInstanceNameLen {
		name = name[:discovery.MaxInstanceNameLen]
	}
	return name
}
