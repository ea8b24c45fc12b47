// Command subsync-log views and analyzes subscription sync event logs.
//
// Log files are written by subsync when it runs with the -event-log flag.
//
// Usage:
//
//	subsync-log <command> [flags] <file.slog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# Show every event touching one topic
//	subsync-log view --topic billing session.slog
//
//	# Export coordinator events to CSV
//	subsync-log export --layer coordinator --format csv session.slog
//
//	# Keep one session and save to a new file
//	subsync-log filter --session 1f0c2e7a -o one.slog session.slog
//
//	# Count rollbacks and supersessions per topic
//	subsync-log stats session.slog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hermes-notify/subsync/cmd/subsync-log/commands"
	"github.com/hermes-notify/subsync/pkg/log"
)

const usage = `subsync-log - Subscription Sync Log Analyzer

Usage:
  subsync-log <command> [flags] <file.slog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "subsync-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet builds a flag set carrying the shared filter flags.
func newFlagSet(name, summary string, opts *commands.FilterOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "subsync-log %s - %s\n\nUsage:\n  subsync-log %s [flags] <file.slog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&opts.Topic, "topic", "", "Filter mutation events by topic")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (fetch, store, coordinator, session)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (load, mutation, state, error)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Keep events at or after this RFC3339 time")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Keep events before this RFC3339 time")
	return fs
}

// parseArgs parses flags, requires the log path and builds the filter.
func parseArgs(fs *flag.FlagSet, args []string, opts *commands.FilterOptions) (string, log.Filter) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fatal(err)
	}
	return fs.Arg(0), filter
}

func runView(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("view", "View log file in human-readable format", &opts)
	path, filter := parseArgs(fs, args, &opts)

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("export", "Export log file to JSONL or CSV format", &opts)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path, filter := parseArgs(fs, args, &opts)

	if err := commands.RunExport(path, filter, *format, *output, os.Stdout); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("filter", "Filter log file and write to new file", &opts)
	output := fs.String("o", "", "Output file (required)")
	path, filter := parseArgs(fs, args, &opts)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file required (-o)")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, filter, *output)
	if err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d events to %s\n", count, *output)
}

func runStats(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("stats", "Show statistics about the log file", &opts)
	path, filter := parseArgs(fs, args, &opts)

	if err := commands.RunStats(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
