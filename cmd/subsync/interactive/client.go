// Package interactive provides the interactive command line for subsync.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/hermes-notify/subsync/pkg/account"
	"github.com/hermes-notify/subsync/pkg/log"
	"github.com/hermes-notify/subsync/pkg/subscription"
)

// Client handles interactive mode for subsync.
type Client struct {
	rl  *readline.Instance
	out io.Writer

	mu      sync.Mutex
	sess    *account.Session
	history *log.Recorder
}

// New creates a client reading commands from the terminal.
func New() (*Client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "subsync> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("me"),
			readline.PcItem("list"),
			readline.PcItem("set"),
			readline.PcItem("clear"),
			readline.PcItem("reload"),
			readline.PcItem("wait"),
			readline.PcItem("history"),
			readline.PcItem("status"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Client{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Client) Stdout() io.Writer {
	return c.out
}

// Bind attaches the session the commands operate on.
func (c *Client) Bind(sess *account.Session) {
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
}

// SetHistory attaches the recorder the history command reads from.
func (c *Client) SetHistory(rec *log.Recorder) {
	c.mu.Lock()
	c.history = rec
	c.mu.Unlock()
}

// MutationFailed prints a rollback notice. It satisfies subscription.Reporter.
func (c *Client) MutationFailed(m subscription.MutationFailure) {
	action := "clear " + m.Topic
	if m.Mode != nil {
		action = fmt.Sprintf("set %s=%s", m.Topic, *m.Mode)
	}
	fmt.Fprintf(c.out, "\n! %s failed and was rolled back: %v\n", action, m.Err)
}

// Compile-time interface satisfaction check.
var _ subscription.Reporter = (*Client)(nil)

// Run starts the interactive command loop.
func (c *Client) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Execute(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the user asked to quit.
func (c *Client) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	c.mu.Lock()
	sess := c.sess
	history := c.history
	c.mu.Unlock()

	switch cmd {
	case "help", "?":
		c.printHelp()
		return true
	case "quit", "exit", "q":
		return false
	}

	if sess == nil {
		fmt.Fprintln(c.out, "No session")
		return true
	}

	switch cmd {
	case "me":
		c.cmdMe(ctx, sess, args)
	case "list", "ls":
		c.cmdList(sess)
	case "set":
		c.cmdSet(ctx, sess, args)
	case "clear":
		c.cmdClear(ctx, sess, args)
	case "reload":
		c.cmdReload(ctx, sess)
	case "wait":
		sess.Coordinator().Wait()
		c.cmdList(sess)
	case "status":
		c.cmdStatus(sess)
	case "history", "h":
		c.cmdHistory(history)
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Client) printHelp() {
	fmt.Fprintln(c.out, `
Subscription Commands:
  Account:
    me [refresh]         - Show the signed-in user
    status               - Show session state

  Subscriptions:
    list                 - List current subscriptions
    set <topic> <mode>   - Subscribe or change mode (instant, digest)
    clear <topic>        - Unsubscribe from a topic
    reload               - Re-read subscriptions from the server
    wait                 - Wait for pending writes, then list
    history              - Show recent mutation outcomes

  General:
    help                 - Show this help
    quit                 - Exit`)
}
