package interactive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hermes-notify/subsync/pkg/account"
	"github.com/hermes-notify/subsync/pkg/log"
	"github.com/hermes-notify/subsync/pkg/session"
	"github.com/hermes-notify/subsync/pkg/subscription"
)

func (c *Client) cmdMe(ctx context.Context, sess *account.Session, args []string) {
	var (
		info session.UserInfo
		err  error
	)
	if len(args) > 0 && args[0] == "refresh" {
		info, err = sess.UserInfo().Reload(ctx)
	} else {
		info, err = sess.UserInfo().Load(ctx)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "Name:    %s\n", info.Name)
	fmt.Fprintf(c.out, "Email:   %s\n", info.Email)
	if info.Picture != "" {
		fmt.Fprintf(c.out, "Picture: %s\n", info.Picture)
	}
}

func (c *Client) cmdList(sess *account.Session) {
	snap, err := sess.Store().Current()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if snap.Len() == 0 {
		fmt.Fprintln(c.out, "No subscriptions")
		return
	}
	for _, sub := range snap.Subscriptions() {
		fmt.Fprintf(c.out, "  %-24s %s\n", sub.Topic, sub.Mode)
	}
}

func (c *Client) cmdSet(ctx context.Context, sess *account.Session, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: set <topic> <instant|digest>")
		return
	}
	mode, err := subscription.ParseMode(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.submit(ctx, sess, subscription.Set(args[0], mode))
}

func (c *Client) cmdClear(ctx context.Context, sess *account.Session, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: clear <topic>")
		return
	}
	c.submit(ctx, sess, subscription.Clear(args[0]))
}

// submit applies req locally and leaves the remote write running, so quick
// successive commands exercise last-write-wins.
func (c *Client) submit(ctx context.Context, sess *account.Session, req subscription.MutationRequest) {
	err := sess.Coordinator().Submit(ctx, req)
	switch {
	case errors.Is(err, subscription.ErrNotLoaded):
		fmt.Fprintln(c.out, "Subscriptions not loaded (try 'reload')")
	case err != nil:
		fmt.Fprintf(c.out, "Error: %v\n", err)
	default:
		fmt.Fprintf(c.out, "%s (pending)\n", req)
	}
}

func (c *Client) cmdReload(ctx context.Context, sess *account.Session) {
	snap, err := sess.Coordinator().Reload(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Loaded %d subscriptions\n", snap.Len())
}

func (c *Client) cmdStatus(sess *account.Session) {
	fmt.Fprintf(c.out, "Session:       %s\n", sess.ID())

	if info, err := sess.UserInfo().Current(); err == nil {
		fmt.Fprintf(c.out, "User:          %s\n", info.Email)
	} else {
		fmt.Fprintln(c.out, "User:          (not loaded)")
	}

	if snap, err := sess.Store().Current(); err == nil {
		fmt.Fprintf(c.out, "Subscriptions: %d\n", snap.Len())
	} else {
		fmt.Fprintln(c.out, "Subscriptions: (not loaded)")
	}
	fmt.Fprintf(c.out, "Generation:    %d\n", sess.Coordinator().Generation())
}

func (c *Client) cmdHistory(rec *log.Recorder) {
	if rec == nil {
		fmt.Fprintln(c.out, "History not recorded")
		return
	}

	n := 0
	for _, e := range rec.Events() {
		m := e.Mutation
		if m == nil {
			continue
		}
		mode := m.Mode
		if mode == "" {
			mode = "(clear)"
		}
		fmt.Fprintf(c.out, "  %s  #%-4d %-12s %-20s %s\n",
			e.Timestamp.Format(time.TimeOnly), m.Token, m.Outcome, m.Topic, mode)
		n++
	}
	if n == 0 {
		fmt.Fprintln(c.out, "No mutations yet")
	}
}
