package ospfd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// bufSize is large enough for any OSPFv2 packet on an Ethernet-MTU link.
const bufSize = 65535

// Run starts the send, receive, control, and SPF loops and blocks until
// every loop has returned, which happens once ctx is canceled or the
// operator issues "exit" on cmds. The loops always return nil.
func (r *Router) Run(ctx context.Context, cmds io.Reader, out io.Writer) error {
	atomic.StoreInt32(&r.running, 1)
	defer atomic.StoreInt32(&r.running, 0)

	g, ctx := errgroup.WithContext(ctx)

	for _, bi := range r.snapshotBound() {
		bi := bi
		g.Go(func() error {
			r.recvLoop(ctx, bi)
			return nil
		})
	}

	g.Go(func() error {
		r.sendLoop(ctx)
		return nil
	})

	g.Go(func() error {
		r.controlLoop(ctx, cmds, out)
		return nil
	})

	g.Go(func() error {
		r.spfLoop(ctx)
		return nil
	})

	return g.Wait()
}

func (r *Router) snapshotBound() []*boundInterface {
	r.ifacesMu.RLock()
	defer r.ifacesMu.RUnlock()

	out := make([]*boundInterface, 0, len(r.ifaces))
	for _, bi := range r.ifaces {
		out = append(out, bi)
	}
	return out
}

// recvLoop blocks on bi's raw socket, parsing and dispatching packets until
// ctx is canceled. A short read deadline lets it poll for shutdown without
// blocking forever on recvfrom.
func (r *Router) recvLoop(ctx context.Context, bi *boundInterface) {
	buf := make([]byte, bufSize)

	for r.isRunning() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := bi.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			r.log.WithError(err).WithField("interface", bi.ifi.Name).Warn("failed to set read deadline")
			continue
		}

		msg, src, err := bi.conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			r.log.WithError(err).WithField("interface", bi.ifi.Name).Warn("recvfrom failed")
			continue
		}

		r.dispatch(bi, msg, src)
	}
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}

// sendLoop wakes every second, decrements timers, and drives the resulting
// timer-initiated work.
func (r *Router) sendLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for r.isRunning() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// controlLoop reads operator commands from cmds: "exit" initiates shutdown,
// "debug" dumps the routing table and SPF state.
func (r *Router) controlLoop(ctx context.Context, cmds io.Reader, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmds)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for r.isRunning() {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch strings.TrimSpace(line) {
			case "exit":
				r.Stop()
				return
			case "debug":
				r.dumpDebug(out)
			default:
				fmt.Fprintf(out, "unrecognized command: %q\n", line)
			}
		}
	}
}
