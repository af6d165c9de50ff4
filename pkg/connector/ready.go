package connector

import (
	"context"
	"fmt"
	"time"
)

// AwaitReady blocks until the Connector is connected, a connect attempt
// fails, the connection timeout expires or ctx is done. It starts a connect
// attempt when none is in flight.
func (c *Connector) AwaitReady(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil
	}
	id, ch := c.subscribeLocked()
	start := c.state != Connecting
	c.mu.Unlock()
	defer c.unsubscribe(id)

	if start {
		c.ConnectAsync(nil)
	}

	timeout := c.settings.ConnectionTimeoutDuration()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-ch:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %d ms", ErrConnectionTimeout, timeout.Milliseconds())
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitReadyAsync runs AwaitReady and reports its result to cb on another
// goroutine.
func (c *Connector) AwaitReadyAsync(cb func(error)) {
	go func() {
		cb(c.AwaitReady(context.Background()))
	}()
}

// Ping reports whether the Connector is usable. Failures match
// ErrNotConnected and keep the underlying cause.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.AwaitReady(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return nil
}

func (c *Connector) subscribeLocked() (uint64, chan error) {
	c.nextSub++
	ch := make(chan error, 1)
	c.subs[c.nextSub] = ch
	return c.nextSub, ch
}

func (c *Connector) unsubscribe(id uint64) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

// takeSubscribersLocked detaches every subscriber so each receives the
// outcome of the attempt that was in flight when it subscribed.
func (c *Connector) takeSubscribersLocked() []chan error {
	out := make([]chan error, 0, len(c.subs))
	for id, ch := range c.subs {
		out = append(out, ch)
		delete(c.subs, id)
	}
	return out
}
