// Package internal holds helpers shared by the tests of several packages.
package internal

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

var ErrFakeClosed = errors.New("fake connection closed")

// Within fails the test if assert does not return within d
func Within(t *testing.T, d time.Duration, assert func()) {
	t.Helper()

	done := make(chan struct{}, 1)

	go func() {
		assert()
		done <- struct{}{}
	}()

	select {
	case <-time.After(d):
		t.Error("timed out")
	case <-done:
	}
}

// FakeConn is a scripted line connection. Reads return the queued replies in
// order and io.EOF once they run out.
type FakeConn struct {
	mu      sync.Mutex
	replies []string
	written []string
	closed  bool
	dead    bool
	addr    string
}

func NewFakeConn(replies ...string) *FakeConn {
	return &FakeConn{replies: replies, addr: "fake"}
}

// Reply queues more answers
func (c *FakeConn) Reply(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, lines...)
}

func (c *FakeConn) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.closed || c.dead {
		return "", ErrFakeClosed
	}
	if len(c.replies) == 0 {
		return "", io.EOF
	}
	line := c.replies[0]
	c.replies = c.replies[1:]
	return line, nil
}

func (c *FakeConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.dead {
		return ErrFakeClosed
	}
	c.written = append(c.written, line)
	return nil
}

// Written returns every line sent so far
func (c *FakeConn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	copy(out, c.written)
	return out
}

// Kill makes the connection fail as if the peer vanished
func (c *FakeConn) Kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

func (c *FakeConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.dead
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeConn) RemoteAddr() string { return c.addr }

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
