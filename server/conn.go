package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// lines a peer may fall behind before it is dropped
	sendBuffer = 256
	readBuffer = 16
)

var (
	ErrTimeout  = errors.New("read timed out")
	ErrSlowPeer = errors.New("peer does not keep up")
	ErrClosed   = errors.New("connection closed")
)

// transport moves single lines. Implementations need not be safe for
// concurrent use beyond one reader and one writer.
type transport interface {
	readLine() (string, error)
	writeLine(line string) error
	ping() error
	close() error
	remoteAddr() string
}

type tcpTransport struct {
	conn net.Conn
	r    *bufio.Reader
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{conn: conn, r: bufio.NewReaderSize(conn, maxMessageSize)}
}

func (t *tcpTransport) readLine() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n\x00"), nil
}

func (t *tcpTransport) writeLine(line string) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := t.conn.Write([]byte(line + "\n"))
	return err
}

func (t *tcpTransport) ping() error { return nil }

func (t *tcpTransport) close() error { return t.conn.Close() }

func (t *tcpTransport) remoteAddr() string { return t.conn.RemoteAddr().String() }

type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &wsTransport{conn: conn}
}

func (t *wsTransport) readLine() (string, error) {
	_, message, err := t.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(message), "\r\n\x00"), nil
}

func (t *wsTransport) writeLine(line string) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// control frames may be written concurrently with the write pump
func (t *wsTransport) ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t *wsTransport) close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return t.conn.Close()
}

func (t *wsTransport) remoteAddr() string { return t.conn.RemoteAddr().String() }

// lineConn is a player.Conn with one reader and one writer goroutine.
// Writes never block the caller: a peer that falls sendBuffer lines
// behind is dropped.
type lineConn struct {
	t transport

	lines chan string
	send  chan string

	quit    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	quitOnce sync.Once
	doneOnce sync.Once

	mu  sync.Mutex
	err error
}

func newLineConn(t transport) *lineConn {
	c := &lineConn{
		t:       t,
		lines:   make(chan string, readBuffer),
		send:    make(chan string, sendBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go c.readPump()
	go c.writePump()

	return c
}

func (c *lineConn) fail(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
		c.t.close()
	})
}

// Err returns the reason the connection died, nil while it is alive
func (c *lineConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *lineConn) readPump() {
	for {
		line, err := c.t.readLine()
		if err != nil {
			c.fail(err)
			return
		}

		select {
		case c.lines <- line:
		case <-c.done:
			return
		default:
			// nobody is asking, drop the chatter
		}
	}
}

func (c *lineConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.stopped)
	}()

	for {
		select {
		case line := <-c.send:
			if err := c.t.writeLine(line); err != nil {
				c.fail(err)
				return
			}
		case <-ticker.C:
			if err := c.t.ping(); err != nil {
				c.fail(err)
				return
			}
		case <-c.quit:
			c.flush()
			c.fail(ErrClosed)
			return
		case <-c.done:
			return
		}
	}
}

// flush writes whatever is queued before a close
func (c *lineConn) flush() {
	for {
		select {
		case line := <-c.send:
			if err := c.t.writeLine(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *lineConn) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case line := <-c.lines:
		return line, nil
	case <-c.done:
		select {
		case line := <-c.lines:
			return line, nil
		default:
		}
		return "", c.Err()
	case <-c.quit:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", ErrTimeout
	}
}

func (c *lineConn) WriteLine(line string) error {
	if !c.Alive() {
		if err := c.Err(); err != nil {
			return err
		}
		return ErrClosed
	}

	select {
	case c.send <- line:
		return nil
	default:
		c.fail(ErrSlowPeer)
		return ErrSlowPeer
	}
}

func (c *lineConn) Alive() bool {
	select {
	case <-c.done:
		return false
	case <-c.quit:
		return false
	default:
		return true
	}
}

func (c *lineConn) RemoteAddr() string { return c.t.remoteAddr() }

// Close writes the queued lines and closes the connection
func (c *lineConn) Close() error {
	c.quitOnce.Do(func() { close(c.quit) })
	<-c.stopped
	return nil
}
