package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxLineSize bounds one wire message; loadScript carries whole sources.
const maxLineSize = 16 << 20

// lineWriter serializes messages as newline-terminated JSON.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) write(msg any) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err = lw.w.Write(data)
	return err
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

// Client is an Endpoint that talks to a bridge over a byte stream, typically
// the stdio pipes of a `scriptterm bridge` child process.
type Client struct {
	out    *lineWriter
	events chan Event

	mu  sync.Mutex
	err error
}

// NewClient starts reading events from r. Requests are written to w.
func NewClient(r io.Reader, w io.Writer, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	c := &Client{
		out:    &lineWriter{w: w},
		events: make(chan Event, buffer),
	}
	go c.readLoop(r)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	defer close(c.events)

	sc := newScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := UnmarshalEvent(line)
		if err != nil {
			c.setErr(err)
			continue
		}
		c.events <- ev
	}
	if err := sc.Err(); err != nil {
		c.setErr(fmt.Errorf("protocol: read events: %w", err))
	}
}

// Send writes req to the bridge.
func (c *Client) Send(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.out.write(req)
}

// Events returns the stream of decoded events. It is closed when the
// underlying reader ends.
func (c *Client) Events() <-chan Event { return c.events }

// Err returns the last decode or read error, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Serve exposes peer over a byte stream: request lines read from r are sent to
// peer and every peer event is written to w. It returns when the peer's event
// stream closes, ctx is done, or the stream fails. Reaching the end of r does
// not stop event forwarding, so work queued before the client hung up still
// reports back.
func Serve(ctx context.Context, peer Endpoint, r io.Reader, w io.Writer) error {
	out := &lineWriter{w: w}

	readErr := make(chan error, 1)
	go func() {
		readErr <- readRequests(ctx, peer, r, out)
	}()

	events := peer.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return err
			}
			readErr = nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := out.write(ev); err != nil {
				return fmt.Errorf("protocol: write event: %w", err)
			}
		}
	}
}

func readRequests(ctx context.Context, peer Endpoint, r io.Reader, out *lineWriter) error {
	sc := newScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		req, err := UnmarshalRequest(line)
		if err != nil {
			// Malformed input is reported to the client, not fatal.
			if werr := out.write(Error{Message: err.Error()}); werr != nil {
				return werr
			}
			continue
		}
		if err := peer.Send(ctx, req); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("protocol: forward %s: %w", req.RequestType(), err)
		}
	}
	return sc.Err()
}
