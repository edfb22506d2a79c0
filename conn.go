package sshagent

import (
	"context"
	"log/slog"
	"net"
)

// transaction pairs a request with the slot its eventual response (or
// failure) resolves.
type transaction struct {
	request Request
	slot    *CompletionSlot[Response]
}

// inboundFrame is one C3-framed payload read off the wire, or the
// terminal read error that ended the read loop.
type inboundFrame struct {
	payload []byte
	err     error
}

// Conn is the single-in-flight transaction engine of §4.5a: at most one
// transaction is ever outstanding on a Conn at a time. All state
// transitions run on one goroutine (the "connection's I/O context" of
// §5), so no lock guards the pending-transaction state; Submit and the
// read loop only ever communicate with it over channels.
type Conn struct {
	netConn net.Conn
	submit  chan transaction
	closed  chan struct{}

	maxFrameSize int
}

// newConn starts the engine's goroutines over an already-dialed
// connection. It does not block.
func newConn(nc net.Conn) *Conn {
	c := &Conn{
		netConn:      nc,
		submit:       make(chan transaction),
		closed:       make(chan struct{}),
		maxFrameSize: DefaultMaxFrameSize,
	}
	frames := make(chan inboundFrame)
	go c.readLoop(frames)
	go c.run(frames)
	return c
}

// Submit sends r and waits for the matching response. If another
// transaction is already in flight on this connection, it returns
// *OperationInProgressError immediately without writing anything to the
// wire, per §4.5a.
func (c *Conn) Submit(ctx context.Context, r Request) (Response, error) {
	slot := newCompletionSlot[Response]()
	select {
	case c.submit <- transaction{request: r, slot: slot}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, &AgentNotAvailableError{Reason: "connection closed"}
	}
	return slot.Wait(ctx)
}

// Close tears down the underlying transport. Any transaction left
// pending resolves with *AgentNotAvailableError, per the "transport
// inactive while Pending" transition.
func (c *Conn) Close() error {
	return c.netConn.Close()
}

// run is the single logical executor for this connection's state
// machine. It owns `pending` exclusively: nil means Idle, non-nil means
// Pending(pending).
func (c *Conn) run(frames <-chan inboundFrame) {
	var pending *transaction

	for {
		select {
		case t, ok := <-c.submit:
			if !ok {
				return
			}
			if pending != nil {
				// Submit while Pending: reject the newcomer, emit
				// nothing, stay Pending.
				t.slot.reject(&OperationInProgressError{})
				continue
			}
			payload := EncodeRequest(t.request)
			if _, err := c.netConn.Write(FrameEncode(payload)); err != nil {
				t.slot.reject(&AgentNotAvailableError{Reason: err.Error()})
				continue
			}
			pt := t
			pending = &pt

		case f, ok := <-frames:
			if !ok {
				return
			}
			if f.err != nil {
				if pending != nil {
					t := pending
					pending = nil
					t.slot.reject(&AgentNotAvailableError{Reason: "channel inactive"})
				}
				close(c.closed)
				return
			}
			if pending == nil {
				// Response received while Idle: a peer bug, absorbed
				// silently per §7, not propagated to any caller.
				slog.Debug("sshagent: response received with no transaction pending, dropping")
				continue
			}
			t := pending
			pending = nil
			resp, err := DecodeResponse(f.payload)
			if err != nil {
				t.slot.reject(err)
				continue
			}
			t.slot.resolve(resp)
		}
	}
}

// readLoop turns the socket's byte stream into framed payloads (C3) and
// feeds them to run. It never decodes a message (C4 is run's job) so
// that a malformed message body never stalls frame extraction for
// whatever follows it.
func (c *Conn) readLoop(out chan<- inboundFrame) {
	defer close(out)

	var acc []byte
	chunk := make([]byte, 4096)
	for {
		n, err := c.netConn.Read(chunk)
		if n > 0 {
			acc = append(acc, chunk[:n]...)
			for {
				payload, consumed, ok, frameErr := FrameDecodeStream(acc, c.maxFrameSize)
				if frameErr != nil {
					slog.Warn("sshagent: oversized frame, closing connection", "error", frameErr)
					select {
					case out <- inboundFrame{err: frameErr}:
					case <-c.closed:
					}
					_ = c.netConn.Close()
					return
				}
				if !ok {
					break
				}
				frame := make([]byte, len(payload))
				copy(frame, payload)
				select {
				case out <- inboundFrame{payload: frame}:
				case <-c.closed:
					return
				}
				acc = acc[consumed:]
			}
		}
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-c.closed:
			}
			return
		}
	}
}
