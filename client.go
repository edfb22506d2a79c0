package sshagent

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	syncx "github.com/caarlos0/sync"
)

// SSHAuthSockEnv is the environment variable naming the UNIX socket a
// locally running ssh-agent listens on.
const SSHAuthSockEnv = "SSH_AUTH_SOCK"

type lifecycleState int

const (
	stateNotConnected lifecycleState = iota
	stateConnecting
	stateConnected
	stateFailed
)

// identityCache backs the optional "ReadyToRock" refinement of §4.5b:
// once a Client has listed identities, later callers sharing the same
// socket path get the cached answer instead of a round trip, until
// transport loss or a successful AddIdentity invalidates it. Built on the teacher's go.mod
// dependency github.com/caarlos0/sync, whose generic Map gives a
// concurrency-safe cache without this package hand-rolling its own
// locked map.
var identityCache syncx.Map[string, []AgentIdentity]

// Client is the shared-connection lifecycle facade of §4.5b: one
// Client multiplexes every caller onto a single dialed Conn. It is
// safe for concurrent use; GetConnection and the request helpers may be
// called from any number of goroutines.
type Client struct {
	socket string

	mu      sync.Mutex
	state   lifecycleState
	conn    *Conn
	err     error
	waiters []*CompletionSlot[*Conn]
}

// New creates a Client that will dial socket on first use. Dialing does
// not happen until the first call that needs a connection.
func New(socket string) *Client {
	return &Client{socket: socket}
}

// NewFromEnvironment creates a Client using the path in SSH_AUTH_SOCK.
func NewFromEnvironment() (*Client, error) {
	sock := os.Getenv(SSHAuthSockEnv)
	if sock == "" {
		return nil, &AgentNotAvailableError{Reason: fmt.Sprintf("%s is not set", SSHAuthSockEnv)}
	}
	return New(sock), nil
}

// GetConnection returns the shared connection, dialing it if this is
// the first call, joining an in-progress dial if one is underway, or
// replaying a cached success/failure otherwise. It implements the four
// states and their transitions from §4.5b.
func (c *Client) GetConnection(ctx context.Context) (*Conn, error) {
	c.mu.Lock()
	switch c.state {
	case stateConnected:
		conn := c.conn
		c.mu.Unlock()
		return conn, nil

	case stateFailed:
		err := c.err
		c.mu.Unlock()
		return nil, err

	case stateConnecting:
		slot := newCompletionSlot[*Conn]()
		c.waiters = append(c.waiters, slot)
		c.mu.Unlock()
		return slot.Wait(ctx)

	default: // stateNotConnected
		slot := newCompletionSlot[*Conn]()
		c.state = stateConnecting
		c.waiters = []*CompletionSlot[*Conn]{slot}
		c.mu.Unlock()
		go c.dial()
		return slot.Wait(ctx)
	}
}

// dial performs the actual socket connect outside the lock, then
// fulfills every waiter that accumulated while it was in flight. Slot
// resolution always happens after the lock is released, per §5.
func (c *Client) dial() {
	nc, dialErr := net.Dial("unix", c.socket)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil

	if dialErr != nil {
		err := &AgentNotAvailableError{Reason: dialErr.Error()}
		c.state = stateFailed
		c.err = err
		c.mu.Unlock()
		for _, w := range waiters {
			w.reject(err)
		}
		return
	}

	conn := newConn(nc)
	c.state = stateConnected
	c.conn = conn
	c.mu.Unlock()

	for _, w := range waiters {
		w.resolve(conn)
	}
}

// markFailed moves the facade to Failed and drops the identity cache
// for this socket, per the "Connected -> transport inactive" option in
// §4.5b. A new Client must be constructed to retry; this package does
// not implement reconnect-with-backoff (an explicit non-goal).
func (c *Client) markFailed(err error) {
	c.mu.Lock()
	c.state = stateFailed
	c.err = err
	c.mu.Unlock()
	identityCache.Delete(c.socket)
}

// do dials if necessary, submits r as the connection's sole in-flight
// transaction, and marks the facade Failed if the transport turned out
// to be unavailable.
func (c *Client) do(ctx context.Context, r Request) (Response, error) {
	conn, err := c.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Submit(ctx, r)
	if err != nil {
		if unavailable, ok := err.(*AgentNotAvailableError); ok {
			c.markFailed(unavailable)
		}
		return nil, err
	}
	return resp, nil
}

// ListIdentities runs REQUEST_IDENTITIES, serving the cached answer
// (see identityCache) when one is available.
func (c *Client) ListIdentities(ctx context.Context) ([]AgentIdentity, error) {
	if cached, ok := identityCache.Load(c.socket); ok {
		return cached, nil
	}

	resp, err := c.do(ctx, RequestIdentities{})
	if err != nil {
		return nil, err
	}
	answer, ok := resp.(IdentitiesAnswer)
	if !ok {
		return nil, &BadResponseError{Msg: fmt.Sprintf("unexpected response to REQUEST_IDENTITIES: %T", resp)}
	}

	identityCache.Store(c.socket, answer.Identities)
	return answer.Identities, nil
}

// AddIdentity parses pem (see ParseIdentity) and sends it to the agent
// as an ADD_IDENTITY request.
func (c *Client) AddIdentity(ctx context.Context, pem string) error {
	identity, ok := ParseIdentity(pem)
	if !ok {
		return &BadResponseError{Msg: "not a supported (unencrypted) OpenSSH private key PEM block"}
	}

	resp, err := c.do(ctx, AddIdentity{Identity: identity})
	if err != nil {
		return err
	}
	switch resp.(type) {
	case SuccessResponse:
		identityCache.Delete(c.socket)
		return nil
	case FailureResponse:
		return ErrAddIdentityRejected
	default:
		return &BadResponseError{Msg: fmt.Sprintf("unexpected response to ADD_IDENTITY: %T", resp)}
	}
}

// Sign asks the agent to sign data with the private key matching
// keyBlob (as returned in an AgentIdentity.KeyBlob), returning the
// opaque SSH-formatted signature blob.
func (c *Client) Sign(ctx context.Context, keyBlob OpaqueString, data []byte, flags uint32) (OpaqueString, error) {
	resp, err := c.do(ctx, SignRequest{KeyBlob: keyBlob, Data: OpaqueString(data), Flags: flags})
	if err != nil {
		return nil, err
	}
	switch r := resp.(type) {
	case SignResponse:
		return r.Signature, nil
	case FailureResponse:
		return nil, ErrSignRejected
	default:
		return nil, &BadResponseError{Msg: fmt.Sprintf("unexpected response to SIGN_REQUEST: %T", resp)}
	}
}
