package sshagent

import (
	"errors"
	"fmt"
)

// AgentNotAvailableError means the transport to the agent is not ready
// or has failed. It is surfaced to every waiter on the connection and
// every transaction in flight at the time.
type AgentNotAvailableError struct {
	Reason string
}

func (e *AgentNotAvailableError) Error() string {
	return fmt.Sprintf("ssh agent not available: %s", e.Reason)
}

// OperationInProgressError means a transaction was submitted while
// another was already outstanding on the same connection. Only the
// rejected transaction sees this; the in-flight one is unaffected.
type OperationInProgressError struct{}

func (e *OperationInProgressError) Error() string {
	return "a request is already in progress on this connection"
}

// TrailingBytesError means a response frame carried more bytes than the
// message's shape consumes.
type TrailingBytesError struct {
	MessageNumber byte
	Extra         int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("response message %d had %d unexpected trailing byte(s)", e.MessageNumber, e.Extra)
}

// BadResponseError means a response frame was structurally malformed: a
// short read where a value was required, or undecodable UTF-8 in a
// comment. The Client methods also return it when the agent answers
// with a message type that does not fit the request, and
// Client.AddIdentity returns it, before sending anything, when the PEM
// block cannot be parsed.
type BadResponseError struct {
	Msg string
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("malformed agent response: %s", e.Msg)
}

// The four error types above mirror the teacher's
// ErrUnsupportedOperation{Op string} shape from the original
// go-sshagent.Agent, one error type per named error kind, so callers can
// errors.As into the one they care about and read structured fields off
// it. The two protocol-outcome errors below carry no fields and are
// plain sentinel values, matched with errors.Is.

// ErrAddIdentityRejected is returned by Client.AddIdentity when the
// agent answers ADD_IDENTITY with FAILURE rather than SUCCESS.
var ErrAddIdentityRejected = errors.New("agent rejected ADD_IDENTITY")

// ErrSignRejected is returned by Client.Sign when the agent answers
// SIGN_REQUEST with FAILURE rather than SIGN_RESPONSE.
var ErrSignRejected = errors.New("agent rejected SIGN_REQUEST")
