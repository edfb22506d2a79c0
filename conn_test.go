package sshagent

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// fakePeer reads one framed request off conn and returns the raw
// payload it received, so tests can script exactly what bytes go back.
type fakePeer struct {
	conn net.Conn
}

func (p *fakePeer) readRequest(t *testing.T) []byte {
	t.Helper()
	var acc []byte
	chunk := make([]byte, 4096)
	for {
		n, err := p.conn.Read(chunk)
		if err != nil {
			t.Fatalf("peer read: %v", err)
		}
		acc = append(acc, chunk[:n]...)
		if payload, _, ok, _ := FrameDecodeStream(acc, 0); ok {
			return payload
		}
	}
}

func (p *fakePeer) sendFrame(t *testing.T, payload []byte) {
	t.Helper()
	if _, err := p.conn.Write(FrameEncode(payload)); err != nil {
		t.Fatalf("peer write: %v", err)
	}
}

func newConnPair(t *testing.T) (*Conn, *fakePeer) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	return newConn(client), &fakePeer{conn: server}
}

func TestConnSubmitAndResolve(t *testing.T) {
	conn, peer := newConnPair(t)

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := conn.Submit(context.Background(), RequestIdentities{})
		done <- result{resp, err}
	}()

	got := peer.readRequest(t)
	if len(got) != 1 || got[0] != msgRequestIdentities {
		t.Fatalf("peer saw %v, want REQUEST_IDENTITIES", got)
	}
	peer.sendFrame(t, []byte{msgFailure})

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if _, ok := r.resp.(FailureResponse); !ok {
			t.Fatalf("got %T, want FailureResponse", r.resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Submit to resolve")
	}
}

func TestConnRejectsOverlappingSubmit(t *testing.T) {
	// Scenario 6.
	conn, peer := newConnPair(t)

	first := make(chan Response, 1)
	go func() {
		resp, err := conn.Submit(context.Background(), RequestIdentities{})
		if err != nil {
			t.Errorf("first transaction failed: %v", err)
			return
		}
		first <- resp
	}()

	// Wait for the first request to actually reach the wire before
	// submitting the second, so the overlap is real.
	peer.readRequest(t)

	_, err := conn.Submit(context.Background(), RequestIdentities{})
	var inProgress *OperationInProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("second Submit returned %v, want *OperationInProgressError", err)
	}

	var frame []byte
	frame = writeUint8(frame, msgIdentitiesAnswer)
	frame = writeUint32(frame, 0)
	peer.sendFrame(t, frame)

	select {
	case resp := <-first:
		if _, ok := resp.(IdentitiesAnswer); !ok {
			t.Fatalf("got %T, want IdentitiesAnswer", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first transaction to resolve")
	}
}

func TestConnResolvesPendingOnTransportLoss(t *testing.T) {
	conn, peer := newConnPair(t)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Submit(context.Background(), RequestIdentities{})
		done <- err
	}()

	peer.readRequest(t)
	peer.conn.Close()

	select {
	case err := <-done:
		var unavailable *AgentNotAvailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("got %v, want *AgentNotAvailableError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport loss to resolve the pending transaction")
	}
}
