package sshagent

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte{msgSuccess}
	framed := FrameEncode(payload)

	got, consumed, ok, err := FrameDecodeStream(framed, DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a complete frame")
	}
	if consumed != len(framed) {
		t.Errorf("consumed %d, want %d", consumed, len(framed))
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got payload %v, want %v", got, payload)
	}
}

func TestFrameDecodeStreamNeedsMore(t *testing.T) {
	// Only the length prefix has arrived so far.
	if _, _, ok, err := FrameDecodeStream([]byte{0, 0, 0, 5}, 0); ok || err != nil {
		t.Fatalf("expected incomplete frame to report not-ok, got ok=%v err=%v", ok, err)
	}
	// Length prefix plus a partial payload.
	if _, _, ok, err := FrameDecodeStream([]byte{0, 0, 0, 5, 1, 2}, 0); ok || err != nil {
		t.Fatalf("expected partial payload to report not-ok, got ok=%v err=%v", ok, err)
	}
}

func TestFrameDecodeStreamConsumesOnlyOneFrame(t *testing.T) {
	framed := append(FrameEncode([]byte{msgSuccess}), FrameEncode([]byte{msgFailure})...)

	payload, consumed, ok, err := FrameDecodeStream(framed, 0)
	if err != nil || !ok || !bytes.Equal(payload, []byte{msgSuccess}) {
		t.Fatalf("unexpected first frame: %v %v %v", payload, ok, err)
	}

	payload, _, ok, err = FrameDecodeStream(framed[consumed:], 0)
	if err != nil || !ok || !bytes.Equal(payload, []byte{msgFailure}) {
		t.Fatalf("unexpected second frame: %v %v %v", payload, ok, err)
	}
}

func TestFrameDecodeStreamEnforcesMaxSize(t *testing.T) {
	framed := FrameEncode(make([]byte, 100))
	if _, _, ok, err := FrameDecodeStream(framed, 10); ok || err == nil {
		t.Fatalf("expected frame bigger than the cap to report an error, got ok=%v err=%v", ok, err)
	}
}

func TestRequestIdentitiesWireBytes(t *testing.T) {
	// Scenario 1: submitting REQUEST_IDENTITIES emits length 1, message 11.
	framed := FrameEncode(EncodeRequest(RequestIdentities{}))
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x0B}
	if !bytes.Equal(framed, want) {
		t.Errorf("got % x, want % x", framed, want)
	}
}
