package sshagent

import (
	"encoding/binary"
	"fmt"
)

// DefaultMaxFrameSize is the recommended cap on a single inbound frame
// (§4.3). A real agent never sends anything close to this; it only
// guards against a corrupt or hostile length prefix turning into an
// unbounded allocation.
const DefaultMaxFrameSize = 256 * 1024

// FrameEncode wraps a message payload (message-number byte plus body,
// as produced by EncodeRequest) in the 4-byte big-endian length prefix
// used on the wire.
func FrameEncode(payload []byte) []byte {
	out := make([]byte, 0, 4+len(payload))
	out = writeUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// FrameDecodeStream extracts the next complete frame from buf, the
// accumulated bytes read off the socket so far. It returns the frame's
// payload (length prefix stripped), the number of bytes of buf consumed,
// and whether a complete frame was found. When ok is false and err is
// nil, buf simply doesn't hold a complete frame yet and the caller
// should read more bytes before trying again. When err is non-nil, the
// length prefix itself declares a frame larger than maxFrameSize and
// the stream should be treated as unusable: there is no way to skip an
// oversized frame without reading (and discarding) all of it first.
//
// maxFrameSize of 0 disables the cap.
func FrameDecodeStream(buf []byte, maxFrameSize int) (payload []byte, consumed int, ok bool, err error) {
	if len(buf) < 4 {
		return nil, 0, false, nil
	}
	n := binary.BigEndian.Uint32(buf[:4])
	if maxFrameSize > 0 && n > uint32(maxFrameSize) {
		return nil, 0, false, fmt.Errorf("frame of %d bytes exceeds the %d byte cap", n, maxFrameSize)
	}
	total := 4 + uint64(n)
	if uint64(len(buf)) < total {
		return nil, 0, false, nil
	}
	return buf[4:total], int(total), true, nil
}
