package sshagent

import (
	"encoding/binary"
	"unicode/utf8"
)

// OpaqueString is a length-prefixed byte string as defined by RFC 4251
// §5: a 4-byte big-endian length followed by that many opaque bytes. Its
// content is never interpreted by this package.
type OpaqueString []byte

// buffer is a byte slice with a read cursor, used to decode the messages
// in message.go and the key container in pem.go; encoding uses the
// write* helpers below, which append to a plain slice. It mirrors the read/write
// helpers in anuragc-arista-arista-ssh-agent/proto.go and
// vanadium-archive-go.ref's sshagent_unix.go, generalized to operate on
// an in-memory slice instead of an io.Reader/io.Writer pair so that
// "not enough bytes yet" can be reported without consuming input.
type buffer struct {
	b   []byte
	pos int
}

func newBuffer(b []byte) *buffer {
	return &buffer{b: b}
}

// remaining reports how many unread bytes are left.
func (buf *buffer) remaining() int {
	return len(buf.b) - buf.pos
}

func (buf *buffer) readUint8() (byte, bool) {
	if buf.remaining() < 1 {
		return 0, false
	}
	v := buf.b[buf.pos]
	buf.pos++
	return v, true
}

func (buf *buffer) readUint32() (uint32, bool) {
	if buf.remaining() < 4 {
		return 0, false
	}
	v := binary.BigEndian.Uint32(buf.b[buf.pos : buf.pos+4])
	buf.pos += 4
	return v, true
}

// readString reads one SSH string: a 4-byte big-endian length, then
// that many bytes. If fewer than 4+n bytes remain, it reports false and
// leaves the cursor untouched so callers can treat "need more" as
// end-of-record rather than an error (used by the PEM parser's
// repeated-field loop in pem.go).
func (buf *buffer) readString() (OpaqueString, bool) {
	if buf.remaining() < 4 {
		return nil, false
	}
	n := binary.BigEndian.Uint32(buf.b[buf.pos : buf.pos+4])
	if uint64(buf.remaining()) < 4+uint64(n) {
		return nil, false
	}
	start := buf.pos + 4
	buf.pos = start + int(n)
	out := make([]byte, n)
	copy(out, buf.b[start:buf.pos])
	return OpaqueString(out), true
}

// readStringAsUTF8 reads one SSH string and validates it as UTF-8.
func (buf *buffer) readStringAsUTF8() (string, bool, error) {
	s, ok := buf.readString()
	if !ok {
		return "", false, nil
	}
	if !utf8.Valid(s) {
		return "", true, &BadResponseError{Msg: "comment is not valid UTF-8"}
	}
	return string(s), true, nil
}

func writeUint8(out []byte, v byte) []byte {
	return append(out, v)
}

func writeUint32(out []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(out, tmp[:]...)
}

// writeString appends one SSH string: a 4-byte big-endian length
// followed by s's bytes.
func writeString(out []byte, s []byte) []byte {
	out = writeUint32(out, uint32(len(s)))
	return append(out, s...)
}
