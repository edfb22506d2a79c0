package sshagent

import "golang.org/x/crypto/ssh"

// PublicKey parses id.KeyBlob as an SSH wire-format public key. This is
// a read-only convenience layered on top of the opaque OpaqueString;
// Sign and the rest of the protocol layer never need to call it
// themselves, since the spec only requires key_blob to be "suitable
// for later sign requests", not decoded.
func (id AgentIdentity) PublicKey() (ssh.PublicKey, error) {
	return ssh.ParsePublicKey(id.KeyBlob)
}

// DecodeSignature decodes a SIGN_RESPONSE signature blob into its
// type-plus-body shape (a format string and a signature body, per
// PROTOCOL.agent §2.6.2 / RFC 4253 §6.6). DecodeResponse never calls
// this itself — the signature is passed through opaquely, per §4.4 —
// it exists for callers that go on to verify the signature.
//
// Grounded on anuragc-arista-arista-ssh-agent/proto.go's
// writeStruct(w, sig) (the encode side of this same ssh.Signature
// shape) and vanadium-archive-go.ref's hand-written equivalent in
// runtimes/google/lib/sshagent/sshagent_unix.go's Sign, predating
// golang.org/x/crypto/ssh's typed helpers.
func DecodeSignature(blob OpaqueString) (*ssh.Signature, error) {
	var sig ssh.Signature
	if err := ssh.Unmarshal(blob, &sig); err != nil {
		return nil, &BadResponseError{Msg: "signature blob: " + err.Error()}
	}
	return &sig, nil
}
