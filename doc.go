// Package sshagent is a client for the SSH agent protocol
// (draft-miller-ssh-agent-17) over the RFC 4251 §5 wire conventions. It
// dials a running ssh-agent over a UNIX socket (the one named by
// SSH_AUTH_SOCK, or any path given to New), and exposes three transactions:
// listing identities, adding an identity parsed from an unencrypted
// OpenSSH private key PEM block, and requesting a signature.
//
// The package implements only the client half of the protocol. It does
// not decrypt passphrase-protected keys, does not interpret key-type
// specific private key fields (they are carried opaquely), and does
// not implement agent-protocol extensions.
package sshagent
