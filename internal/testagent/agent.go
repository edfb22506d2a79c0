// Package testagent provides a minimal SSH agent that serves the real
// wire protocol over a UNIX socket, bootstrapped with a set of signers
// that ADD_IDENTITY can extend. It exists so the client codec and engine in the parent
// module can be exercised against a genuine protocol peer instead of a
// hand-faked byte stream.
//
// It is intended for use in this module's own tests only.
package testagent

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// New creates an agent bootstrapped with the given signers. Add appends
// to them; nothing removes them.
func New(signers ...ssh.Signer) *Agent {
	return &Agent{
		signers: signers,
	}
}

// Agent is a test-only ssh-agent implementation.
type Agent struct {
	signers  []ssh.Signer
	comments map[string]string
	close    func() error
	socket   string
}

var _ agent.Agent = &Agent{}

// WithComment records the comment ssh-add-style tools should report for
// a given signer's public key.
func (a *Agent) WithComment(signer ssh.Signer, comment string) *Agent {
	if a.comments == nil {
		a.comments = map[string]string{}
	}
	a.comments[string(signer.PublicKey().Marshal())] = comment
	return a
}

// Start the agent in a random socket.
func (a *Agent) Start() error {
	f, err := os.CreateTemp(os.TempDir(), "testagent.*")
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	if err := os.Remove(f.Name()); err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}

	sock := f.Name()
	l, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("failed to start listening: %w", err)
	}

	a.socket = sock
	a.close = l.Close

	for {
		c, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("could not accept request: %w", err)
		}
		if err := agent.ServeAgent(a, c); err != nil && err != io.EOF {
			return fmt.Errorf("could not serve request: %w", err)
		}
	}
}

// Close the agent and cleanup.
func (a *Agent) Close() error {
	return a.close()
}

// Socket returns the unix socket address in which the agent is listening.
func (a *Agent) Socket() string {
	return a.socket
}

// Ready tells whether the agent is ready or not.
func (a *Agent) Ready() bool {
	return a.socket != ""
}

func (a *Agent) List() ([]*agent.Key, error) {
	result := make([]*agent.Key, 0, len(a.signers))
	for _, k := range a.signers {
		result = append(result, &agent.Key{
			Format:  k.PublicKey().Type(),
			Blob:    k.PublicKey().Marshal(),
			Comment: a.comments[string(k.PublicKey().Marshal())],
		})
	}
	return result, nil
}

func (a *Agent) Sign(key ssh.PublicKey, data []byte) (*ssh.Signature, error) {
	for _, s := range a.signers {
		if bytes.Equal(s.PublicKey().Marshal(), key.Marshal()) {
			return s.Sign(rand.Reader, data)
		}
	}
	return nil, fmt.Errorf("invalid key: %s", ssh.FingerprintSHA256(key))
}

func (a *Agent) Signers() ([]ssh.Signer, error) {
	return a.signers, nil
}

// Add implements the ADD_IDENTITY side of the protocol: it accepts
// whatever key ssh.NewSignerFromKey can make a signer out of and
// keeps it alongside the bootstrap signers for the lifetime of the
// agent. This lets tests round-trip this module's own ADD_IDENTITY
// encoder through a real peer.
func (a *Agent) Add(key agent.AddedKey) error {
	signer, err := ssh.NewSignerFromKey(key.PrivateKey)
	if err != nil {
		return fmt.Errorf("unsupported key for ADD_IDENTITY: %w", err)
	}
	a.signers = append(a.signers, signer)
	if key.Comment != "" {
		a.WithComment(signer, key.Comment)
	}
	return nil
}

// ErrUnsupportedOperation is returned on operations that are not implemented.
type ErrUnsupportedOperation struct {
	Op string
}

func (e ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("operation not supported: %s", e.Op)
}

func (a *Agent) Remove(key ssh.PublicKey) error { return ErrUnsupportedOperation{"Remove"} }
func (a *Agent) RemoveAll() error               { return ErrUnsupportedOperation{"RemoveAll"} }
func (a *Agent) Lock(passphrase []byte) error   { return ErrUnsupportedOperation{"Lock"} }
func (a *Agent) Unlock(passphrase []byte) error { return ErrUnsupportedOperation{"Unlock"} }
