package sshagent

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/keygen"
	"golang.org/x/crypto/ssh"
)

// buildOpenSSHPEM hand-assembles a minimal unencrypted openssh-key-v1
// container around the given fields, for tests that need exact control
// over the key-type label and comment rather than whatever a real
// keygen-generated key happens to carry.
func buildOpenSSHPEM(fields []OpaqueString) string {
	var body []byte
	body = append(body, []byte(openSSHMagic)...)
	body = writeString(body, []byte("none"))
	body = writeString(body, []byte("none"))
	body = writeString(body, nil)
	body = writeUint32(body, 1)
	body = writeString(body, []byte("unused-public-key-section"))

	priv := make([]byte, 8)
	for _, f := range fields {
		priv = writeString(priv, f)
	}
	body = writeString(body, priv)

	encoded := base64.StdEncoding.EncodeToString(body)
	var lines []string
	for i := 0; i < len(encoded); i += 70 {
		end := i + 70
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return pemBeginMarker + "\n" + strings.Join(lines, "\n") + "\n" + pemEndMarker + "\n"
}

func TestParseIdentityEcdsaNistp256(t *testing.T) {
	// Scenario 4.
	fields := []OpaqueString{
		OpaqueString("ecdsa-sha2-nistp256"),
		OpaqueString("nistp256"),
		OpaqueString([]byte{0x01, 0x02, 0x03}),
		OpaqueString([]byte{0x04, 0x05, 0x06, 0x07}),
		OpaqueString("test@keyecdsa256"),
	}
	pem := buildOpenSSHPEM(fields)

	id, ok := ParseIdentity(pem)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if len(id.Fields) != len(fields) {
		t.Fatalf("got %d fields, want %d", len(id.Fields), len(fields))
	}
	if string(id.Fields[0]) != "ecdsa-sha2-nistp256" {
		t.Errorf("first field = %q, want key type label", id.Fields[0])
	}
	if string(id.Fields[len(id.Fields)-1]) != "test@keyecdsa256" {
		t.Errorf("last field = %q, want comment", id.Fields[len(id.Fields)-1])
	}
}

func TestParseIdentityRejectsWrongMarkers(t *testing.T) {
	if _, ok := ParseIdentity("not a pem block at all"); ok {
		t.Fatalf("expected parse to fail")
	}
}

func TestParseIdentityRejectsEncryptedKey(t *testing.T) {
	var body []byte
	body = append(body, []byte(openSSHMagic)...)
	body = writeString(body, []byte("aes256-ctr"))
	body = writeString(body, []byte("bcrypt"))
	body = writeString(body, []byte{0, 0, 0, 1, 2})
	body = writeUint32(body, 1)

	encoded := base64.StdEncoding.EncodeToString(body)
	pem := pemBeginMarker + "\n" + encoded + "\n" + pemEndMarker + "\n"

	if _, ok := ParseIdentity(pem); ok {
		t.Fatalf("expected encrypted key to be rejected")
	}
}

func TestParseIdentityAgainstKeygenGeneratedKeys(t *testing.T) {
	for _, kt := range []keygen.KeyType{keygen.Ed25519, keygen.RSA} {
		kt := kt
		t.Run(fmt.Sprintf("%v", kt), func(t *testing.T) {
			k, err := keygen.New(filepath.Join(t.TempDir(), "id"), nil, kt)
			if err != nil {
				t.Fatalf("generating key: %v", err)
			}

			identity, ok := ParseIdentity(string(k.PrivateKeyPEM()))
			if !ok {
				t.Fatalf("ParseIdentity failed on a keygen-generated %v key", kt)
			}

			signer, err := ssh.NewSignerFromKey(k.PrivateKey())
			if err != nil {
				t.Fatalf("building signer: %v", err)
			}
			wantType := signer.PublicKey().Type()
			if string(identity.Fields[0]) != wantType {
				t.Errorf("key type label = %q, want %q", identity.Fields[0], wantType)
			}
			if len(identity.Fields) < 2 {
				t.Fatalf("expected at least a type and a comment field, got %d", len(identity.Fields))
			}
		})
	}
}
