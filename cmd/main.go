// Command sshagent-client is a small example program exercising the
// sshagent client library end to end: connect to SSH_AUTH_SOCK, add an
// identity, list identities, and request a signature.
//
// Spawning an agent process and performing outer SSH user
// authentication are both out of this module's scope (see spec.md §1);
// this program's use of "ssh-agent" via os/exec is just enough
// plumbing to have something to talk to when SSH_AUTH_SOCK isn't
// already set.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/keygen"
	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"

	sshagent "github.com/sshagentproto/agentclient"
)

var authSockPattern = regexp.MustCompile(`SSH_AUTH_SOCK=([^;]+);`)

func main() {
	var keyPath string
	for i, arg := range os.Args {
		if arg == "-key" && i+1 < len(os.Args) {
			keyPath = os.Args[i+1]
		}
	}

	sock := os.Getenv(sshagent.SSHAuthSockEnv)
	if sock == "" {
		var stop func()
		var err error
		sock, stop, err = spawnAgent()
		if err != nil {
			log.Fatalln("spawning ssh-agent:", err)
		}
		defer stop()
	}

	pem, err := identityPEM(keyPath)
	if err != nil {
		log.Fatalln("preparing identity:", err)
	}

	client := sshagent.New(sock)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.AddIdentity(ctx, pem); err != nil {
		log.Fatalln("ADD_IDENTITY:", err)
	}

	identities, err := client.ListIdentities(ctx)
	if err != nil {
		log.Fatalln("REQUEST_IDENTITIES:", err)
	}
	if len(identities) == 0 {
		log.Fatalln("agent reports no identities after ADD_IDENTITY")
	}
	id := identities[len(identities)-1]
	pub, err := id.PublicKey()
	if err != nil {
		log.Fatalln("parsing returned public key:", err)
	}
	fmt.Printf("added identity %s (%s)\n", ssh.FingerprintSHA256(pub), id.Comment)

	data := []byte("sign me")
	blob, err := client.Sign(ctx, id.KeyBlob, data, 0)
	if err != nil {
		log.Fatalln("SIGN_REQUEST:", err)
	}
	sig, err := sshagent.DecodeSignature(blob)
	if err != nil {
		log.Fatalln("decoding signature:", err)
	}
	if err := pub.Verify(data, sig); err != nil {
		log.Fatalln("signature did not verify:", err)
	}
	fmt.Println("signature verified")
}

// identityPEM returns the PEM block to add: the file at keyPath if one
// was given (with a leading ~ expanded via go-homedir), or a freshly
// generated throwaway ed25519 key otherwise.
func identityPEM(keyPath string) (string, error) {
	if keyPath == "" {
		k, err := keygen.New(filepath.Join(os.TempDir(), "sshagent-client-demo"), nil, keygen.Ed25519)
		if err != nil {
			return "", err
		}
		return string(k.PrivateKeyPEM()), nil
	}

	expanded, err := homedir.Expand(keyPath)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// spawnAgent launches a real ssh-agent in the background and parses its
// SSH_AUTH_SOCK out of the shell snippet it prints on startup.
func spawnAgent() (sock string, stop func(), err error) {
	out, err := exec.Command("ssh-agent", "-s").Output()
	if err != nil {
		return "", nil, fmt.Errorf("running ssh-agent: %w", err)
	}
	m := authSockPattern.FindSubmatch(out)
	if m == nil {
		return "", nil, fmt.Errorf("could not find SSH_AUTH_SOCK in ssh-agent output")
	}
	sock = strings.TrimSpace(string(m[1]))

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	var pid string
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "SSH_AGENT_PID=") {
			parts := strings.SplitN(scanner.Text(), "=", 2)
			pid = strings.TrimSuffix(strings.TrimSpace(parts[1]), ";")
		}
	}

	stop = func() {
		if pid != "" {
			_ = exec.Command("kill", pid).Run()
		}
	}
	return sock, stop, nil
}
