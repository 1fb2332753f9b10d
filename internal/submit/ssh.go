package submit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/pathutil"
)

const defaultDialTimeout = 30 * time.Second

// SSHRunner runs commands on a remote host. Authentication tries the
// running ssh-agent first and then KeyFile. Host keys are checked against
// KnownHosts (default ~/.ssh/known_hosts).
type SSHRunner struct {
	Host       string
	Port       int
	User       string
	KeyFile    string
	KnownHosts string

	DialTimeout time.Duration
}

// Run implements Runner. The command runs as "cd <dir> && <command>".
func (r *SSHRunner) Run(ctx context.Context, dir, command string) ([]byte, error) {
	client, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	// Closing the client aborts a session blocked in CombinedOutput.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-stop:
		}
	}()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", r.Host, err)
	}
	defer session.Close()

	full := command
	if dir != "" {
		full = "cd " + ShellQuote(dir) + " && " + command
	}
	out, err := session.CombinedOutput(full)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	if err != nil {
		return out, fmt.Errorf("remote command %q on %s failed: %w", command, r.Host, err)
	}
	return out, nil
}

func (r *SSHRunner) dial(ctx context.Context) (*ssh.Client, error) {
	cfg, closeAgent, err := r.clientConfig()
	if err != nil {
		return nil, err
	}
	// The agent is only consulted during the handshake.
	defer closeAgent()

	port := r.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(r.Host, strconv.Itoa(port))

	timeout := r.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// clientConfig returns the config and a func releasing the agent
// connection its auth methods hold. The func is nil when err is non-nil.
func (r *SSHRunner) clientConfig() (*ssh.ClientConfig, func(), error) {
	if r.Host == "" {
		return nil, nil, errors.New("cluster host is not set")
	}
	user := r.User
	if user == "" {
		user = os.Getenv("USER")
	}

	auth, closeAgent, err := r.authMethods()
	if err != nil {
		return nil, nil, err
	}

	khPath := r.KnownHosts
	if khPath == "" {
		khPath = config.DefaultKnownHostsPath()
	}
	khPath, err = pathutil.ResolveAbsolutePath(khPath)
	if err != nil {
		closeAgent()
		return nil, nil, err
	}
	hostKeys, err := knownhosts.New(khPath)
	if err != nil {
		closeAgent()
		return nil, nil, fmt.Errorf("failed to read known hosts %s: %w", khPath, err)
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeys,
	}, closeAgent, nil
}

// authMethods also returns a func closing the agent connection, if one was
// opened. It is nil when err is non-nil; the connection is closed already.
func (r *SSHRunner) authMethods() ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closeAgent = func() { conn.Close() }
		}
	}

	fail := func(err error) ([]ssh.AuthMethod, func(), error) {
		closeAgent()
		return nil, nil, err
	}

	if r.KeyFile != "" {
		path, err := pathutil.ResolveAbsolutePath(r.KeyFile)
		if err != nil {
			return fail(err)
		}
		pem, err := os.ReadFile(path)
		if err != nil {
			return fail(fmt.Errorf("failed to read ssh key: %w", err))
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return fail(fmt.Errorf("failed to parse ssh key %s: %w", path, err))
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, nil, errors.New("no ssh agent running and no ssh_key configured")
	}
	return methods, closeAgent, nil
}
