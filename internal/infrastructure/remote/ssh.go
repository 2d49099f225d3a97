package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/ports"
)

const dialTimeout = 30 * time.Second

// SSHExecutor runs commands on peers over SSH with public key auth.
type SSHExecutor struct {
	user     string
	port     int
	signers  []ssh.Signer
	hostKeys ssh.HostKeyCallback
	setupErr error
	logger   ports.Logger
}

// NewSSHExecutor prepares credentials from settings. Problems loading keys
// or known_hosts are deferred to Run, so purely local runs never fail on
// missing SSH material.
func NewSSHExecutor(settings domain.RemoteSettings, log ports.Logger) *SSHExecutor {
	e := &SSHExecutor{
		user:   settings.User,
		port:   settings.Port,
		logger: log,
	}
	if e.user == "" {
		e.user = domain.DefaultRemoteUser
	}
	if e.port == 0 {
		e.port = domain.DefaultSSHPort
	}

	for _, path := range settings.IdentityFiles {
		signer, err := loadSigner(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) && log != nil {
				log.Warn("skipping identity file", map[string]interface{}{"path": path, "error": err.Error()})
			}
			continue
		}
		e.signers = append(e.signers, signer)
	}

	switch {
	case settings.InsecureIgnoreHostKey:
		e.hostKeys = ssh.InsecureIgnoreHostKey()
	case settings.KnownHosts == "":
		e.setupErr = errors.New("remote.known_hosts is not configured")
	default:
		cb, err := knownhosts.New(settings.KnownHosts)
		if err != nil {
			e.setupErr = fmt.Errorf("load known hosts: %w", err)
		} else {
			e.hostKeys = cb
		}
	}
	if e.setupErr == nil && len(e.signers) == 0 {
		e.setupErr = errors.New("no usable SSH identity files")
	}
	return e
}

func loadSigner(path string) (ssh.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(raw)
}

// Run implements ports.RemoteExecutor. A non-zero remote exit status is
// returned in the result, not as an error.
func (e *SSHExecutor) Run(ctx context.Context, host, command string) (domain.RemoteResult, error) {
	if e.setupErr != nil {
		return domain.RemoteResult{}, e.setupErr
	}

	client, err := e.dial(ctx, host)
	if err != nil {
		return domain.RemoteResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("%s: open session: %w", host, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		client.Close()
		return domain.RemoteResult{}, fmt.Errorf("%s: %w", host, ctx.Err())
	case err := <-done:
		result := domain.RemoteResult{Output: stdout.String(), Stderr: stderr.String()}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.Status = exitErr.ExitStatus()
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("%s: %w", host, err)
		}
		return result, nil
	}
}

func (e *SSHExecutor) dial(ctx context.Context, host string) (*ssh.Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(e.port))
	cfg := &ssh.ClientConfig{
		User:            e.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(e.signers...)},
		HostKeyCallback: e.hostKeys,
		Timeout:         dialTimeout,
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", host, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: handshake: %w", host, err)
	}
	if e.logger != nil {
		e.logger.Debug("ssh connected", map[string]interface{}{"host": host, "user": e.user})
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

var _ ports.RemoteExecutor = (*SSHExecutor)(nil)
