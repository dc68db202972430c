package cli

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"
)

// Remote terminal geometry requested for SSH shells
const (
	sshTerm       = "xterm"
	sshTermWidth  = 132
	sshTermHeight = 43
)

// SSHConn is an interactive shell on an SSH client. Writes go straight to
// the remote stdin and end of output is tracked the same way TelnetConn
// tracks it.
type SSHConn struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	wmu       sync.Mutex
	eof       atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewSSHConn opens a PTY shell on client. The conn owns client from then on.
func NewSSHConn(client *ssh.Client) (*SSHConn, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open ssh session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty(sshTerm, sshTermHeight, sshTermWidth, modes); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}

	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	return &SSHConn{
		client:  client,
		session: session,
		stdin:   stdin,
		stdout:  stdout,
		done:    make(chan struct{}),
	}, nil
}

// Read returns shell output and records end of stream
func (c *SSHConn) Read(p []byte) (int, error) {
	n, err := c.stdout.Read(p)
	if err != nil {
		c.eof.Store(true)
	}
	return n, err
}

// Write sends input to the shell
func (c *SSHConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.stdin.Write(p)
}

// Close closes the session and the client once
func (c *SSHConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.session.Close()
		err = c.client.Close()
	})
	return err
}

// Wait blocks until the conn is closed
func (c *SSHConn) Wait() error {
	<-c.done
	return nil
}

// Alive reports whether the shell is still producing output
func (c *SSHConn) Alive() bool {
	if c.eof.Load() {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Disconnected reports whether the router closed the shell
func (c *SSHConn) Disconnected() bool {
	return c.eof.Load()
}
