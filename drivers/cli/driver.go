package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"

	"github.com/nanoncore/nano-vigor/types"
)

// Driver implements types.SessionClient over the router's terminal CLI.
// Every Collect opens a fresh session and closes it before returning.
type Driver struct {
	config types.RouterConfig
	dialer *net.Dialer
	log    zerolog.Logger
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger used for session tracing
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// NewDriver creates a new CLI driver
func NewDriver(config types.RouterConfig, opts ...Option) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.WithDefaults()

	d := &Driver{
		config: config,
		dialer: &net.Dialer{Timeout: config.Timeout},
		log:    log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("router", d.address()).Str("transport", string(config.Transport)).Logger()

	return d, nil
}

// Config returns the effective configuration
func (d *Driver) Config() types.RouterConfig {
	return d.config
}

func (d *Driver) address() string {
	return net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))
}

// Collect performs one authenticate-query-disconnect cycle
func (d *Driver) Collect(ctx context.Context) (types.RawSessionOutput, error) {
	switch d.config.Transport {
	case types.TransportSSH:
		return d.collectSSH(ctx)
	default:
		return d.collectTelnet(ctx)
	}
}

func (d *Driver) collectTelnet(ctx context.Context) (types.RawSessionOutput, error) {
	conn, err := d.dialer.DialContext(ctx, "tcp", d.address())
	if err != nil {
		return "", dialError(err)
	}

	return d.runSession(ctx, NewTelnetConn(conn))
}

func (d *Driver) collectSSH(ctx context.Context) (types.RawSessionOutput, error) {
	// Vigor firmware exposes the same CLI over SSH; some builds ask for
	// keyboard-interactive instead of password
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = d.config.Password
		}
		return answers, nil
	})

	sshConfig := &ssh.ClientConfig{
		User: d.config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.config.Password),
			keyboardInteractive,
		},
		Timeout:         d.config.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // home routers use self-generated keys
	}

	conn, err := d.dialer.DialContext(ctx, "tcp", d.address())
	if err != nil {
		return "", dialError(err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, d.address(), sshConfig)
	if err != nil {
		_ = conn.Close()
		return "", types.NewPollError(types.ErrTransport, StateConnecting.String(), fmt.Errorf("ssh handshake: %w", err))
	}
	client := ssh.NewClient(c, chans, reqs)

	sc, err := NewSSHConn(client)
	if err != nil {
		_ = client.Close()
		return "", types.NewPollError(types.ErrTransport, StateConnecting.String(), err)
	}

	return d.runSession(ctx, sc)
}

// login reports whether the configured transport asks for credentials in-band
func (d *Driver) login() bool {
	caps, _ := d.config.Transport.Capabilities()
	return caps.CLILogin
}

// runSession spawns the expecter on conn and walks the CLI; conn is closed
// on return
func (d *Driver) runSession(ctx context.Context, conn sessionConn) (types.RawSessionOutput, error) {
	exp, err := spawn(conn, d.config.StepTimeout)
	if err != nil {
		_ = conn.Close()
		return "", types.NewPollError(types.ErrTransport, StateConnecting.String(), err)
	}

	session := newExpectSession(exp, ExpectSessionConfig{
		Credentials:  d.config.RouterCredentials,
		Login:        d.login(),
		StepTimeout:  d.config.StepTimeout,
		Disconnected: conn.Disconnected,
		Terminate:    escapeWriter(conn),
		Logger:       d.log,
	})
	return session.Run(ctx)
}

// dialError classifies a connect failure
func dialError(err error) error {
	stage := StateConnecting.String()

	if errors.Is(err, syscall.ECONNREFUSED) {
		return types.NewPollError(types.ErrConnRefused, stage, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewPollError(types.ErrTimeout, stage, err)
	}

	return types.NewPollError(types.ErrTransport, stage, err)
}

// Ensure Driver implements SessionClient
var _ types.SessionClient = (*Driver)(nil)
