package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"github.com/rs/zerolog"

	"github.com/nanoncore/nano-vigor/types"
	"github.com/nanoncore/nano-vigor/vendors/common"
)

// Router CLI markers and commands
const (
	AccountPrompt      = "Account:"
	PasswordPrompt     = "Password:"
	ShellPrompt        = "Vigor> "
	StatusCommand      = "vdsl status"
	CountsCommand      = "vdsl status counts"
	CountersTerminator = "\n [ Counters: 15Min ]"

	// TerminateByte ends the CLI session
	TerminateByte = "\x1d"
)

// SessionState is a state of the login-query-disconnect cycle
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAwaitingAccountPrompt
	StateAwaitingPasswordPrompt
	StateAwaitingShellPrompt
	StateCapturingBlock1
	StateCapturingBlock2
	StateDone
	StateFailed
)

var stateNames = map[SessionState]string{
	StateConnecting:             "Connecting",
	StateAwaitingAccountPrompt:  "AwaitingAccountPrompt",
	StateAwaitingPasswordPrompt: "AwaitingPasswordPrompt",
	StateAwaitingShellPrompt:    "AwaitingShellPrompt",
	StateCapturingBlock1:        "CapturingBlock1",
	StateCapturingBlock2:        "CapturingBlock2",
	StateDone:                   "Done",
	StateFailed:                 "Failed",
}

func (s SessionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// expecter is the subset of *expect.GExpect a session drives
type expecter interface {
	Expect(re *regexp.Regexp, timeout time.Duration) (string, []string, error)
	Send(in string) error
	Close() error
}

// sessionConn is the byte stream a session runs over. Write must reach the
// router before it returns.
type sessionConn interface {
	io.ReadWriteCloser
	Wait() error
	Alive() bool
	Disconnected() bool
}

var (
	_ sessionConn = (*TelnetConn)(nil)
	_ sessionConn = (*SSHConn)(nil)
)

// step is one transition: wait for marker, optionally keep the text, then send
type step struct {
	state   SessionState
	marker  string
	capture bool
	send    string
}

// ExpectSession drives the router CLI through its prompts
type ExpectSession struct {
	expecter     expecter
	steps        []step
	timeout      time.Duration
	disconnected func() bool
	writeEscape  func() error
	state        SessionState
	log          zerolog.Logger
}

// ExpectSessionConfig holds configuration for an expect session
type ExpectSessionConfig struct {
	Credentials types.RouterCredentials

	// Login selects the Account/Password handshake; SSH sessions skip it
	Login bool

	// StepTimeout bounds every marker wait
	StepTimeout time.Duration

	// Disconnected reports whether the transport saw end of input
	Disconnected func() bool

	// Terminate writes the escape byte directly on the transport
	Terminate func() error

	Logger zerolog.Logger
}

// loginSteps builds the ordered transitions of one polling cycle
func loginSteps(creds types.RouterCredentials, login bool) []step {
	var steps []step
	if login {
		steps = append(steps,
			step{state: StateAwaitingAccountPrompt, marker: AccountPrompt, send: creds.Username + "\n"},
			step{state: StateAwaitingPasswordPrompt, marker: PasswordPrompt, send: creds.Password + "\n"},
		)
	}
	return append(steps,
		step{state: StateAwaitingShellPrompt, marker: ShellPrompt, send: StatusCommand + "\n"},
		step{state: StateCapturingBlock1, marker: ShellPrompt, capture: true, send: CountsCommand + "\n"},
		step{state: StateCapturingBlock2, marker: CountersTerminator, capture: true},
	)
}

// newExpectSession creates a session over an already spawned expecter
func newExpectSession(exp expecter, cfg ExpectSessionConfig) *ExpectSession {
	if cfg.StepTimeout == 0 {
		cfg.StepTimeout = types.DefaultStepTimeout
	}
	if cfg.Disconnected == nil {
		cfg.Disconnected = func() bool { return false }
	}
	if cfg.Terminate == nil {
		cfg.Terminate = func() error { return nil }
	}

	return &ExpectSession{
		expecter:     exp,
		steps:        loginSteps(cfg.Credentials, cfg.Login),
		timeout:      cfg.StepTimeout,
		disconnected: cfg.Disconnected,
		writeEscape:  cfg.Terminate,
		state:        StateConnecting,
		log:          cfg.Logger,
	}
}

// State returns the current session state
func (s *ExpectSession) State() SessionState {
	return s.state
}

// Run walks every step and returns both captured blocks, escaped.
// Cancelling ctx closes the expecter so a pending wait returns at once.
func (s *ExpectSession) Run(ctx context.Context) (types.RawSessionOutput, error) {
	var out strings.Builder

	stop := context.AfterFunc(ctx, func() {
		_ = s.expecter.Close()
	})
	defer stop()

	for _, st := range s.steps {
		s.state = st.state
		s.log.Debug().Str("state", st.state.String()).Msg("waiting for router marker")

		if err := ctx.Err(); err != nil {
			return "", s.fail(s.classify(ctx, err), err)
		}

		text, err := s.waitFor(ctx, st.marker)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %v", ctxErr, err)
			}
			return "", s.fail(s.classify(ctx, err), err)
		}

		if st.capture {
			out.WriteString(common.EscapeControl([]byte(common.StripANSI(text))))
		}

		if st.send != "" {
			if err := s.expecter.Send(st.send); err != nil {
				return "", s.fail(types.ErrTransport, fmt.Errorf("failed to send: %w", err))
			}
		}
	}

	s.terminate()
	s.state = StateDone
	return types.RawSessionOutput(out.String()), nil
}

// waitFor blocks until marker arrives and returns the text up to and
// including it
func (s *ExpectSession) waitFor(ctx context.Context, marker string) (string, error) {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}

	text, _, err := s.expecter.Expect(regexp.MustCompile(regexp.QuoteMeta(marker)), timeout)
	if err != nil {
		return text, err
	}

	if i := strings.Index(text, marker); i >= 0 {
		text = text[:i+len(marker)]
	}
	return text, nil
}

// classify maps an expect failure onto the error taxonomy. An expired or
// cancelled ctx wins over the state of the transport it closed.
func (s *ExpectSession) classify(ctx context.Context, err error) types.ErrorCode {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return types.ErrTimeout
	case context.Canceled:
		return types.ErrTransport
	}

	if s.disconnected() {
		return types.ErrUnexpectedDisconnect
	}

	var te expect.TimeoutError
	if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
		return types.ErrTimeout
	}
	return types.ErrTransport
}

func (s *ExpectSession) fail(code types.ErrorCode, err error) error {
	stage := s.state.String()
	s.state = StateFailed
	s.terminate()
	return types.NewPollError(code, stage, err)
}

// terminate writes the escape byte and closes; errors are ignored
func (s *ExpectSession) terminate() {
	if err := s.writeEscape(); err != nil {
		s.log.Debug().Err(err).Msg("failed to write session escape")
	}
	_ = s.expecter.Close()
}

// spawnOptions are shared by telnet and ssh expecters. With PartialMatch
// bytes received after a marker stay buffered for the next wait.
func spawnOptions() []expect.Option {
	return []expect.Option{
		expect.Verbose(false),
		expect.CheckDuration(100 * time.Millisecond),
		expect.PartialMatch(true),
	}
}

// spawn starts goexpect over a transport connection
func spawn(conn sessionConn, timeout time.Duration) (*expect.GExpect, error) {
	exp, _, err := expect.SpawnGeneric(&expect.GenOptions{
		In:    conn,
		Out:   conn,
		Wait:  conn.Wait,
		Close: conn.Close,
		Check: conn.Alive,
	}, timeout, spawnOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn expect session: %w", err)
	}
	return exp, nil
}

// escapeWriter writes TerminateByte on conn, bypassing the expecter queue
func escapeWriter(conn io.Writer) func() error {
	return func() error {
		_, err := conn.Write([]byte(TerminateByte))
		return err
	}
}
