package mock

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FaultPoint selects where the simulated router misbehaves
type FaultPoint int

const (
	FaultNone FaultPoint = iota
	// FaultOnConnect closes the connection before any prompt
	FaultOnConnect
	// FaultAfterAccount closes after reading the username
	FaultAfterAccount
	// FaultAfterLogin closes after reading the password
	FaultAfterLogin
	// FaultDuringStatus sends half of the status body then closes
	FaultDuringStatus
	// FaultStallAfterLogin keeps the connection open without a shell prompt
	FaultStallAfterLogin
)

const (
	iac       = 255
	will      = 251
	dont      = 254
	do        = 253
	optEcho   = 1
	optTType  = 24
	escapeKey = 0x1d
)

var errTerminated = errors.New("session terminated by client")

// Router simulates the telnet CLI of a DrayTek Vigor modem on a local TCP port
type Router struct {
	Username string
	Password string

	// Status and Counts are the command bodies served
	Status string
	Counts string

	// Fault injects a failure at a given point of the session
	Fault FaultPoint

	// Negotiate sends telnet option requests before the login prompt
	Negotiate bool

	mu         sync.Mutex
	listener   net.Listener
	wg         sync.WaitGroup
	sessions   int
	terminated int
	cmdHistory []string
}

// NewRouter creates a simulated router accepting admin/admin
func NewRouter() *Router {
	return &Router{
		Username: "admin",
		Password: "admin",
		Status:   StatusOutput(),
		Counts:   CountsOutput(),
	}
}

// Start listens on a free loopback port and serves sessions until Close
func (r *Router) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	r.mu.Lock()
	r.listener = ln
	r.mu.Unlock()

	r.wg.Add(1)
	go r.acceptLoop(ln)
	return nil
}

// Addr returns the host and port the router listens on
func (r *Router) Addr() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host, port, _ := net.SplitHostPort(r.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return host, p
}

// Close stops the listener and waits for open sessions
func (r *Router) Close() error {
	r.mu.Lock()
	ln := r.listener
	r.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	r.wg.Wait()
	return err
}

// Sessions returns the number of accepted connections
func (r *Router) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

// Terminated returns the number of sessions ended by the client escape byte
func (r *Router) Terminated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminated
}

// GetCommandHistory returns the lines received from clients
func (r *Router) GetCommandHistory() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]string, len(r.cmdHistory))
	copy(history, r.cmdHistory)
	return history
}

func (r *Router) recordCommand(cmd string) {
	r.mu.Lock()
	r.cmdHistory = append(r.cmdHistory, cmd)
	r.mu.Unlock()
}

func (r *Router) acceptLoop(ln net.Listener) {
	defer r.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		r.mu.Lock()
		r.sessions++
		r.mu.Unlock()

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
			r.serve(conn)
		}()
	}
}

func (r *Router) serve(conn net.Conn) {
	rd := bufio.NewReader(conn)

	if r.Fault == FaultOnConnect {
		return
	}
	if r.Negotiate {
		_, _ = conn.Write([]byte{iac, will, optEcho, iac, do, optTType})
	}

	_, _ = conn.Write([]byte(crlf + AccountPrompt))
	user, err := readLine(rd)
	if err != nil {
		return
	}
	r.recordCommand("login " + user)
	if r.Fault == FaultAfterAccount {
		return
	}

	_, _ = conn.Write([]byte(crlf + PasswordPrompt))
	pass, err := readLine(rd)
	if err != nil {
		return
	}
	if r.Fault == FaultAfterLogin {
		return
	}
	if user != r.Username || pass != r.Password {
		_, _ = conn.Write([]byte(crlf + "Login incorrect" + crlf))
		return
	}
	if r.Fault == FaultStallAfterLogin {
		_, _ = readLine(rd)
		return
	}

	_, _ = conn.Write([]byte(crlf + crlf + "Type ? for command help" + crlf + ShellPrompt))

	for {
		cmd, err := readLine(rd)
		if errors.Is(err, errTerminated) {
			r.mu.Lock()
			r.terminated++
			r.mu.Unlock()
			return
		}
		if err != nil {
			return
		}
		r.recordCommand(cmd)

		switch cmd {
		case StatusCommand:
			if r.Fault == FaultDuringStatus {
				_, _ = conn.Write([]byte(Block1(r.Status)[:len(r.Status)/2]))
				return
			}
			_, _ = conn.Write([]byte(Block1(r.Status)))
		case CountsCommand:
			_, _ = conn.Write([]byte(Block2(r.Counts) + crlf + strings.Join(fifteenMinLines, crlf) + crlf + ShellPrompt))
		default:
			_, _ = conn.Write([]byte(cmd + crlf + "% Unknown command" + crlf + ShellPrompt))
		}
	}
}

// readLine reads one client line, skipping telnet negotiation replies
func readLine(rd *bufio.Reader) (string, error) {
	var line []byte
	for {
		c, err := rd.ReadByte()
		if err != nil {
			return string(line), err
		}

		switch c {
		case iac:
			cmd, err := rd.ReadByte()
			if err != nil {
				return string(line), err
			}
			if cmd >= will && cmd <= dont {
				if _, err := rd.ReadByte(); err != nil {
					return string(line), err
				}
			}
		case escapeKey:
			return string(line), errTerminated
		case '\r':
		case '\n':
			return string(line), nil
		default:
			line = append(line, c)
		}
	}
}
