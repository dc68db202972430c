package cli

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
)

// Telnet protocol bytes (RFC 854)
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWill = 251
	telnetWont = 252
	telnetDo   = 253
	telnetDont = 254
	telnetIAC  = 255
)

type telnetState int

const (
	tsData telnetState = iota
	tsIAC
	tsOption
	tsSub
	tsSubIAC
)

// TelnetConn is a telnet byte stream over TCP. It refuses every option the
// router requests and strips negotiation from the data it returns.
type TelnetConn struct {
	conn net.Conn
	r    *bufio.Reader

	state telnetState
	cmd   byte

	wmu       sync.Mutex
	eof       atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewTelnetConn wraps an established connection
func NewTelnetConn(conn net.Conn) *TelnetConn {
	return &TelnetConn{
		conn: conn,
		r:    bufio.NewReader(conn),
		done: make(chan struct{}),
	}
}

// Read returns data bytes, answering negotiation as it goes
func (c *TelnetConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			c.eof.Store(true)
			return 0, err
		}

		if out, ok := c.filter(b); ok {
			p[n] = out
			n++
		}
		if n == len(p) || (n > 0 && c.r.Buffered() == 0) {
			return n, nil
		}
	}
}

// filter advances the negotiation state machine and reports data bytes
func (c *TelnetConn) filter(b byte) (byte, bool) {
	switch c.state {
	case tsIAC:
		switch b {
		case telnetIAC:
			c.state = tsData
			return b, true
		case telnetWill, telnetWont, telnetDo, telnetDont:
			c.cmd = b
			c.state = tsOption
		case telnetSB:
			c.state = tsSub
		default:
			c.state = tsData
		}
	case tsOption:
		c.refuse(c.cmd, b)
		c.state = tsData
	case tsSub:
		if b == telnetIAC {
			c.state = tsSubIAC
		}
	case tsSubIAC:
		if b == telnetSE {
			c.state = tsData
		} else {
			c.state = tsSub
		}
	default:
		if b == telnetIAC {
			c.state = tsIAC
			return 0, false
		}
		if b == 0 {
			return 0, false
		}
		return b, true
	}
	return 0, false
}

// refuse answers DO/DONT with WONT and WILL/WONT with DONT
func (c *TelnetConn) refuse(cmd, opt byte) {
	reply := byte(telnetDont)
	if cmd == telnetDo || cmd == telnetDont {
		reply = telnetWont
	}
	c.wmu.Lock()
	_, _ = c.conn.Write([]byte{telnetIAC, reply, opt})
	c.wmu.Unlock()
}

// Write sends data, doubling any IAC byte
func (c *TelnetConn) Write(p []byte) (int, error) {
	buf := p
	for _, b := range p {
		if b == telnetIAC {
			buf = make([]byte, 0, len(p)+4)
			for _, b := range p {
				buf = append(buf, b)
				if b == telnetIAC {
					buf = append(buf, telnetIAC)
				}
			}
			break
		}
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection once
func (c *TelnetConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Wait blocks until the connection is closed
func (c *TelnetConn) Wait() error {
	<-c.done
	return nil
}

// Alive reports whether the router has not closed the stream
func (c *TelnetConn) Alive() bool {
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

// Disconnected reports whether the router closed the stream
func (c *TelnetConn) Disconnected() bool {
	return c.eof.Load()
}
