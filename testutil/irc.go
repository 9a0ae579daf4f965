package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// FakeIRCServer accepts a single plain-text IRC client, greets it once it
// registers, and records every line it sends.
type FakeIRCServer struct {
	t     *testing.T
	ln    net.Listener
	lines chan string

	mu   sync.Mutex
	conn net.Conn
}

// NewFakeIRCServer listens on a loopback port until the test ends.
func NewFakeIRCServer(t *testing.T) *FakeIRCServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &FakeIRCServer{t: t, ln: ln, lines: make(chan string, 128)}
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Addr is the host:port clients should dial.
func (s *FakeIRCServer) Addr() string { return s.ln.Addr().String() }

func (s *FakeIRCServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			close(s.lines)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "NICK ") {
			nick := strings.TrimPrefix(line, "NICK ")
			s.Send(fmt.Sprintf(":tmi.twitch.tv 001 %s :Welcome, GLHF!", nick))
		}
		if strings.HasPrefix(line, "PING") {
			s.Send("PONG" + strings.TrimPrefix(line, "PING"))
		}
		select {
		case s.lines <- line:
		default:
		}
	}
}

// Send writes one raw line to the connected client.
func (s *FakeIRCServer) Send(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		s.t.Errorf("fake irc: send %q before a client connected", line)
		return
	}
	// Write errors mean the client went away; WaitFor reports that.
	_, _ = fmt.Fprintf(s.conn, "%s\r\n", line)
}

// WaitFor returns the first received line with the given prefix, failing the
// test after timeout.
func (s *FakeIRCServer) WaitFor(prefix string, timeout time.Duration) string {
	s.t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.t.Fatalf("fake irc: connection closed waiting for %q", prefix)
				return ""
			}
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			s.t.Fatalf("fake irc: timed out waiting for %q", prefix)
			return ""
		}
	}
}

// Close stops listening and drops the client.
func (s *FakeIRCServer) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
