package rcon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeServer implements just enough of the protocol to authenticate
// sessions and echo commands back as "ok:<cmd>".
type fakeServer struct {
	ln       net.Listener
	password string

	mu    sync.Mutex
	conns []net.Conn
	cmds  []string
}

func newFakeServer(t *testing.T, password string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{ln: ln, password: password}
	go s.acceptLoop()
	t.Cleanup(s.close)
	return s
}

func (s *fakeServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	for {
		id, typ, body, err := readPacket(conn)
		if err != nil {
			return
		}
		switch typ {
		case typeAuth:
			if body == s.password {
				writePacket(conn, id, typeAuthResp, "")
			} else {
				writePacket(conn, -1, typeAuthResp, "")
			}
		case typeCommand:
			s.mu.Lock()
			s.cmds = append(s.cmds, body)
			s.mu.Unlock()
			writePacket(conn, id, typeResponse, "ok:"+body)
		}
	}
}

// dropConns severs every live connection without stopping the
// listener, simulating a transient network failure.
func (s *fakeServer) dropConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *fakeServer) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func (s *fakeServer) close() {
	s.ln.Close()
	s.dropConns()
}

func (s *fakeServer) hostPort(t *testing.T) (string, int) {
	t.Helper()
	addr := s.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestPacketRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writePacket(&buf, 7, typeCommand, "say hello"); err != nil {
		t.Fatal(err)
	}
	id, typ, body, err := readPacket(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if id != 7 || typ != typeCommand || body != "say hello" {
		t.Errorf("got (%d, %d, %q)", id, typ, body)
	}
}

func TestReadPacketRejectsBogusLength(t *testing.T) {
	// length field of 3 is below the protocol minimum
	frame := []byte{3, 0, 0, 0, 1, 2, 3}
	if _, _, _, err := readPacket(bytes.NewReader(frame)); err == nil {
		t.Fatal("expected error for undersized packet")
	}
	if _, _, _, err := readPacket(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Fatalf("empty input: got %v, want EOF", err)
	}
}

func TestDialAndCommand(t *testing.T) {
	srv := newFakeServer(t, "hunter2")
	conn, err := Dial(srv.ln.Addr().String(), "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	reply, err := conn.Command("list")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "ok:list" {
		t.Errorf("reply = %q, want %q", reply, "ok:list")
	}
}

func TestDialBadPassword(t *testing.T) {
	srv := newFakeServer(t, "hunter2")
	_, err := Dial(srv.ln.Addr().String(), "wrong")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("got %v, want ErrAuthFailed", err)
	}
}

func TestSessionReconnectsAfterFailure(t *testing.T) {
	srv := newFakeServer(t, "hunter2")
	host, port := srv.hostPort(t)

	sess := NewSession(host, port, "hunter2")
	sess.Backoff = 10 * time.Millisecond
	defer sess.Close()

	ctx := context.Background()
	if _, err := sess.Run(ctx, "say one"); err != nil {
		t.Fatal(err)
	}

	// Kill the connection under the session; the next Run must heal.
	srv.dropConns()
	if _, err := sess.Run(ctx, "say two"); err != nil {
		t.Fatalf("run after drop: %v", err)
	}

	cmds := srv.commands()
	if len(cmds) == 0 || cmds[len(cmds)-1] != "say two" {
		t.Errorf("commands = %v, want trailing %q", cmds, "say two")
	}
}

func TestConnectHonorsAttemptCap(t *testing.T) {
	// A listener that never accepts: reserve a port, then close it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	sess := NewSession(addr.IP.String(), addr.Port, "pw")
	sess.Backoff = time.Millisecond
	sess.MaxAttempts = 3

	err = sess.Connect(context.Background())
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("got %v, want ErrAttemptsExhausted", err)
	}
}

func TestConnectStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	sess := NewSession(addr.IP.String(), addr.Port, "pw")
	sess.Backoff = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := sess.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestRunBatchOrderAndCompletion(t *testing.T) {
	srv := newFakeServer(t, "hunter2")
	host, port := srv.hostPort(t)

	sess := NewSession(host, port, "hunter2")
	sess.Backoff = 10 * time.Millisecond
	defer sess.Close()

	batch := []string{"say 3...", "say 2...", "say 1..."}
	sess.RunBatch(context.Background(), batch, time.Millisecond)

	cmds := srv.commands()
	if len(cmds) != len(batch) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(batch))
	}
	for i := range batch {
		if cmds[i] != batch[i] {
			t.Errorf("cmds[%d] = %q, want %q", i, cmds[i], batch[i])
		}
	}
}
