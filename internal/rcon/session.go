package rcon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"
)

// ErrAttemptsExhausted is returned when the configured reconnect cap
// is hit. With an unlimited cap only context cancellation stops the
// reconnect loop.
var ErrAttemptsExhausted = errors.New("rcon: reconnect attempts exhausted")

// Session owns at most one live connection and replaces it whenever a
// command fails. It is used from a single goroutine (the event
// consumer); there is no internal locking.
type Session struct {
	addr     string
	password string

	// Backoff is the fixed wait between connect attempts.
	// MaxAttempts caps attempts per reconnect loop; 0 means retry
	// forever.
	Backoff     time.Duration
	MaxAttempts int

	conn *Conn
}

func NewSession(host string, port int, password string) *Session {
	return &Session{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		password: password,
		Backoff:  3 * time.Second,
	}
}

// Connect blocks until a connection authenticates, the attempt cap is
// hit, or ctx is cancelled. The server may simply not be up yet, so
// every failure is logged and retried; a bad password is retried too,
// since the operator may fix the server config while we wait.
func (s *Session) Connect(ctx context.Context) error {
	s.Close()

	for attempt := 1; ; attempt++ {
		conn, err := Dial(s.addr, s.password)
		if err == nil {
			log.Printf("rcon: connected to %s", s.addr)
			s.conn = conn
			return nil
		}
		log.Printf("rcon: connect %s (attempt %d): %v", s.addr, attempt, err)

		if s.MaxAttempts > 0 && attempt >= s.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Backoff):
		}
	}
}

// Run executes one command. A failed command is treated as a dead
// session: the connection is dropped, rebuilt, and the command retried
// exactly once. Callers that can tolerate a missed broadcast log the
// returned error and move on.
func (s *Session) Run(ctx context.Context, cmd string) (string, error) {
	if s.conn == nil {
		if err := s.Connect(ctx); err != nil {
			return "", err
		}
	}

	reply, err := s.conn.Command(cmd)
	if err == nil {
		return reply, nil
	}
	log.Printf("rcon: command %q failed: %v (reconnecting)", cmd, err)

	if err := s.Connect(ctx); err != nil {
		return "", err
	}
	return s.conn.Command(cmd)
}

// RunBatch sends an ordered sequence of literal commands with a fixed
// pause between each. Failures are logged and skipped; the sequence
// always runs to the end. The pauses are part of the observable
// broadcast pacing, not retries.
func (s *Session) RunBatch(ctx context.Context, cmds []string, delay time.Duration) {
	for i, cmd := range cmds {
		if _, err := s.Run(ctx, cmd); err != nil {
			log.Printf("rcon: batch step %d (%q) skipped: %v", i, cmd, err)
		}
		if i == len(cmds)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// RunPersistent keeps reconnecting and resending until the command
// succeeds, the attempt cap is hit, or ctx is cancelled. Used for
// steps that must not be silently skipped, like the reset sequence's
// stop command.
func (s *Session) RunPersistent(ctx context.Context, cmd string) (string, error) {
	for {
		reply, err := s.Run(ctx, cmd)
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrAttemptsExhausted) {
			return "", err
		}
		log.Printf("rcon: persistent command %q failed: %v (retrying)", cmd, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.Backoff):
		}
	}
}

// Close drops the current connection, if any.
func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
