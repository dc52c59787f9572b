package rcon

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrAuthFailed means the server rejected the password. Unlike network
// errors, retrying will not help.
var ErrAuthFailed = errors.New("rcon: authentication failed")

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	readTimeout  = 10 * time.Second
)

// Conn is one authenticated RCON connection. It is not safe for
// concurrent use; the session layer serializes access.
type Conn struct {
	c     net.Conn
	reqID int32
}

// Dial connects and authenticates. addr is "host:port".
func Dial(addr, password string) (*Conn, error) {
	nc, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("rcon: dial %s: %w", addr, err)
	}

	conn := &Conn{c: nc}
	if err := conn.auth(password); err != nil {
		nc.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Conn) auth(password string) error {
	c.reqID++
	id := c.reqID

	c.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writePacket(c.c, id, typeAuth, password); err != nil {
		return fmt.Errorf("rcon: send auth: %w", err)
	}

	// Some servers send an empty RESPONSE_VALUE before the auth
	// response; skip anything until the auth response arrives.
	for {
		c.c.SetReadDeadline(time.Now().Add(readTimeout))
		respID, typ, _, err := readPacket(c.c)
		if err != nil {
			return fmt.Errorf("rcon: read auth response: %w", err)
		}
		if typ != typeAuthResp {
			continue
		}
		if respID == -1 {
			return ErrAuthFailed
		}
		if respID != id {
			return fmt.Errorf("rcon: auth response id %d, want %d", respID, id)
		}
		return nil
	}
}

// Command sends one command and returns the textual reply. Any error
// leaves the connection in an unknown state; the caller should close
// it and reconnect.
func (c *Conn) Command(cmd string) (string, error) {
	c.reqID++
	id := c.reqID

	c.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writePacket(c.c, id, typeCommand, cmd); err != nil {
		return "", fmt.Errorf("rcon: send command: %w", err)
	}

	c.c.SetReadDeadline(time.Now().Add(readTimeout))
	respID, typ, body, err := readPacket(c.c)
	if err != nil {
		return "", fmt.Errorf("rcon: read response: %w", err)
	}
	if typ != typeResponse || respID != id {
		return "", fmt.Errorf("rcon: unexpected response (id %d type %d)", respID, typ)
	}
	return body, nil
}

func (c *Conn) Close() error {
	return c.c.Close()
}
