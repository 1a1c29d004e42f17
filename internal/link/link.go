// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link owns the single TCP connection to the autopilot: connect with
// a fixed retry cadence, detect a dead peer, and drop writes while down.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultRetryInterval is the sleep between failed connection attempts.
const DefaultRetryInterval = time.Second

var (
	// ErrDisconnected is returned by Read while no connection is established.
	ErrDisconnected = fmt.Errorf("link: not connected: %w", io.EOF)

	// ErrResourceExhausted means a socket could not be allocated at all.
	// There is no recovery from it.
	ErrResourceExhausted = errors.New("link: cannot allocate socket")
)

// State is the connection state.
type State int

const (
	// Disconnected means no connection is established.
	Disconnected State = iota
	// Connected means a live connection is attached.
	Connected
)

// String returns "connected" or "disconnected".
func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// DialFunc opens a stream connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config configures a Manager.
type Config struct {
	Addr          string
	RetryInterval time.Duration
	Clock         clock.Clock
	Dial          DialFunc
}

// Manager maintains at most one outbound connection.
type Manager struct {
	addr  string
	retry time.Duration
	clock clock.Clock
	dial  DialFunc

	mu         sync.Mutex
	conn       net.Conn
	everUp     bool
	reconnects int
}

// New returns a disconnected Manager.
func New(cfg Config) *Manager {
	m := &Manager{
		addr:  cfg.Addr,
		retry: cfg.RetryInterval,
		clock: cfg.Clock,
		dial:  cfg.Dial,
	}
	if m.retry <= 0 {
		m.retry = DefaultRetryInterval
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.dial == nil {
		var d net.Dialer
		m.dial = d.DialContext
	}
	return m
}

// EnsureConnected returns once a connection is up, retrying every
// RetryInterval for as long as ctx allows. It fails only on ctx
// cancellation or ErrResourceExhausted.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	waiting := false
	for {
		if m.Connected() {
			return nil
		}

		conn, err := m.dial(ctx, "tcp", m.addr)
		if err == nil {
			m.attach(conn)
			return nil
		}
		if isResourceExhausted(err) {
			return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !waiting {
			log.Printf("link: waiting for telemetry at %s: %v", m.addr, err)
			waiting = true
		}

		select {
		case <-m.clock.After(m.retry):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Manager) attach(conn net.Conn) {
	m.mu.Lock()
	m.conn = conn
	if m.everUp {
		m.reconnects++
	}
	m.everUp = true
	m.mu.Unlock()
	log.Printf("link: connected to telemetry at %s", m.addr)
}

// Connected reports whether a connection is currently established.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// State reports the connection state.
func (m *Manager) State() State {
	if m.Connected() {
		return Connected
	}
	return Disconnected
}

// Reconnects counts successful connections after the first one.
func (m *Manager) Reconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

// SetReadTimeout bounds the next Read. Zero or less waits indefinitely.
func (m *Manager) SetReadTimeout(d time.Duration) error {
	conn := m.current()
	if conn == nil {
		return ErrDisconnected
	}
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	return conn.SetReadDeadline(deadline)
}

// Read reads from the live connection. A deadline expiry is returned as is
// and leaves the connection up; any other failure, including a peer-initiated
// close, tears the connection down.
func (m *Manager) Read(p []byte) (int, error) {
	conn := m.current()
	if conn == nil {
		return 0, ErrDisconnected
	}
	n, err := conn.Read(p)
	if err != nil && !isTimeout(err) {
		m.drop(conn, err)
	}
	return n, err
}

// Write sends p on the live connection. While disconnected the bytes are
// silently discarded. A failed write tears the connection down; the error is
// not surfaced so callers never abort on a vanished peer.
func (m *Manager) Write(p []byte) (int, error) {
	conn := m.current()
	if conn == nil {
		return len(p), nil
	}
	if _, err := conn.Write(p); err != nil {
		m.drop(conn, err)
	}
	return len(p), nil
}

// Close tears down the current connection, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (m *Manager) current() net.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// drop closes conn if it is still the live connection.
func (m *Manager) drop(conn net.Conn, cause error) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.mu.Unlock()

	conn.Close()
	if isPeerGone(cause) {
		log.Printf("link: telemetry peer went away: %v", cause)
	} else {
		log.Printf("link: telemetry connection failed: %v", cause)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isPeerGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM)
}
