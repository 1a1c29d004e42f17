// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/vo_bridge/internal/link"
	"github.com/relabs-tech/vo_bridge/internal/mavlink"
	"github.com/relabs-tech/vo_bridge/internal/session"
)

// Link is the transport the worker drives. *link.Manager implements it.
type Link interface {
	io.ReadWriter
	EnsureConnected(ctx context.Context) error
	SetReadTimeout(d time.Duration) error
	Connected() bool
	Close() error
}

// CodecFactory builds a codec for a fresh connection.
type CodecFactory func(r io.Reader, w io.Writer, id mavlink.Identity) (mavlink.Codec, error)

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Identity mavlink.Identity
	// ReadTimeout bounds the wait for incoming bytes in each cycle, so queued
	// poses keep flowing while the peer is quiet. Zero waits indefinitely.
	ReadTimeout time.Duration
	// ReseedOnReconnect drops the previous pose on every reconnect so the
	// first delta after an outage does not span the gap.
	ReseedOnReconnect bool
	Session           session.Config
	Engine            EngineConfig
	NewCodec          CodecFactory
	Clock             clock.Clock
}

// Worker is the single bridge loop: it owns the link, the per-connection
// session and the fusion engine, and runs strictly sequentially.
type Worker struct {
	cfg    WorkerConfig
	link   Link
	state  *State
	engine *Engine
	clock  clock.Clock

	connections int
}

// NewWorker wires a worker around lnk and state.
func NewWorker(cfg WorkerConfig, lnk Link, state *State) *Worker {
	if cfg.NewCodec == nil {
		cfg.NewCodec = mavlink.NewCodec
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Session.Clock == nil {
		cfg.Session.Clock = cfg.Clock
	}
	return &Worker{
		cfg:    cfg,
		link:   lnk,
		state:  state,
		engine: NewEngine(cfg.Engine, state),
		clock:  cfg.Clock,
	}
}

// Run connects, handshakes and fuses until ctx is done. Transport failures
// are absorbed by reconnecting; only link.ErrResourceExhausted and codec
// construction failures end it early.
func (w *Worker) Run(ctx context.Context) error {
	// an unbounded read wait must still notice shutdown
	stop := context.AfterFunc(ctx, func() { w.link.Close() })
	defer stop()
	defer w.link.Close()

	log.Printf("bridge: running in %s mode", w.cfg.Engine.Mode)
	for {
		if err := w.link.EnsureConnected(ctx); err != nil {
			if errors.Is(err, link.ErrResourceExhausted) {
				return err
			}
			return ctx.Err()
		}
		if err := w.serve(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.state.setLink(link.Disconnected.String(), session.AwaitingPeer.String(), 0, w.clock.Now())
	}
}

// serve runs cycles for one connection's lifetime.
func (w *Worker) serve(ctx context.Context) error {
	codec, err := w.cfg.NewCodec(w.link, w.link, w.cfg.Identity)
	if err != nil {
		return fmt.Errorf("bridge: codec: %w", err)
	}
	sess := session.New(w.cfg.Session)

	if w.connections > 0 && w.cfg.ReseedOnReconnect {
		w.engine.Reseed()
		log.Println("bridge: previous pose dropped, next sample re-seeds")
	}
	w.connections++
	w.state.beginConnection()

	for w.link.Connected() && ctx.Err() == nil {
		w.cycle(codec, sess)
	}
	return nil
}

// cycle is one pass: wait for and dispatch at most one message, then fuse
// at most one pose sample.
func (w *Worker) cycle(codec mavlink.Codec, sess *session.Session) {
	if err := w.link.SetReadTimeout(w.cfg.ReadTimeout); err != nil {
		return
	}

	msg, err := codec.Read()
	if err == nil && msg != nil {
		w.dispatch(codec, sess, msg)
	}

	if !w.link.Connected() {
		return
	}
	w.state.setLink(link.Connected.String(), sess.Phase().String(), sess.Heartbeats(), w.clock.Now())

	if err := w.engine.Step(sess.OriginEstablished(), codec.Write); err != nil {
		log.Printf("bridge: send position: %v", err)
	}
}

func (w *Worker) dispatch(codec mavlink.Codec, sess *session.Session, msg mavlink.Inbound) {
	switch m := msg.(type) {
	case *mavlink.Heartbeat:
		for _, out := range sess.HandleHeartbeat(m) {
			if err := codec.Write(out); err != nil {
				log.Printf("bridge: send handshake: %v", err)
			}
		}
	case *mavlink.Attitude:
		w.state.SetAttitude(m.Roll, m.Pitch, m.Yaw, w.clock.Now())
	}
}
