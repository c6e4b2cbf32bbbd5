// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// Dialer abstracts the [*net.Dialer] behavior, so [*ConnectFunc] can be
// unit tested against a fake and swapped for an alternative dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NewConnectFunc returns a [*ConnectFunc] reading its dialer and classifier
// from cfg. network must be "tcp" or "udp".
//
// This, [NewCancelWatchFunc], and [NewObserveConnFunc] are a minimal leaf
// dialer: enough to demonstrate [BindingFactory] acquiring a real
// connection in cmd/svcresdemo. A production endpoint factory is free to
// build a richer pipeline (TLS, HTTP, connection pooling); nothing in this
// package depends on these three specifically.
func NewConnectFunc(cfg *Config, network string, logger SLogger) *ConnectFunc {
	return &ConnectFunc{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Network:       network,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnectFunc dials a [netip.AddrPort] over a configured network, logging
// connectStart/connectDone. Fields are safe to modify before first use,
// not concurrently with [ConnectFunc.Call].
type ConnectFunc struct {
	Dialer        Dialer
	ErrClassifier ErrClassifier
	Logger        SLogger
	Network       string
	TimeNow       func() time.Time
}

var _ Func[netip.AddrPort, net.Conn] = &ConnectFunc{}

// Call implements [Func].
func (op *ConnectFunc) Call(ctx context.Context, address netip.AddrPort) (net.Conn, error) {
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.Logger.Info("connectStart",
		slog.Time("deadline", deadline), slog.String("protocol", op.Network),
		slog.String("remoteAddr", address.String()), slog.Time("t", t0))
	conn, err := op.Dialer.DialContext(ctx, op.Network, address.String())
	op.Logger.Info("connectDone",
		slog.Time("deadline", deadline), slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)), slog.String("protocol", op.Network),
		slog.String("remoteAddr", address.String()), slog.Time("t0", t0), slog.Time("t", op.TimeNow()))
	return conn, err
}

// NewCancelWatchFunc returns a new [*CancelWatchFunc].
func NewCancelWatchFunc() *CancelWatchFunc {
	return &CancelWatchFunc{}
}

// CancelWatchFunc closes its connection when the context passed to Call is
// done, giving responsive cleanup on external cancellation (e.g. SIGINT via
// [signal.NotifyContext]) instead of waiting on a per-operation timeout.
type CancelWatchFunc struct{}

var _ Func[net.Conn, net.Conn] = &CancelWatchFunc{}

// Call registers a watcher via [context.AfterFunc] that closes conn when
// ctx is done. The returned [net.Conn] wraps conn: closing it unregisters
// the watcher and closes conn.
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return &cancelWatchedConn{Conn: conn, stop: stop}, nil
}

type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the context watcher, then closes the underlying conn.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// NewObserveConnFunc returns a [*ObserveConnFunc] reading its classifier
// and clock from cfg.
func NewObserveConnFunc(cfg *Config, logger SLogger) *ObserveConnFunc {
	return &ObserveConnFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// ObserveConnFunc wraps a [net.Conn] to log I/O events (reads, writes,
// deadline changes) at [slog.LevelDebug], and close at
// [slog.LevelInfo]. Pair with [CancelWatchFunc] for timeout enforcement:
// this primitive only observes, it does not itself bound blocking I/O.
type ObserveConnFunc struct {
	ErrClassifier ErrClassifier
	Logger        SLogger
	TimeNow       func() time.Time
}

var _ Func[net.Conn, net.Conn] = &ObserveConnFunc{}

// Call implements [Func].
func (op *ObserveConnFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	return &observedConn{
		conn:     conn,
		laddr:    safeconn.LocalAddr(conn),
		op:       op,
		protocol: safeconn.Network(conn),
		raddr:    safeconn.RemoteAddr(conn),
	}, nil
}

type observedConn struct {
	closeonce sync.Once
	conn      net.Conn
	laddr     string
	op        *ObserveConnFunc
	protocol  string
	raddr     string
}

// Close implements [net.Conn]. Subsequent calls return [net.ErrClosed].
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.op.TimeNow()
		c.op.Logger.Info("closeStart", slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.Time("t", t0))
		err = c.conn.Close()
		c.op.Logger.Info("closeDone", slog.Any("err", err),
			slog.String("errClass", c.op.ErrClassifier.Classify(err)), slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr),
			slog.Time("t0", t0), slog.Time("t", c.op.TimeNow()))
	})
	return
}

// LocalAddr implements [net.Conn].
func (c *observedConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr implements [net.Conn].
func (c *observedConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Read implements [net.Conn].
func (c *observedConn) Read(buf []byte) (int, error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Debug("readStart", slog.Int("ioBufferSize", len(buf)), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.Time("t", t0))
	count, err := c.conn.Read(buf)
	c.op.Logger.Debug("readDone", slog.Int("ioBytesCount", count), slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0), slog.Time("t", c.op.TimeNow()))
	return count, err
}

// Write implements [net.Conn].
func (c *observedConn) Write(data []byte) (int, error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Debug("writeStart", slog.Int("ioBufferSize", len(data)), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.Time("t", t0))
	count, err := c.conn.Write(data)
	c.op.Logger.Debug("writeDone", slog.Int("ioBytesCount", count), slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0), slog.Time("t", c.op.TimeNow()))
	return count, err
}

// SetDeadline implements [net.Conn].
func (c *observedConn) SetDeadline(t time.Time) error {
	c.op.Logger.Debug("setDeadline", slog.Time("deadline", t), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.Time("t", c.op.TimeNow()))
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *observedConn) SetReadDeadline(t time.Time) error {
	c.op.Logger.Debug("setReadDeadline", slog.Time("deadline", t), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.Time("t", c.op.TimeNow()))
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *observedConn) SetWriteDeadline(t time.Time) error {
	c.op.Logger.Debug("setWriteDeadline", slog.Time("deadline", t), slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol), slog.String("remoteAddr", c.raddr), slog.Time("t", c.op.TimeNow()))
	return c.conn.SetWriteDeadline(t)
}
