/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpserver

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nabbar/connpool/connpool"
	liberr "github.com/nabbar/connpool/errors"
	liblog "github.com/nabbar/connpool/logger"
	"github.com/nabbar/connpool/runner/startstop"
	"github.com/nabbar/connpool/sockio"
	"github.com/nabbar/connpool/tlsregistry"
)

// Driver binds one listener and runs its accept loop. A Driver never
// multiplexes requests itself: every accepted connection is routed straight
// into a connpool.Scheduler, which is where request processing actually
// happens.
//
// Start/Stop/IsRunning are delegated to a startstop.Runner so the driver
// shares the same lifecycle contract as every other long-running component
// in this module instead of hand-rolling its own running flag.
type Driver struct {
	cfg Config
	reg *tlsregistry.Registry
	sch *connpool.Scheduler
	log liblog.FuncLog

	run startstop.Runner

	mu     sync.Mutex
	raw    *net.TCPListener
	accept net.Listener
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDriver validates cfg and builds a Driver. reg may be nil if cfg.TLSSection
// is empty (a plaintext driver has no use for a TLS registry).
func NewDriver(cfg Config, reg *tlsregistry.Registry, sch *connpool.Scheduler, log liblog.FuncLog) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, ErrorConfigValidate.Error(nil)
	}

	d := &Driver{cfg: cfg, reg: reg, sch: sch, log: log}
	d.run = startstop.New(d.onStart, d.onStop, log)
	return d, nil
}

func (d *Driver) logger() liblog.Logger {
	if d.log == nil {
		return liblog.New(context.Background())
	} else if l := d.log(); l != nil {
		return l
	}
	return liblog.New(context.Background())
}

func (d *Driver) Name() string { return d.cfg.Name }

// Addr returns the listener's bound address, useful when cfg.Bind asked for
// an ephemeral port ("host:0"). Returns nil before Start or after Stop.
func (d *Driver) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accept == nil {
		return nil
	}
	return d.accept.Addr()
}

func (d *Driver) IsRunning() bool { return d.run.IsRunning() }

// Uptime reports how long the driver has been accepting connections, or 0
// when stopped.
func (d *Driver) Uptime() time.Duration { return d.run.Uptime() }

// PortInUse dials the configured bind address with a short timeout and
// reports ErrorPortInUse if something answers, a pre-flight check before
// binding.
func (d *Driver) PortInUse() liberr.Error {
	dia := net.Dialer{}

	ctx, cnl := context.WithTimeout(context.Background(), 2*time.Second)
	defer cnl()

	con, err := dia.DialContext(ctx, "tcp", d.cfg.Bind)
	if err != nil {
		return nil
	}
	_ = con.Close()

	return ErrorPortInUse.Error(nil)
}

func (d *Driver) tlsConfig() (*tls.Config, error) {
	if d.cfg.TLSSection == "" {
		return nil, nil
	}
	if d.reg == nil {
		return nil, ErrorTLSSection.Error(nil)
	}

	sec, ok := d.reg.Get(d.cfg.TLSSection)
	if !ok {
		return nil, ErrorTLSSection.Error(nil)
	}

	return sec.TLSConfig(), nil
}

// Start binds the listener and launches the accept loop in the background.
// It returns once the listener is bound, not once the loop has exited.
func (d *Driver) Start() error {
	if d.run.IsRunning() {
		return ErrorAlreadyRunning.Error(nil)
	}
	return d.run.Start(context.Background())
}

// onStart is the startstop.FuncStart backing Start: it binds the listener,
// wraps it in TLS when configured, and launches the accept loop.
func (d *Driver) onStart(_ context.Context) error {
	if e := d.PortInUse(); e != nil {
		return e
	}

	ln, err := net.Listen("tcp", d.cfg.Bind)
	if err != nil {
		return ErrorListenerBind.Error(err)
	}

	tcfg, err := d.tlsConfig()
	if err != nil {
		_ = ln.Close()
		return err
	}

	raw, _ := ln.(*net.TCPListener)
	accept := ln
	if tcfg != nil {
		accept = tls.NewListener(ln, tcfg)
	}

	d.mu.Lock()
	d.raw = raw
	d.accept = accept
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	d.logger().Entry(liblog.InfoLevel, "driver accept loop starting").
		FieldAdd("name", d.cfg.Name).
		FieldAdd("bind", d.cfg.Bind).
		FieldAdd("tls", tcfg != nil).Log()

	go d.acceptLoop()
	return nil
}

func (d *Driver) acceptTimeout() time.Duration {
	if d.cfg.AcceptTimeout > 0 {
		return d.cfg.AcceptTimeout
	}
	return time.Second
}

func (d *Driver) acceptLoop() {
	defer close(d.doneCh)

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		if d.raw != nil {
			_ = d.raw.SetDeadline(time.Now().Add(d.acceptTimeout()))
		}

		conn, err := d.accept.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-d.stopCh:
				return
			default:
			}
			d.logger().Entry(liblog.WarnLevel, "accept failed").
				FieldAdd("name", d.cfg.Name).
				ErrorAdd(true, ErrorListenerBind.Error(err)).Log()
			continue
		}

		go d.handleAccepted(conn)
	}
}

// handleAccepted reads the new connection's request line, routes it, and
// hands it to the scheduler - the producer side of the multi-producer/
// multi-consumer queue.
func (d *Driver) handleAccepted(conn net.Conn) {
	method, url, headers, peeked, err := readRequestLine(conn)
	if err != nil {
		_ = conn.Close()
		d.logger().Entry(liblog.DebugLevel, "dropping connection, no parseable request line").
			FieldAdd("name", d.cfg.Name).ErrorAdd(true, err).Log()
		return
	}

	_, isTLS := conn.(*tls.Conn)
	sock := sockio.New(peeked, isTLS)

	if err := d.sch.Enqueue(sock, method, url, headers); err != nil {
		d.logger().Entry(liblog.WarnLevel, "scheduler rejected connection").
			FieldAdd("name", d.cfg.Name).
			FieldAdd("method", method).
			FieldAdd("url", url).
			ErrorAdd(true, err).Log()
		_ = sock.Close()
	}
}

// Stop closes the listener, waits for the accept loop to return, then
// drains the scheduler's pools within cfg.ShutdownTimeout.
func (d *Driver) Stop(ctx context.Context) error {
	if !d.run.IsRunning() {
		return ErrorNotRunning.Error(nil)
	}
	return d.run.Stop(ctx)
}

// onStop is the startstop.FuncStop backing Stop: it halts the accept loop
// and drains the scheduler's pools within cfg.ShutdownTimeout.
func (d *Driver) onStop(ctx context.Context) error {
	d.mu.Lock()
	stopCh := d.stopCh
	doneCh := d.doneCh
	accept := d.accept
	d.mu.Unlock()

	close(stopCh)
	_ = accept.Close()

	select {
	case <-doneCh:
	case <-ctx.Done():
	}

	d.logger().Entry(liblog.InfoLevel, "driver accept loop stopped, draining scheduler").
		FieldAdd("name", d.cfg.Name).Log()

	d.sch.Shutdown()

	timeout := d.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if err := d.sch.Wait(timeout); err != nil {
		d.logger().Entry(liblog.WarnLevel, "scheduler did not drain before timeout").
			FieldAdd("name", d.cfg.Name).ErrorAdd(true, err).Log()
		return err
	}

	return nil
}

// WaitNotify blocks until SIGINT/SIGTERM/SIGQUIT or ctx is done, then stops
// the driver.
func (d *Driver) WaitNotify(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	_ = d.Stop(context.Background())
}
