/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package connchan

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/nabbar/connpool/sockio"
	"golang.org/x/net/idna"

	liblog "github.com/nabbar/connpool/logger"
)

const defaultRecvBuffer = 16 * 1024

// ConnChan is the scriptable long-lived channel adopting a raw socket. It
// ties a sockio.Sock, the stable-send-buffer writer, WebSocket frame state,
// and an optional callback together behind one name stable for the
// channel's lifetime.
type ConnChan struct {
	m sync.Mutex

	name  string
	table *Table

	sock *sockio.Sock
	send *sender
	ws   *frameState

	binary bool

	recvTimeout time.Duration
	sendTimeout time.Duration

	cb *callback

	closed bool

	log liblog.FuncLog
}

// OpenOptions configures open/connect/listen. Every field is optional; zero
// values fall back to sensible defaults.
type OpenOptions struct {
	TLS         bool
	ServerName  string
	RootCAs     *tls.Config
	Insecure    bool
	DialTimeout time.Duration
	RecvTimeout time.Duration
	SendTimeout time.Duration
}

func newConnChan(sock *sockio.Sock, log liblog.FuncLog) *ConnChan {
	return &ConnChan{
		sock: sock,
		send: newSender(),
		ws:   &frameState{},
		log:  log,
	}
}

func (ch *ConnChan) Name() string { return ch.name }

// SetBinary toggles whether payloads delivered through this channel are
// treated as opaque binary data rather than text, the flag wsencode/read
// consult when no explicit opcode is given.
func (ch *ConnChan) SetBinary(b bool) {
	ch.m.Lock()
	ch.binary = b
	ch.m.Unlock()
}

func (ch *ConnChan) IsBinary() bool {
	ch.m.Lock()
	defer ch.m.Unlock()
	return ch.binary
}

func (ch *ConnChan) logger() liblog.Logger {
	if ch.log == nil {
		return nil
	}
	return ch.log()
}

func (ch *ConnChan) logWarning(message string, err error) {
	l := ch.logger()
	if l == nil {
		return
	}
	e := l.Entry(liblog.WarnLevel, message)
	if err != nil {
		e = e.ErrorAdd(true, err)
	}
	e.FieldAdd("channel", ch.name).Log()
}

// Detach removes sock from an in-flight Conn and wraps it in a freshly
// registered ConnChan. After Detach the HTTP pipeline must not write to or
// close that Sock again - ownership has moved.
func Detach(t *Table, sock *sockio.Sock, log liblog.FuncLog) *ConnChan {
	ch := newConnChan(sock, log)
	t.Register(ch)
	return ch
}

// Open dials rawURL (optionally upgrading to TLS), writes the initial HTTP
// request line and headers, registers a channel, and returns its name.
// SNI is auto-derived from the URL host, normalized through idna, unless
// the host is already a numeric address (where SNI does not apply).
func Open(ctx context.Context, t *Table, rawURL string, headers map[string]string, opts OpenOptions, log liblog.FuncLog) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrorDial.Error(err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" || opts.TLS {
			port = "443"
		} else {
			port = "80"
		}
	}

	sock, err := dial(ctx, host, port, opts, log)
	if err != nil {
		return "", err
	}

	ch := newConnChan(sock, log)
	ch.recvTimeout = opts.RecvTimeout
	ch.sendTimeout = opts.SendTimeout
	name := t.Register(ch)

	if err = ch.writeRequestLine(u, headers); err != nil {
		ch.Close()
		return "", err
	}

	return name, nil
}

// Connect dials host:port directly, without the HTTP request-line framing
// open performs, and returns the registered channel's name.
func Connect(ctx context.Context, t *Table, host, port string, opts OpenOptions, log liblog.FuncLog) (string, error) {
	sock, err := dial(ctx, host, port, opts, log)
	if err != nil {
		return "", err
	}

	ch := newConnChan(sock, log)
	ch.recvTimeout = opts.RecvTimeout
	ch.sendTimeout = opts.SendTimeout
	return t.Register(ch), nil
}

func dial(ctx context.Context, host, port string, opts OpenOptions, log liblog.FuncLog) (*sockio.Sock, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}

	addr := net.JoinHostPort(host, port)

	if !opts.TLS {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, ErrorDial.Error(err)
		}
		return sockio.New(conn, false), nil
	}

	serverName := opts.ServerName
	if serverName == "" && net.ParseIP(host) == nil {
		if normalized, err := idna.Lookup.ToASCII(host); err == nil {
			serverName = normalized
		} else {
			serverName = host
		}
	}

	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: opts.Insecure,
	}
	if opts.RootCAs != nil {
		cfg.RootCAs = opts.RootCAs.RootCAs
	}

	tc := &tls.Dialer{NetDialer: &d, Config: cfg}
	conn, err := tc.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ErrorDial.Error(err)
	}

	return sockio.New(conn, true), nil
}

func (ch *ConnChan) writeRequestLine(u *url.URL, headers map[string]string) error {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	req := "GET " + path + " HTTP/1.1\r\nHost: " + u.Host + "\r\n"
	for k, v := range headers {
		req += k + ": " + v + "\r\n"
	}
	req += "\r\n"

	_, err := ch.Write([]byte(req))
	return err
}

// Listener installs a listen callback: when the OS announces a new
// connection, a fresh channel is created and script is invoked with the
// channel name as its last argument.
type Listener struct {
	ln     net.Listener
	table  *Table
	log    liblog.FuncLog
	cancel context.CancelFunc
}

// Listen binds addr:port and runs script for every accepted connection
// until the returned Listener is closed.
func Listen(t *Table, addr string, port int, script func(name string), log liblog.FuncLog) (*Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return nil, ErrorDial.Error(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{ln: ln, table: t, log: log, cancel: cancel}

	go l.acceptLoop(ctx, script)

	return l, nil
}

func (l *Listener) acceptLoop(ctx context.Context, script func(name string)) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		sock := sockio.New(conn, false)
		ch := newConnChan(sock, l.log)
		name := l.table.Register(ch)

		if script != nil {
			go script(name)
		}
	}
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error {
	l.cancel()
	return l.ln.Close()
}

// Write runs the stable-buffer send algorithm against the channel's socket
// and returns how many bytes were transmitted this call.
func (ch *ConnChan) Write(b []byte) (int, error) {
	ch.m.Lock()
	closed := ch.closed
	timeout := ch.sendTimeout
	ch.m.Unlock()

	if closed {
		return 0, ErrorChannelClosed.Error()
	}

	if timeout > 0 {
		_ = ch.sock.Raw().SetWriteDeadline(time.Now().Add(timeout))
	}

	return ch.send.Write(ch.sock, b)
}

// Read performs one plain read into a 16 KiB buffer bounded by recvTimeout
// (or d when recvTimeout is unset), returning the bytes read and the
// resulting sockio.State.
func (ch *ConnChan) Read(d time.Duration) ([]byte, sockio.State) {
	timeout := ch.recvTimeout
	if timeout == 0 {
		timeout = d
	}

	if timeout > 0 {
		_ = ch.sock.Raw().SetReadDeadline(time.Now().Add(timeout))
	}

	buf := make([]byte, defaultRecvBuffer)
	n, st := ch.sock.Recv(buf)
	return buf[:n], st
}

// ReadFrame performs one Read and folds the bytes through the channel's
// WebSocket frame assembler.
func (ch *ConnChan) ReadFrame(d time.Duration) (Frame, sockio.State) {
	b, st := ch.Read(d)
	if st != sockio.Read {
		return Frame{Status: FrameIncomplete}, st
	}
	return ch.ws.parse(b), st
}

// RegisterCallback replaces any previous callback atomically. It returns an
// error if the underlying socket is no longer registrable (e.g. the
// channel has already been closed).
func (ch *ConnChan) RegisterCallback(script Script, when string, poll, recv, send time.Duration) error {
	ch.m.Lock()
	defer ch.m.Unlock()

	if ch.closed {
		return ErrorNotRegistrable.Error()
	}

	ch.cb = newCallback(ch, script, fmt.Sprintf("callback:%s", ch.name), when, poll, recv, send)
	return nil
}

// suspendCallback unregisters the active callback from the I/O layer
// without freeing the channel: the callback object survives and can be
// re-armed or the channel closed later (callback return code 2).
func (ch *ConnChan) suspendCallback() {
	ch.m.Lock()
	defer ch.m.Unlock()
	if ch.cb != nil {
		ch.cb.cancel()
	}
}

// Dispatch runs the registered callback (if any) for the given condition.
// Callers (the I/O layer) invoke this when they observe an event on the
// channel's Sock.
func (ch *ConnChan) Dispatch(c Condition) {
	ch.m.Lock()
	cb := ch.cb
	ch.m.Unlock()

	if cb == nil {
		return
	}

	cb.fire(c)
}

// Close cancels any registered callback, removes the table entry, and
// closes the Sock. It is safe to call more than once.
func (ch *ConnChan) Close() error {
	ch.m.Lock()
	if ch.closed {
		ch.m.Unlock()
		return nil
	}
	ch.closed = true
	cb := ch.cb
	ch.cb = nil
	ch.m.Unlock()

	if cb != nil {
		// Back-pointer nullification: a dispatch already in flight
		// may still run, but once cancel returns it finds no channel
		// to touch.
		cb.cancel()
	}

	if ch.table != nil {
		ch.table.Remove(ch.name)
	}

	return ch.sock.Close()
}

// Status is the introspection record behind the status command: buffer
// occupancy and callback state without exposing any payload bytes.
type Status struct {
	Name          string
	Peer          string
	Binary        bool
	SendPending   int // bytes queued in the overflow buffer
	SendRejected  int // bytes pinned by an incomplete transport write
	FrameBytes    int // inbound bytes awaiting frame completion
	FragmentBytes int // reassembled fragment payload accumulated so far
	CallbackArmed bool
	RecvTimeout   time.Duration
	SendTimeout   time.Duration
}

func (ch *ConnChan) Status() Status {
	ch.m.Lock()
	defer ch.m.Unlock()

	_, rejected := ch.sock.SendRejected()

	peer := ""
	if a := ch.sock.Peer(); a != nil {
		peer = a.String()
	}

	return Status{
		Name:          ch.name,
		Peer:          peer,
		Binary:        ch.binary,
		SendPending:   ch.send.Pending(),
		SendRejected:  rejected,
		FrameBytes:    len(ch.ws.frameBuffer),
		FragmentBytes: len(ch.ws.fragmentsBuffer),
		CallbackArmed: ch.cb != nil,
		RecvTimeout:   ch.recvTimeout,
		SendTimeout:   ch.sendTimeout,
	}
}

// Exists reports whether the channel is still registered in its table.
func (ch *ConnChan) Exists() bool {
	if ch.table == nil {
		return false
	}
	return ch.table.Exists(ch.name)
}
