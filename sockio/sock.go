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

package sockio

import (
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/nabbar/connpool/sls"
)

// Sock wraps a single accepted or dialed transport (plain TCP or TLS) behind
// the uniform Recv/Send contract. Ownership is exclusive at any instant: a
// Conn, a ConnChan, or nobody (closed) - never two at once.
type Sock struct {
	m sync.Mutex

	conn net.Conn
	tls  bool

	peer   net.Addr
	client net.Addr

	acceptTime time.Time
	flags      Flags

	recvErrno Errno
	sendErrno Errno

	// sendRejected/sendRejectedBase hold the OpenSSL retransmit invariant:
	// when a TLS write blocks mid-record, the next Send must re-present
	// exactly this slice - same base, same length - until it drains.
	sendRejected     int
	sendRejectedBase []byte

	sls *sls.Store
}

// New wraps conn (already accepted or dialed) as a Sock. isTLS records
// whether the stable-send-buffer requirement applies. The
// underlying TCP connection is tuned (TCP_NODELAY, keepalive) before it is
// wrapped, once, here - not per Send/Recv call.
func New(conn net.Conn, isTLS bool) *Sock {
	tuneTCP(conn)

	return &Sock{
		conn:       conn,
		tls:        isTLS,
		peer:       conn.RemoteAddr(),
		client:     conn.RemoteAddr(),
		acceptTime: time.Now(),
		flags:      NewFlags(),
		sls:        sls.New(),
	}
}

func (s *Sock) IsTLS() bool { return s.tls }

func (s *Sock) Peer() net.Addr { return s.peer }

func (s *Sock) SetClient(addr net.Addr) { s.client = addr }

func (s *Sock) Client() net.Addr { return s.client }

func (s *Sock) AcceptTime() time.Time { return s.acceptTime }

func (s *Sock) Flags() Flags { return s.flags }

func (s *Sock) SetFlags(f Flags) { s.flags = f }

func (s *Sock) SLS() *sls.Store { return s.sls }

// RequireStableSendBuffer reports whether the transport needs the
// stable-buffer send discipline instead of plain gather-writes.
func (s *Sock) RequireStableSendBuffer() bool { return s.tls }

func (s *Sock) ConnectionState() (tls.ConnectionState, bool) {
	if tc, ok := s.conn.(*tls.Conn); ok {
		return tc.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

// SendRejected returns the pinned (base, length) pair from the last blocked
// TLS write, or (nil, 0) if nothing is pinned.
func (s *Sock) SendRejected() ([]byte, int) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.sendRejectedBase, s.sendRejected
}

func (s *Sock) setSendRejected(base []byte, n int) {
	s.m.Lock()
	defer s.m.Unlock()
	s.sendRejectedBase = base
	s.sendRejected = n
}

func (s *Sock) clearSendRejected() {
	s.m.Lock()
	defer s.m.Unlock()
	s.sendRejectedBase = nil
	s.sendRejected = 0
}

func (s *Sock) RecvErrno() Errno { return s.recvErrno }
func (s *Sock) SendErrno() Errno { return s.sendErrno }

// Recv reads into buf from a deadline-bounded socket. It never sleeps: a
// zero deadline is used to probe non-blocking "would it read now" semantics,
// and any positive timeout is applied to the underlying connection deadline
// by the caller before invoking Recv.
func (s *Sock) Recv(buf []byte) (int, State) {
	n, err := s.conn.Read(buf)

	if n > 0 && err == nil {
		return n, Read
	}

	st, en := ClassifyErr(err, true)
	if st == Exception {
		s.recvErrno = en
	}

	if n > 0 && st == Again {
		// partial data arrived before the peer/transport signalled "would block"
		return n, Read
	}

	return n, st
}

// Send is the send algorithm's transport-facing half: it submits exactly
// one contiguous buffer (the channel layer decides what to coalesce into
// it) and reports how much actually drained, pinning the remainder when
// the write blocks mid-record.
func (s *Sock) Send(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := s.conn.Write(buf)

	if err == nil {
		s.clearSendRejected()
		return n, nil
	}

	st, en := ClassifyErr(err, false)

	if st == Again {
		// OpenSSL WANT_WRITE equivalent: pin what remains unsent.
		if n < len(buf) {
			s.setSendRejected(buf[n:], len(buf)-n)
		}
		return n, nil
	}

	s.sendErrno = en
	return n, err
}

// Close releases the transport and fires the socket-local storage cleanup
// chain; the SLS values live exactly as long as the Sock does.
func (s *Sock) Close() error {
	s.sls.Close()
	return s.conn.Close()
}

func (s *Sock) Raw() net.Conn { return s.conn }
