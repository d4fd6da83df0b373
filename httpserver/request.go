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
	"bufio"
	"net"
	"net/http"
	"time"
)

// requestLineTimeout bounds how long the driver waits for a freshly accepted
// connection to produce a parseable request line before giving up on it.
const requestLineTimeout = 5 * time.Second

// peekedConn replays whatever bufio.Reader buffered while reading the
// request line ahead of anything still unread on the wire, so the
// sockio.Sock built on top of it sees byte-for-byte what a raw accept would
// have produced (request body, websocket frames, or TLS renegotiation
// included). Body and response framing belong to the handler; only the
// request line and headers are consumed here.
type peekedConn struct {
	net.Conn
	br *bufio.Reader
}

func (p *peekedConn) Read(b []byte) (int, error) { return p.br.Read(b) }

// NetConn exposes the connection this peekedConn was built on, the same
// unwrap shape crypto/tls.Conn offers, so sockio's socket-option tuning can
// reach past the request-line buffering (and, beneath that, past any TLS
// wrapping) down to the raw *net.TCPConn.
func (p *peekedConn) NetConn() net.Conn { return p.Conn }

// readRequestLine reads just enough of conn to learn the method, the
// request-URI and the headers a RouteFunc might need, without consuming
// anything beyond the blank line that ends the header block.
func readRequestLine(conn net.Conn) (method, url string, headers http.Header, peeked net.Conn, err error) {
	_ = conn.SetReadDeadline(time.Now().Add(requestLineTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	br := bufio.NewReader(conn)
	req, e := http.ReadRequest(br)
	if e != nil {
		return "", "", nil, nil, e
	}

	return req.Method, req.URL.String(), req.Header, &peekedConn{Conn: conn, br: br}, nil
}
