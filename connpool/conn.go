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

package connpool

import (
	"net/http"
	"time"

	"github.com/nabbar/connpool/sockio"
)

// Conn is a request-processing slot. It migrates free-list -> wait-queue ->
// worker-slot -> free-list for its whole life; next links whichever
// singly-linked list currently owns it, never two at once.
type Conn struct {
	next *Conn

	id   uint64
	pool *Pool
	sock *sockio.Sock

	method      string
	url         string
	requestLine string

	flags sockio.Flags

	headers    http.Header
	outHeaders http.Header
	files      map[string]string

	authUser string
	authPass string

	outputEncoding string
	urlEncoding    string
	compress       int

	queueArrivalTime time.Time
	acceptTime       time.Time
	dequeueTime      time.Time
	filterDoneTime   time.Time
}

func newConn(id uint64) *Conn {
	return &Conn{
		id:      id,
		headers: make(http.Header),
		flags:   sockio.NewFlags(),
	}
}

func (c *Conn) ID() uint64 { return c.id }

func (c *Conn) Pool() *Pool { return c.pool }

func (c *Conn) Sock() *sockio.Sock { return c.sock }

// SockDetached reports whether the Sock has already left this Conn (via
// TakeSock). A filter phase that observes this downgrades its result to
// FILTER_RETURN so no later phase attempts output.
func (c *Conn) SockDetached() bool { return c.sock == nil }

// TakeSock clears the Conn's reference to its Sock without closing it,
// the half of *detach* that belongs to the Conn side: the HTTP pipeline
// must not write to or close a Sock after this returns.
func (c *Conn) TakeSock() *sockio.Sock {
	s := c.sock
	c.sock = nil
	c.flags = c.flags.Clone().Set(sockio.FlagClosed)
	return s
}

func (c *Conn) Method() string { return c.method }
func (c *Conn) URL() string    { return c.url }

func (c *Conn) Flags() sockio.Flags { return c.flags }

func (c *Conn) Headers() http.Header    { return c.headers }
func (c *Conn) OutHeaders() http.Header { return c.outHeaders }

func (c *Conn) SetOutHeaders(h http.Header) { c.outHeaders = h }

func (c *Conn) Files() map[string]string { return c.files }

func (c *Conn) SetAuth(user, pass string) { c.authUser, c.authPass = user, pass }
func (c *Conn) Auth() (string, string)    { return c.authUser, c.authPass }

func (c *Conn) SetOutputEncoding(v string) { c.outputEncoding = v }
func (c *Conn) OutputEncoding() string     { return c.outputEncoding }

func (c *Conn) SetURLEncoding(v string) { c.urlEncoding = v }
func (c *Conn) URLEncoding() string     { return c.urlEncoding }

func (c *Conn) SetCompress(v int) { c.compress = v }
func (c *Conn) Compress() int     { return c.compress }

func (c *Conn) QueueArrivalTime() time.Time { return c.queueArrivalTime }
func (c *Conn) AcceptTime() time.Time       { return c.acceptTime }
func (c *Conn) DequeueTime() time.Time      { return c.dequeueTime }
func (c *Conn) FilterDoneTime() time.Time   { return c.filterDoneTime }

func (c *Conn) SetDequeueTime(t time.Time)    { c.dequeueTime = t }
func (c *Conn) SetFilterDoneTime(t time.Time) { c.filterDoneTime = t }

// ConnInfo is one Conn's introspection summary, the row shape behind the
// active/queued/all command surface. It carries copies only: the Conn slot
// itself keeps cycling while callers hold the snapshot.
type ConnInfo struct {
	ID       uint64
	Method   string
	URL      string
	Peer     string
	QueuedAt time.Time
	State    string
}

func (c *Conn) info(state string) ConnInfo {
	peer := ""
	if c.sock != nil {
		if a := c.sock.Peer(); a != nil {
			peer = a.String()
		}
	}

	return ConnInfo{
		ID:       c.id,
		Method:   c.method,
		URL:      c.url,
		Peer:     peer,
		QueuedAt: c.queueArrivalTime,
		State:    state,
	}
}

// fillFromSock copies the accepted Sock's request-line metadata and arrival
// time into a freed Conn slot as it leaves the free-list. The Sock's own
// flags are mirrored, then zeroed on the Sock: ownership of the bits moves
// to the Conn for the lifetime of the request.
func (c *Conn) fillFromSock(sock *sockio.Sock, method, url string) {
	c.sock = sock
	c.method = method
	c.url = url
	c.queueArrivalTime = time.Now()
	c.acceptTime = sock.AcceptTime()
	c.flags = sock.Flags().Clone()
	sock.SetFlags(sockio.NewFlags())
}

// reset clears request-scoped fields while keeping the headers map's
// backing storage - reuse instead of reallocation between requests on the
// same slot.
func (c *Conn) reset() {
	for k := range c.headers {
		delete(c.headers, k)
	}

	c.outHeaders = nil
	c.files = nil
	c.authUser = ""
	c.authPass = ""
	c.sock = nil
	c.method = ""
	c.url = ""
	c.requestLine = ""
	c.outputEncoding = ""
	c.urlEncoding = ""
	c.compress = 0
	c.queueArrivalTime = time.Time{}
	c.acceptTime = time.Time{}
	c.dequeueTime = time.Time{}
	c.filterDoneTime = time.Time{}
	c.flags = sockio.NewFlags()
	c.pool = nil
}
