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
	"sync"

	"github.com/nabbar/connpool/sockio"
)

// sender runs the stable-buffer write algorithm on top of a sockio.Sock. The Sock
// itself already owns the pinned retry buffer (sendRejected/
// sendRejectedBase - the transport-level half of the stable-send-buffer
// invariant); sender only owns secondarySendBuffer, the overflow queue that
// keeps later writes in order while a retry is pinned.
type sender struct {
	m         sync.Mutex
	secondary []byte
}

func newSender() *sender {
	return &sender{}
}

// Write runs one write(new_bytes) call against sock and returns the number
// of bytes transmitted in this call - never less than what the transport
// actually drained, and never reordering bytes relative to earlier writes.
func (s *sender) Write(sock *sockio.Sock, newBytes []byte) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	base, rejected := sock.SendRejected()

	if rejected > 0 {
		// Case R: rejected retry. Resubmit the pinned buffer unchanged;
		// new_bytes goes behind it, never ahead of it.
		s.secondary = append(s.secondary, newBytes...)

		n, err := sock.Send(base)
		if err != nil {
			return 0, ErrorSend.Error(err)
		}
		return n, nil
	}

	var submit []byte
	if len(s.secondary) > 0 {
		// Case S (absorb secondary) falling into Case T/U: the combined
		// payload is "the new message" for this call.
		submit = append(append([]byte(nil), s.secondary...), newBytes...)
	} else {
		// Case T and Case U collapse to the same transport call: Go's
		// net.Conn has no vectored write, so a gather of (sendBuffer,
		// new_bytes) and an append-then-resend of sendBuffer produce the
		// same bytes on the wire either way.
		submit = newBytes
	}

	n, err := sock.Send(submit)
	if err != nil {
		return 0, ErrorSend.Error(err)
	}

	// Whatever of submit didn't drain is now tracked by sock's own pin;
	// secondary's contents are fully represented inside submit, so it is
	// safe to clear unconditionally.
	s.secondary = nil

	return n, nil
}

// Pending reports how many bytes are presently queued in the overflow
// buffer, reported as Status.SendPending.
func (s *sender) Pending() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.secondary)
}
