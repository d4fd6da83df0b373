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
	"strconv"
	"strings"
	"sync"
	"time"
)

// Condition is the single character appended as the last script argument,
// identifying which I/O condition fired.
type Condition byte

const (
	CondReadable  Condition = 'r'
	CondWritable  Condition = 'w'
	CondException Condition = 'e'
	CondExit      Condition = 'x'
	CondTimeout   Condition = 't'
)

// Verdict is how a callback script's return value is interpreted.
type Verdict int

const (
	// VerdictClose frees the channel's resources.
	VerdictClose Verdict = iota
	// VerdictKeep leaves the callback armed for the next matching event.
	VerdictKeep
	// VerdictSuspend unregisters from the I/O layer but keeps the channel
	// object alive; it can be re-armed or closed later.
	VerdictSuspend
)

// Script is the callback contract a caller registers against a channel: it
// receives the channel name and the condition that fired, and returns a raw
// numeric string the protocol below interprets.
type Script func(channel string, cond Condition) (string, error)

// mask is the when-mask: a string over {r,w,e,x} the caller passed to
// callback register.
type mask struct {
	readable  bool
	writable  bool
	exception bool
	exit      bool
}

func parseMask(when string) mask {
	var m mask
	for _, c := range when {
		switch c {
		case 'r':
			m.readable = true
		case 'w':
			m.writable = true
		case 'e':
			m.exception = true
		case 'x':
			m.exit = true
		}
	}
	return m
}

func (m mask) matches(c Condition) bool {
	switch c {
	case CondReadable:
		return m.readable
	case CondWritable:
		return m.writable
	case CondException:
		return m.exception
	case CondExit:
		return m.exit
	case CondTimeout:
		// a timeout is always deliverable: it is how a poll with no
		// matching event still gets a chance to re-evaluate.
		return true
	}
	return false
}

// callback holds a reference back to its owning channel (nullable, so an
// in-flight evaluation can be safely cancelled), the script, the event mask,
// and the poll/recv/send timeouts it was registered with.
type callback struct {
	m sync.Mutex

	ch *ConnChan

	script Script
	when   mask

	pollTimeout time.Duration
	recvTimeout time.Duration
	sendTimeout time.Duration

	// firstTokenLen is the length of the registration tag's first
	// whitespace delimited token, used for introspection that must not log binary
	// payloads in full.
	firstTokenLen int
}

func newCallback(ch *ConnChan, script Script, tag string, when string, poll, recv, send time.Duration) *callback {
	tok := tag
	if i := strings.IndexAny(tag, " \t\r\n"); i >= 0 {
		tok = tag[:i]
	}

	return &callback{
		ch:            ch,
		script:        script,
		when:          parseMask(when),
		pollTimeout:   poll,
		recvTimeout:   recv,
		sendTimeout:   send,
		firstTokenLen: len(tok),
	}
}

// cancel nullifies the back-pointer to the channel under the caller's lock
// discipline. Once cleared, fire becomes a no-op: the I/O layer may still
// be mid-dispatch, but it will observe nothing to touch.
func (cb *callback) cancel() {
	cb.m.Lock()
	defer cb.m.Unlock()
	cb.ch = nil
}

// fire evaluates the script for condition c against the channel's name and
// applies the firing protocol's verdict. It returns false if the callback
// had already been cancelled (freed channel, no-op).
func (cb *callback) fire(c Condition) bool {
	cb.m.Lock()
	ch := cb.ch
	script := cb.script
	cb.m.Unlock()

	if ch == nil {
		return false
	}

	if !cb.when.matches(c) {
		return true
	}

	raw, err := script(ch.Name(), c)

	verdict, ok := interpretVerdict(raw, err, ch)

	switch verdict {
	case VerdictClose:
		// A self-closing script may have already freed ch (and hence
		// cb) by the time we get here; Close is idempotent and safe
		// to call twice.
		ch.Close()
	case VerdictSuspend:
		ch.suspendCallback()
	case VerdictKeep:
		// nothing to do: stays armed.
	}

	return ok
}

// interpretVerdict applies spec's callback return-value protocol: integer
// parsing only. A script error, or a return value that is not a plain
// integer, is logged as a warning and closes the channel rather than being
// silently treated as success (open question (a)).
func interpretVerdict(raw string, err error, ch *ConnChan) (Verdict, bool) {
	if err != nil {
		ch.logWarning("callback script error", err)
		return VerdictClose, true
	}

	n, perr := strconv.Atoi(strings.TrimSpace(raw))
	if perr != nil {
		ch.logWarning("callback returned non-numeric value, closing", nil)
		return VerdictClose, true
	}

	switch n {
	case 0:
		return VerdictClose, true
	case 1:
		return VerdictKeep, true
	case 2:
		return VerdictSuspend, true
	default:
		ch.logWarning("callback returned unexpected code, closing", nil)
		return VerdictClose, true
	}
}
