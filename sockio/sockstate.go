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

// Package sockio collapses plain TCP and TLS reads/writes behind one
// recv/send contract and a single sockstate enum, so callers never branch on
// the transport kind.
package sockio

// State is the unified outcome of a Recv call, folding TLS-specific
// retryable conditions (WANT_READ, ZERO_RETURN...) into the same four
// buckets a plain socket reports.
type State uint8

const (
	// Read means more data may arrive; bytes returned (possibly zero) are valid.
	Read State = iota
	// Done means the peer closed the stream cleanly.
	Done
	// Again is transient: the call would have blocked, retry later.
	Again
	// Exception is fatal; the Sock carries the generalized error code.
	Exception
)

func (s State) String() string {
	switch s {
	case Read:
		return "READ"
	case Done:
		return "DONE"
	case Again:
		return "AGAIN"
	case Exception:
		return "EXCEPTION"
	}
	return "UNKNOWN"
}
