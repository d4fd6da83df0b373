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
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

var errEOF = io.EOF

// Namespace tells a generalized error code's reason apart: the same uint
// space is shared by the POSIX errno table and the TLS-library alert/reason
// table, and only the namespace says which table to render it against.
type Namespace uint8

const (
	NamespaceNone Namespace = iota
	NamespacePosix
	NamespaceTLS
)

// Errno is a single generalized error carried on a Sock: every recv/send
// failure is reduced to one of these instead of a raw Go error, so callers
// can render "POSIX <id> <message>" or "OPENSSL <message>" uniformly.
type Errno struct {
	Namespace Namespace
	Code      int
	Message   string
}

func (e Errno) IsSet() bool {
	return e.Namespace != NamespaceNone
}

// String renders the errno the way the channel command surface reports it:
// "POSIX <errnoId> <message>" or "OPENSSL <formatted>".
func (e Errno) String() string {
	switch e.Namespace {
	case NamespacePosix:
		return "POSIX " + itoa(e.Code) + " " + e.Message
	case NamespaceTLS:
		return "OPENSSL " + e.Message
	}
	return ""
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b [20]byte
	p := len(b)
	for i > 0 {
		p--
		b[p] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		p--
		b[p] = '-'
	}
	return string(b[p:])
}

// ClassifyErr folds a Go error coming out of a net.Conn/tls.Conn call into
// a State + Errno pair, reading the underlying reason out of whichever
// error namespace produced it.
func ClassifyErr(err error, duringRead bool) (State, Errno) {
	if err == nil {
		return Read, Errno{}
	}

	if errors.Is(err, net.ErrClosed) {
		return Done, Errno{}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Again, Errno{}
	}

	var tlsErr *tls.RecordHeaderError
	if errors.As(err, &tlsErr) {
		return Exception, Errno{Namespace: NamespaceTLS, Message: tlsErr.Error()}
	}

	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return Again, Errno{}
	}

	var se syscall.Errno
	if errors.As(err, &se) {
		return Exception, Errno{Namespace: NamespacePosix, Code: int(se), Message: se.Error()}
	}

	var perr *os.SyscallError
	if errors.As(err, &perr) {
		if errors.As(perr.Err, &se) {
			return Exception, Errno{Namespace: NamespacePosix, Code: int(se), Message: perr.Error()}
		}
		return Exception, Errno{Namespace: NamespacePosix, Message: perr.Error()}
	}

	if duringRead && isEOF(err) {
		return Done, Errno{}
	}

	return Exception, Errno{Namespace: NamespaceTLS, Message: err.Error()}
}

func isEOF(err error) bool {
	return err.Error() == "EOF" || errors.Is(err, errEOF)
}
