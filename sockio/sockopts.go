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

import "net"

// netConnUnwrapper is the unwrap shape crypto/tls.Conn has exposed since Go
// 1.18 (NetConn() net.Conn); a caller's own connection wrapper (e.g. a
// request-line-peeking net.Conn) can implement the same method to stay
// transparent to this unwrap.
type netConnUnwrapper interface {
	NetConn() net.Conn
}

// unwrapTCPConn peels off any wrapper implementing netConnUnwrapper - TLS,
// or a caller's own net.Conn decorator - until it reaches the underlying
// *net.TCPConn, or gives up after a few hops rather than looping forever on
// a pathological wrapper chain.
func unwrapTCPConn(conn net.Conn) (*net.TCPConn, bool) {
	for i := 0; i < 4; i++ {
		if tc, ok := conn.(*net.TCPConn); ok {
			return tc, true
		}

		u, ok := conn.(netConnUnwrapper)
		if !ok {
			return nil, false
		}
		conn = u.NetConn()
	}
	return nil, false
}
