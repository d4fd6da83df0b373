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

package reqrunner

import "fmt"

// canonicalResponse builds a minimal fixed HTTP response for the boundary
// outcomes the runner emits on its own behalf (FORBIDDEN, UNAUTHORIZED, and
// the internal-error fallback). Request parsing and response writing proper
// belong to the layers around the runner; this is only the fallback
// produced when no handler output has been written. body has already been
// run through compressBody, and encoding is the Content-Encoding that
// produced it ("" for identity).
func canonicalResponse(status int, reason, encoding string, body []byte) []byte {
	enc := ""
	if encoding != "" {
		enc = fmt.Sprintf("Content-Encoding: %s\r\n", encoding)
	}
	return []byte(fmt.Sprintf(
		"HTTP/1.1 %d %s\r\nContent-Length: %d\r\n%sConnection: close\r\n\r\n%s",
		status, reason, len(body), enc, body,
	))
}

const (
	bodyForbidden    = "forbidden\n"
	bodyUnauthorized = "unauthorized\n"
	bodyInternal     = "internal error\n"
)
