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

package tlsregistry

import liberr "github.com/nabbar/connpool/errors"

const (
	ErrorSectionExists liberr.CodeError = iota + liberr.MinPkgTLSRegistry
	ErrorSectionMissing
	ErrorBuildContext
	ErrorPassCallback
	ErrorOCSPFetch
	ErrorALPNProtocol
)

func init() {
	liberr.RegisterIdFctMessage(ErrorSectionExists, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorSectionExists:
		return "a TLS section with this name is already registered"
	case ErrorSectionMissing:
		return "no TLS section registered under this name"
	case ErrorBuildContext:
		return "cannot build TLS context from section configuration"
	case ErrorPassCallback:
		return "no passphrase resolved for encrypted private key"
	case ErrorOCSPFetch:
		return "cannot fetch OCSP response from issuer AIA"
	case ErrorALPNProtocol:
		return "ALPN protocol token is empty or exceeds 255 bytes"
	}
	return liberr.UnknownMessage
}
