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

// Package auth maps configuration keywords onto tls.ClientAuthType.
package auth

import (
	"crypto/tls"
	"strings"
)

// ClientAuth is the client-authentication policy of a TLS listener,
// parseable from the loose keywords a configuration file carries.
type ClientAuth tls.ClientAuthType

const (
	NoClientCert               = ClientAuth(tls.NoClientCert)
	RequestClientCert          = ClientAuth(tls.RequestClientCert)
	RequireAnyClientCert       = ClientAuth(tls.RequireAnyClientCert)
	VerifyClientCertIfGiven    = ClientAuth(tls.VerifyClientCertIfGiven)
	RequireAndVerifyClientCert = ClientAuth(tls.RequireAndVerifyClientCert)
)

// Parse maps a keyword ("strict", "require", "verify", "request", "none",
// possibly quoted or combined) onto a policy, defaulting to NoClientCert.
func Parse(s string) ClientAuth {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "\"", "")
	s = strings.ReplaceAll(s, "'", "")

	switch {
	case strings.Contains(s, "strict"):
		return RequireAndVerifyClientCert
	case strings.Contains(s, "require") && strings.Contains(s, "verify"):
		return RequireAndVerifyClientCert
	case strings.Contains(s, "verify"):
		return VerifyClientCertIfGiven
	case strings.Contains(s, "require"):
		return RequireAnyClientCert
	case strings.Contains(s, "request"):
		return RequestClientCert
	default:
		return NoClientCert
	}
}

// ParseInt maps a raw tls.ClientAuthType value, defaulting to NoClientCert
// on anything out of range.
func ParseInt(d int) ClientAuth {
	switch tls.ClientAuthType(d) {
	case tls.RequestClientCert, tls.RequireAnyClientCert, tls.VerifyClientCertIfGiven, tls.RequireAndVerifyClientCert:
		return ClientAuth(d)
	default:
		return NoClientCert
	}
}

func (a ClientAuth) String() string {
	switch a {
	case RequireAndVerifyClientCert:
		return "strict require verify"
	case VerifyClientCertIfGiven:
		return "verify"
	case RequireAnyClientCert:
		return "require"
	case RequestClientCert:
		return "request"
	default:
		return "none"
	}
}

func (a ClientAuth) TLS() tls.ClientAuthType {
	return tls.ClientAuthType(a)
}
