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

// Package tlsversion maps configuration strings onto crypto/tls protocol
// version constants.
package tlsversion

import (
	"crypto/tls"
	"strings"
)

// Version is a TLS protocol version selectable from configuration. The
// zero value, VersionUnknown, never constrains a handshake.
type Version int

const (
	VersionUnknown Version = iota

	VersionTLS10 = Version(tls.VersionTLS10)
	VersionTLS11 = Version(tls.VersionTLS11)
	VersionTLS12 = Version(tls.VersionTLS12)
	VersionTLS13 = Version(tls.VersionTLS13)
)

// Parse maps loose configuration spellings ("1.2", "tls1.2", "TLS 1.3",
// "tls_1_3"...) onto a Version, or VersionUnknown when nothing matches.
func Parse(s string) Version {
	s = strings.ToLower(s)
	for _, cut := range []string{"\"", "'", "tls", "ssl", ".", "-", "_", " "} {
		s = strings.ReplaceAll(s, cut, "")
	}
	s = strings.TrimSpace(s)

	switch s {
	case "1", "10":
		return VersionTLS10
	case "11":
		return VersionTLS11
	case "12":
		return VersionTLS12
	case "13":
		return VersionTLS13
	default:
		return VersionUnknown
	}
}

// ParseInt maps a raw tls.VersionTLS* value onto a Version.
func ParseInt(d int) Version {
	switch d {
	case tls.VersionTLS10, tls.VersionTLS11, tls.VersionTLS12, tls.VersionTLS13:
		return Version(d)
	default:
		return VersionUnknown
	}
}

func (v Version) String() string {
	switch v {
	case VersionTLS10:
		return "TLS 1.0"
	case VersionTLS11:
		return "TLS 1.1"
	case VersionTLS12:
		return "TLS 1.2"
	case VersionTLS13:
		return "TLS 1.3"
	default:
		return ""
	}
}

// TLS returns the value crypto/tls expects in Config.MinVersion/MaxVersion,
// 0 for VersionUnknown.
func (v Version) TLS() uint16 {
	switch v {
	case VersionTLS10, VersionTLS11, VersionTLS12, VersionTLS13:
		return uint16(v)
	default:
		return 0
	}
}

func (v Version) Uint16() uint16 {
	return v.TLS()
}
