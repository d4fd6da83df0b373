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

// Package curves maps configuration strings onto the elliptic curves
// crypto/tls accepts for ECDHE key exchange.
package curves

import (
	"crypto/tls"
)

// Curves is one selectable curve. The zero value, Unknown, is filtered out
// wherever a preference list is assembled.
type Curves uint16

const (
	Unknown Curves = iota

	X25519 = Curves(tls.X25519)
	P256   = Curves(tls.CurveP256)
	P384   = Curves(tls.CurveP384)
	P521   = Curves(tls.CurveP521)
)

// List returns every curve this package accepts.
func List() []Curves {
	return []Curves{X25519, P256, P384, P521}
}

// Parse identifies a curve by the digits embedded in its configuration
// spelling ("X25519", "P-256", "secp384r1"...), or Unknown when none match.
func Parse(s string) Curves {
	switch digits(s) {
	case "25519":
		return X25519
	case "256":
		return P256
	case "384":
		return P384
	case "521":
		return P521
	default:
		return Unknown
	}
}

// digits returns the first run of decimal digits in s.
func digits(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

// ParseInt maps a raw tls.CurveID value onto a Curves.
func ParseInt(d int) Curves {
	switch tls.CurveID(d) {
	case tls.X25519:
		return X25519
	case tls.CurveP256:
		return P256
	case tls.CurveP384:
		return P384
	case tls.CurveP521:
		return P521
	default:
		return Unknown
	}
}

// Check reports whether the raw curve id is one this package accepts.
func Check(curves uint16) bool {
	return ParseInt(int(curves)) != Unknown
}

// Check reports whether v is one of the accepted curves.
func (v Curves) Check() bool {
	return ParseInt(int(v)) != Unknown
}

func (v Curves) String() string {
	switch v {
	case X25519:
		return "X25519"
	case P256:
		return "P256"
	case P384:
		return "P384"
	case P521:
		return "P521"
	default:
		return ""
	}
}

func (v Curves) TLS() tls.CurveID {
	return tls.CurveID(v)
}

func (v Curves) Uint16() uint16 {
	return uint16(v)
}
