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

// Package cipher maps configuration strings onto the modern (AEAD) cipher
// suites crypto/tls accepts for TLS 1.2 and 1.3.
package cipher

import (
	"crypto/tls"
	"slices"
	"strings"
)

// Cipher is one selectable cipher suite. The zero value, Unknown, is
// filtered out wherever a suite list is assembled.
type Cipher uint16

const (
	Unknown Cipher = 0

	TLS_RSA_WITH_AES_128_GCM_SHA256               = Cipher(tls.TLS_RSA_WITH_AES_128_GCM_SHA256)
	TLS_RSA_WITH_AES_256_GCM_SHA384               = Cipher(tls.TLS_RSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256         = Cipher(tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256)
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256       = Cipher(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)
	TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384         = Cipher(tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384       = Cipher(tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256   = Cipher(tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256)
	TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 = Cipher(tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256)
	TLS_AES_128_GCM_SHA256                        = Cipher(tls.TLS_AES_128_GCM_SHA256)
	TLS_AES_256_GCM_SHA384                        = Cipher(tls.TLS_AES_256_GCM_SHA384)
	TLS_CHACHA20_POLY1305_SHA256                  = Cipher(tls.TLS_CHACHA20_POLY1305_SHA256)
)

// List returns every suite this package accepts.
func List() []Cipher {
	return []Cipher{
		TLS_RSA_WITH_AES_128_GCM_SHA256,
		TLS_RSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		TLS_AES_128_GCM_SHA256,
		TLS_AES_256_GCM_SHA384,
		TLS_CHACHA20_POLY1305_SHA256,
	}
}

// Parse maps a loose configuration spelling (any separator and case, with
// or without the TLS_/WITH_ noise words, the SHA suffix optional) onto a
// suite, or Unknown when nothing matches.
func Parse(s string) Cipher {
	s = strings.ToLower(s)
	for _, cut := range []string{"\"", "'", "tls", "with"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	for _, sep := range []string{".", "-", " "} {
		s = strings.ReplaceAll(s, sep, "_")
	}

	toks := tokens(strings.Split(s, "_"))

	for _, c := range List() {
		if toks.equal(tokens(c.tokens())) {
			return c
		}
		// the SHA suffix is redundant once the AES/CHACHA20 half is known
		if toks.equal(tokens(c.tokens()).drop("sha256", "sha384")) {
			return c
		}
	}

	return Unknown
}

// ParseInt maps a raw crypto/tls suite id onto a Cipher, Unknown when the
// id is not one this package accepts.
func ParseInt(d int) Cipher {
	for _, c := range List() {
		if int(c) == d {
			return c
		}
	}
	return Unknown
}

// Check reports whether the raw suite id is one this package accepts.
func Check(cipher uint16) bool {
	return ParseInt(int(cipher)) != Unknown
}

// Check reports whether v is one of the accepted suites.
func (v Cipher) Check() bool {
	return ParseInt(int(v)) != Unknown
}

func (v Cipher) String() string {
	return strings.Join(v.tokens(), "_")
}

// tokens is the canonical lowercase word list naming the suite; Parse
// compares candidate spellings against it as sets.
func (v Cipher) tokens() []string {
	switch v {
	case TLS_RSA_WITH_AES_128_GCM_SHA256:
		return []string{"rsa", "aes", "128", "gcm", "sha256"}
	case TLS_RSA_WITH_AES_256_GCM_SHA384:
		return []string{"rsa", "aes", "256", "gcm", "sha384"}
	case TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256:
		return []string{"ecdhe", "rsa", "aes", "128", "gcm", "sha256"}
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return []string{"ecdhe", "ecdsa", "aes", "128", "gcm", "sha256"}
	case TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384:
		return []string{"ecdhe", "rsa", "aes", "256", "gcm", "sha384"}
	case TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384:
		return []string{"ecdhe", "ecdsa", "aes", "256", "gcm", "sha384"}
	case TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256:
		return []string{"ecdhe", "rsa", "chacha20", "poly1305", "sha256"}
	case TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256:
		return []string{"ecdhe", "ecdsa", "chacha20", "poly1305", "sha256"}
	case TLS_AES_128_GCM_SHA256:
		return []string{"aes", "128", "gcm", "sha256"}
	case TLS_AES_256_GCM_SHA384:
		return []string{"aes", "256", "gcm", "sha384"}
	case TLS_CHACHA20_POLY1305_SHA256:
		return []string{"chacha20", "poly1305", "sha256"}
	default:
		return []string{}
	}
}

func (v Cipher) TLS() uint16 {
	return uint16(v)
}

func (v Cipher) Uint16() uint16 {
	return uint16(v)
}

type tokens []string

func (t tokens) drop(words ...string) tokens {
	out := make(tokens, 0, len(t))
	for _, w := range t {
		if !slices.Contains(words, w) {
			out = append(out, w)
		}
	}
	return out
}

// equal compares as sets over the vocabulary both lists draw from, so
// empty split artifacts and word order never matter.
func (t tokens) equal(o tokens) bool {
	if len(o) == 0 {
		return false
	}
	for _, w := range o {
		if !slices.Contains(t, w) {
			return false
		}
	}
	for _, w := range t {
		if w == "" {
			continue
		}
		if !slices.Contains(o, w) {
			return false
		}
	}
	return true
}
