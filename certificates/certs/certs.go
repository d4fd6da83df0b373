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

// Package certs parses server certificate material - a key+cert pair or a
// combined PEM chain, inline or by file path - into tls.Certificate values.
package certs

import (
	"crypto/tls"
)

// Cert is one parsed server certificate ready for a tls.Config.
type Cert interface {
	// TLS returns the certificate in the form tls.Config.Certificates takes.
	TLS() tls.Certificate
	// Model returns the configuration value the certificate was parsed from.
	Model() Certif
}

// Certif binds the configuration shape a certificate came from to its
// parsed form; it is the concrete Cert this package hands out.
type Certif struct {
	g Config
	c tls.Certificate
}

func (o *Certif) Cert() Cert {
	return o
}

func (o *Certif) Model() Certif {
	if o == nil {
		return Certif{}
	}
	return *o
}

func (o *Certif) TLS() tls.Certificate {
	if o == nil {
		return tls.Certificate{}
	}
	return o.c
}

// Parse reads a combined PEM chain (certificates + private key in one
// string, or a path to such a file) into a Cert.
func Parse(chain string) (Cert, error) {
	c := ConfigChain(chain)
	return parseCert(&c)
}

// ParsePair reads a private key and certificate pair (inline PEM or file
// paths) into a Cert.
func ParsePair(key, pub string) (Cert, error) {
	return parseCert(&ConfigPair{Key: key, Pub: pub})
}

func parseCert(cfg Config) (Cert, error) {
	c, e := cfg.Cert()
	if e != nil {
		return nil, e
	} else if c == nil {
		return nil, ErrInvalidPairCertificate
	}

	return &Certif{g: cfg, c: *c}, nil
}
