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

// Package ca holds certificate-authority chains parsed from PEM, feeding
// the root and client CA pools of a TLS configuration.
package ca

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

var ErrInvalidCertificate = errors.New("invalid certificate")

// Cert is one parsed CA chain. Certificates accumulate through the Append
// methods and feed an *x509.CertPool through AppendPool.
type Cert interface {
	fmt.Stringer

	// Len returns how many certificates the chain holds.
	Len() int
	// AppendPool adds every certificate of the chain to p.
	AppendPool(p *x509.CertPool)
	// AppendBytes parses PEM bytes and appends the certificates found.
	AppendBytes(p []byte) error
	// AppendString parses a PEM string and appends the certificates found.
	AppendString(str string) error
	// Chain renders the whole chain back to PEM.
	Chain() (string, error)
}

// Parse builds a Cert from a PEM string holding one or more CERTIFICATE
// blocks.
func Parse(str string) (Cert, error) {
	return ParseByte([]byte(str))
}

// ParseByte builds a Cert from PEM bytes holding one or more CERTIFICATE
// blocks. An input with no parseable certificate yields an error.
func ParseByte(p []byte) (Cert, error) {
	c := &chain{}

	if e := c.AppendBytes(p); e != nil {
		return nil, e
	}

	return c, nil
}

type chain struct {
	c []*x509.Certificate
}

func (o *chain) Len() int {
	return len(o.c)
}

func (o *chain) AppendPool(p *x509.CertPool) {
	for _, c := range o.c {
		if c != nil {
			p.AddCert(c)
		}
	}
}

func (o *chain) AppendBytes(p []byte) error {
	p = bytes.TrimSpace(p)
	p = bytes.Trim(p, "\"")
	p = bytes.ReplaceAll(p, []byte("\\n"), []byte("\n"))

	found := 0
	for {
		block, rest := pem.Decode(p)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			if c, e := x509.ParseCertificate(block.Bytes); e == nil {
				o.c = append(o.c, c)
				found++
			}
		}
		p = rest
	}

	if found == 0 {
		return ErrInvalidCertificate
	}
	return nil
}

func (o *chain) AppendString(str string) error {
	return o.AppendBytes([]byte(str))
}

func (o *chain) Chain() (string, error) {
	var buf bytes.Buffer

	for _, c := range o.c {
		if c == nil {
			continue
		}
		if e := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: c.Raw}); e != nil {
			return "", e
		}
	}

	return buf.String(), nil
}

func (o *chain) String() string {
	s, _ := o.Chain()
	return s
}
