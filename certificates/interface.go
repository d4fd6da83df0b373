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

// Package certificates assembles tls.Config values from configuration:
// certificate pairs or chains, root and client CA pools, protocol version
// bounds, cipher and curve restrictions, and the client-auth policy.
//
// A TLSConfig accumulates material through its Add/Set methods and renders
// an independent *tls.Config on each TlsConfig call, so a listener can keep
// its handle and pick up reloaded material on the next handshake.
package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"io"

	tlsaut "github.com/nabbar/connpool/certificates/auth"
	tlscas "github.com/nabbar/connpool/certificates/ca"
	tlscrt "github.com/nabbar/connpool/certificates/certs"
	tlscpr "github.com/nabbar/connpool/certificates/cipher"
	tlscrv "github.com/nabbar/connpool/certificates/curves"
	tlsvrs "github.com/nabbar/connpool/certificates/tlsversion"
)

// TLSConfig is the mutable assembly surface for one TLS context.
type TLSConfig interface {
	// RegisterRand overrides the randomness source handed to crypto/tls;
	// nil keeps the default.
	RegisterRand(rand io.Reader)

	AddRootCA(rootCA tlscas.Cert) bool
	AddRootCAString(rootCA string) bool
	AddRootCAFile(pemFile string) error
	GetRootCA() []tlscas.Cert
	GetRootCAPool() *x509.CertPool

	AddClientCAString(ca string) bool
	AddClientCAFile(pemFile string) error
	GetClientCA() []tlscas.Cert
	GetClientCAPool() *x509.CertPool
	SetClientAuth(a tlsaut.ClientAuth)

	AddCertificatePairString(key, crt string) error
	AddCertificatePairFile(keyFile, crtFile string) error
	LenCertificatePair() int
	CleanCertificatePair()
	GetCertificatePair() []tls.Certificate

	SetVersionMin(v tlsvrs.Version)
	GetVersionMin() tlsvrs.Version
	SetVersionMax(v tlsvrs.Version)
	GetVersionMax() tlsvrs.Version

	SetCipherList(c []tlscpr.Cipher)
	AddCiphers(c ...tlscpr.Cipher)
	GetCiphers() []tlscpr.Cipher

	SetCurveList(c []tlscrv.Curves)
	AddCurves(c ...tlscrv.Curves)
	GetCurves() []tlscrv.Curves

	SetDynamicSizingDisabled(flag bool)
	SetSessionTicketDisabled(flag bool)

	// Clone returns an independent copy sharing none of the backing slices.
	Clone() TLSConfig

	// Config returns the accumulated material as a Config value.
	Config() *Config

	// TLS renders a ready *tls.Config for the given SNI server name.
	TLS(serverName string) *tls.Config
	// TlsConfig is TLS under the name callers historically used.
	TlsConfig(serverName string) *tls.Config
}

// Default is the process-wide fallback configuration a Config with
// InheritDefault set starts from.
var Default = New()

// New returns an empty TLSConfig bounded to TLS 1.2 through 1.3.
func New() TLSConfig {
	return &config{
		cert:          make([]tlscrt.Cert, 0),
		cipherList:    make([]tlscpr.Cipher, 0),
		curveList:     make([]tlscrv.Curves, 0),
		caRoot:        make([]tlscas.Cert, 0),
		clientAuth:    tlsaut.NoClientCert,
		clientCA:      make([]tlscas.Cert, 0),
		tlsMinVersion: tlsvrs.VersionTLS12,
		tlsMaxVersion: tlsvrs.VersionTLS13,
	}
}
