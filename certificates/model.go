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

package certificates

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"io"
	"os"

	tlsaut "github.com/nabbar/connpool/certificates/auth"
	tlscas "github.com/nabbar/connpool/certificates/ca"
	tlscrt "github.com/nabbar/connpool/certificates/certs"
	tlscpr "github.com/nabbar/connpool/certificates/cipher"
	tlscrv "github.com/nabbar/connpool/certificates/curves"
	tlsvrs "github.com/nabbar/connpool/certificates/tlsversion"
)

type config struct {
	rand                  io.Reader
	cert                  []tlscrt.Cert
	cipherList            []tlscpr.Cipher
	curveList             []tlscrv.Curves
	caRoot                []tlscas.Cert
	clientAuth            tlsaut.ClientAuth
	clientCA              []tlscas.Cert
	tlsMinVersion         tlsvrs.Version
	tlsMaxVersion         tlsvrs.Version
	dynSizingDisabled     bool
	ticketSessionDisabled bool
}

func (o *config) RegisterRand(rand io.Reader) {
	o.rand = rand
}

func (o *config) SetVersionMin(v tlsvrs.Version) {
	if v != tlsvrs.VersionUnknown {
		o.tlsMinVersion = v
	}
}

func (o *config) GetVersionMin() tlsvrs.Version {
	return o.tlsMinVersion
}

func (o *config) SetVersionMax(v tlsvrs.Version) {
	if v != tlsvrs.VersionUnknown {
		o.tlsMaxVersion = v
	}
}

func (o *config) GetVersionMax() tlsvrs.Version {
	return o.tlsMaxVersion
}

func (o *config) SetCipherList(c []tlscpr.Cipher) {
	o.cipherList = make([]tlscpr.Cipher, 0)
	o.AddCiphers(c...)
}

func (o *config) AddCiphers(c ...tlscpr.Cipher) {
	o.cipherList = append(o.cipherList, c...)
}

func (o *config) GetCiphers() []tlscpr.Cipher {
	res := make([]tlscpr.Cipher, 0, len(o.cipherList))
	for _, c := range o.cipherList {
		if c.Check() {
			res = append(res, c)
		}
	}
	return res
}

func (o *config) SetCurveList(c []tlscrv.Curves) {
	o.curveList = make([]tlscrv.Curves, 0)
	o.AddCurves(c...)
}

func (o *config) AddCurves(c ...tlscrv.Curves) {
	o.curveList = append(o.curveList, c...)
}

func (o *config) GetCurves() []tlscrv.Curves {
	res := make([]tlscrv.Curves, 0, len(o.curveList))
	for _, c := range o.curveList {
		if c.Check() {
			res = append(res, c)
		}
	}
	return res
}

func (o *config) AddRootCA(rootCA tlscas.Cert) bool {
	if rootCA != nil && rootCA.Len() > 0 {
		o.caRoot = append(o.caRoot, rootCA)
		return true
	}
	return false
}

func (o *config) AddRootCAString(rootCA string) bool {
	if rootCA != "" {
		if c, e := tlscas.Parse(rootCA); e == nil {
			o.caRoot = append(o.caRoot, c)
			return true
		}
	}
	return false
}

func (o *config) AddRootCAFile(pemFile string) error {
	return checkFile(func(p []byte) error {
		c, e := tlscas.ParseByte(p)
		if e != nil {
			return e
		}
		o.caRoot = append(o.caRoot, c)
		return nil
	}, pemFile)
}

func (o *config) GetRootCA() []tlscas.Cert {
	return append(make([]tlscas.Cert, 0), o.caRoot...)
}

func (o *config) GetRootCAPool() *x509.CertPool {
	res := x509.NewCertPool()
	for _, ca := range o.caRoot {
		ca.AppendPool(res)
	}
	return res
}

func (o *config) SetClientAuth(a tlsaut.ClientAuth) {
	o.clientAuth = a
}

func (o *config) AddClientCAString(ca string) bool {
	if ca != "" {
		if c, e := tlscas.Parse(ca); e == nil {
			o.clientCA = append(o.clientCA, c)
			return true
		}
	}
	return false
}

func (o *config) AddClientCAFile(pemFile string) error {
	return checkFile(func(p []byte) error {
		c, e := tlscas.ParseByte(p)
		if e != nil {
			return e
		}
		o.clientCA = append(o.clientCA, c)
		return nil
	}, pemFile)
}

func (o *config) GetClientCA() []tlscas.Cert {
	return append(make([]tlscas.Cert, 0), o.clientCA...)
}

func (o *config) GetClientCAPool() *x509.CertPool {
	res := x509.NewCertPool()
	for _, ca := range o.clientCA {
		ca.AppendPool(res)
	}
	return res
}

func (o *config) LenCertificatePair() int {
	return len(o.cert)
}

func (o *config) CleanCertificatePair() {
	o.cert = make([]tlscrt.Cert, 0)
}

func (o *config) GetCertificatePair() []tls.Certificate {
	res := make([]tls.Certificate, 0, len(o.cert))
	for _, c := range o.cert {
		res = append(res, c.TLS())
	}
	return res
}

func (o *config) AddCertificatePairString(key, crt string) error {
	c, e := tlscrt.ParsePair(key, crt)
	if e != nil {
		return e
	}

	o.cert = append(o.cert, c)
	return nil
}

func (o *config) AddCertificatePairFile(keyFile, crtFile string) error {
	var parts [][]byte

	if e := checkFile(func(p []byte) error {
		parts = append(parts, p)
		return nil
	}, keyFile, crtFile); e != nil {
		return e
	}

	c, e := tlscrt.ParsePair(string(parts[0]), string(parts[1]))
	if e != nil {
		return e
	}

	o.cert = append(o.cert, c)
	return nil
}

// checkFile reads each named PEM file, rejecting empty paths and empty
// files, and feeds the trimmed contents to fct one file at a time.
func checkFile(fct func(p []byte) error, pemFiles ...string) error {
	for _, f := range pemFiles {
		if f == "" {
			return ErrorParamEmpty.Error(nil)
		}

		if _, e := os.Stat(f); e != nil {
			return e
		}

		/* #nosec */
		b, e := os.ReadFile(f)
		if e != nil {
			return e
		}

		if b = bytes.TrimSpace(b); len(b) < 1 {
			return ErrorFileEmpty.Error(nil)
		}

		if fct == nil {
			continue
		}

		if e = fct(b); e != nil {
			return e
		}
	}

	return nil
}

func (o *config) SetDynamicSizingDisabled(flag bool) {
	o.dynSizingDisabled = flag
}

func (o *config) SetSessionTicketDisabled(flag bool) {
	o.ticketSessionDisabled = flag
}

func (o *config) Clone() TLSConfig {
	return &config{
		rand:                  o.rand,
		cert:                  append(make([]tlscrt.Cert, 0), o.cert...),
		cipherList:            append(make([]tlscpr.Cipher, 0), o.cipherList...),
		curveList:             append(make([]tlscrv.Curves, 0), o.curveList...),
		caRoot:                append(make([]tlscas.Cert, 0), o.caRoot...),
		clientAuth:            o.clientAuth,
		clientCA:              append(make([]tlscas.Cert, 0), o.clientCA...),
		tlsMinVersion:         o.tlsMinVersion,
		tlsMaxVersion:         o.tlsMaxVersion,
		dynSizingDisabled:     o.dynSizingDisabled,
		ticketSessionDisabled: o.ticketSessionDisabled,
	}
}

func (o *config) Config() *Config {
	cfg := &Config{
		CurveList:            append(make([]tlscrv.Curves, 0), o.curveList...),
		CipherList:           append(make([]tlscpr.Cipher, 0), o.cipherList...),
		RootCA:               append(make([]tlscas.Cert, 0), o.caRoot...),
		ClientCA:             append(make([]tlscas.Cert, 0), o.clientCA...),
		Certs:                make([]tlscrt.Certif, 0, len(o.cert)),
		VersionMin:           o.tlsMinVersion,
		VersionMax:           o.tlsMaxVersion,
		AuthClient:           o.clientAuth,
		DynamicSizingDisable: o.dynSizingDisabled,
		SessionTicketDisable: o.ticketSessionDisabled,
	}

	for _, c := range o.cert {
		cfg.Certs = append(cfg.Certs, c.Model())
	}

	return cfg
}

func (o *config) TLS(serverName string) *tls.Config {
	return o.TlsConfig(serverName)
}

func (o *config) TlsConfig(serverName string) *tls.Config {
	/* #nosec */
	cnf := &tls.Config{
		Rand:                        o.rand,
		InsecureSkipVerify:          false,
		ServerName:                  serverName,
		Certificates:                o.GetCertificatePair(),
		RootCAs:                     o.GetRootCAPool(),
		ClientCAs:                   o.GetClientCAPool(),
		ClientAuth:                  o.clientAuth.TLS(),
		MinVersion:                  o.tlsMinVersion.TLS(),
		MaxVersion:                  o.tlsMaxVersion.TLS(),
		DynamicRecordSizingDisabled: o.dynSizingDisabled,
		SessionTicketsDisabled:      o.ticketSessionDisabled,
	}

	if cs := o.GetCiphers(); len(cs) > 0 {
		cnf.CipherSuites = make([]uint16, 0, len(cs))
		for _, c := range cs {
			cnf.CipherSuites = append(cnf.CipherSuites, c.TLS())
		}
	}

	if cv := o.GetCurves(); len(cv) > 0 {
		cnf.CurvePreferences = make([]tls.CurveID, 0, len(cv))
		for _, c := range cv {
			cnf.CurvePreferences = append(cnf.CurvePreferences, c.TLS())
		}
	}

	return cnf
}
