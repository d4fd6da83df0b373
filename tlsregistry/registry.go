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

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/nabbar/connpool/certificates"
	liblog "github.com/nabbar/connpool/logger"
)

// Context is one named, fully-built TLS section: the certificates.TLSConfig
// it was assembled from plus the registry bookkeeping Reload and the
// OCSP stapler need to rebuild it in place.
type Context struct {
	name string
	cfg  SectionConfig
	tls  certificates.TLSConfig

	verify *peerVerifier
	ocsp   *staplerState
}

func (c *Context) Name() string { return c.name }

// TLSConfig renders a *tls.Config ready to hand to tls.Listen or
// tls.Server; ALPN and OCSP stapling are layered on top of the embedded
// certificates.TLSConfig's own TlsConfig(). Peer-certificate exceptions need
// the connecting address, so they are installed per-handshake by
// GetConfigForClient via TLSConfigForPeer instead of here.
func (c *Context) TLSConfig() *tls.Config {
	return c.TLSConfigForPeer(nil)
}

// TLSConfigForPeer is TLSConfig plus, when this section has peer-verification
// exceptions configured, a VerifyPeerCertificate bound to peer's address -
// the detail a plain ClientHelloInfo-less caller cannot supply.
func (c *Context) TLSConfigForPeer(peer net.IP) *tls.Config {
	cnf := c.tls.TlsConfig("")

	if len(c.cfg.ALPN) > 0 {
		cnf.NextProtos = append([]string{}, c.cfg.ALPN...)
	}

	if c.verify != nil {
		cnf.ClientAuth = tls.RequireAnyClientCert
		cnf.InsecureSkipVerify = true //nolint:gosec
		cnf.VerifyPeerCertificate = c.verify.bind(peer).verify
	}

	if c.ocsp != nil {
		cnf.GetCertificate = c.ocsp.getCertificate
	}

	return cnf
}

// Registry holds every named TLS section reachable by a listener, plus the
// SNI routing table built from each section's SNIHosts.
type Registry struct {
	m   sync.RWMutex
	ctx map[string]*Context
	log liblog.FuncLog
}

func New(log liblog.FuncLog) *Registry {
	return &Registry{
		ctx: make(map[string]*Context),
		log: log,
	}
}

func (r *Registry) logger() liblog.Logger {
	if r.log == nil {
		return nil
	}
	return r.log()
}

// CreateContext builds and registers a new named TLS context. It fails if
// the name is already taken - sections are created once and refreshed with
// Reload, never silently replaced.
func (r *Registry) CreateContext(cfg SectionConfig) (*Context, error) {
	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.ctx[cfg.Name]; ok {
		return nil, ErrorSectionExists.Error(nil)
	}

	c, err := buildContext(cfg)
	if err != nil {
		return nil, err
	}

	r.ctx[cfg.Name] = c
	return c, nil
}

// Reload re-reads the certificate/key and CA files for an existing section
// and swaps its certificates.TLSConfig in place; callers holding a prior
// *Context pointer see the update on their next TLSConfig() call.
func (r *Registry) Reload(name string) error {
	r.m.Lock()
	defer r.m.Unlock()

	old, ok := r.ctx[name]
	if !ok {
		return ErrorSectionMissing.Error(nil)
	}

	n, err := buildContext(old.cfg)
	if err != nil {
		if l := r.logger(); l != nil {
			l.Entry(liblog.ErrorLevel, "reloading tls section failed").
				FieldAdd("section", name).ErrorAdd(true, err).Log()
		}
		return err
	}

	r.ctx[name] = n
	return nil
}

// ReloadAll re-reads certificate and key material for every registered
// section in place. Per-section failures are logged and skipped, never
// fatal: live sections keep serving their previous material, and
// connections whose handshake already completed are untouched either way.
func (r *Registry) ReloadAll() {
	r.m.RLock()
	names := make([]string, 0, len(r.ctx))
	for name := range r.ctx {
		names = append(names, name)
	}
	r.m.RUnlock()

	for _, name := range names {
		// Reload logs its own failure with the section name attached.
		_ = r.Reload(name)
	}
}

func (r *Registry) Get(name string) (*Context, bool) {
	r.m.RLock()
	defer r.m.RUnlock()
	c, ok := r.ctx[name]
	return c, ok
}

// LookupSNI resolves the ServerName presented at handshake to the section
// that should answer it: exact host match first, then a "*.domain"
// wildcard entry, falling back to the section registered with no
// SNIHosts at all, if any.
func (r *Registry) LookupSNI(serverName string) (*Context, bool) {
	r.m.RLock()
	defer r.m.RUnlock()

	serverName = strings.ToLower(serverName)

	var fallback *Context

	for _, c := range r.ctx {
		if len(c.cfg.SNIHosts) == 0 {
			fallback = c
			continue
		}
		for _, h := range c.cfg.SNIHosts {
			h = strings.ToLower(h)
			if h == serverName {
				return c, true
			}
			if strings.HasPrefix(h, "*.") && strings.HasSuffix(serverName, h[1:]) {
				return c, true
			}
		}
	}

	if fallback != nil {
		return fallback, true
	}

	return nil, false
}

// GetConfigForClient builds the tls.Config.GetConfigForClient hook a
// listener installs once, so every handshake is routed to the right
// section's TLSConfig() by SNI.
func (r *Registry) GetConfigForClient() func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
		c, ok := r.LookupSNI(hello.ServerName)
		if !ok {
			return nil, ErrorSectionMissing.Error(nil)
		}

		var peer net.IP
		if hello.Conn != nil {
			if a, ok := hello.Conn.RemoteAddr().(*net.TCPAddr); ok {
				peer = a.IP
			}
		}

		return c.TLSConfigForPeer(peer), nil
	}
}

func buildContext(cfg SectionConfig) (*Context, error) {
	for _, proto := range cfg.ALPN {
		// RFC 7301 wire format is a length-prefixed token list; an empty or
		// over-long token cannot be encoded, so reject it here rather than
		// at the first handshake.
		if len(proto) == 0 || len(proto) > 255 {
			return nil, ErrorALPNProtocol.Error(nil)
		}
	}

	t := certificates.New()

	if cfg.VersionMin != 0 {
		t.SetVersionMin(cfg.VersionMin)
	}
	if cfg.VersionMax != 0 {
		t.SetVersionMax(cfg.VersionMax)
	}
	if len(cfg.CipherList) > 0 {
		t.SetCipherList(cfg.CipherList)
	}
	if len(cfg.CurveList) > 0 {
		t.SetCurveList(cfg.CurveList)
	}
	if cfg.ClientAuth != 0 {
		t.SetClientAuth(cfg.ClientAuth)
	}

	for _, f := range cfg.RootCAFiles {
		if e := t.AddRootCAFile(f); e != nil {
			return nil, ErrorBuildContext.Error(e)
		}
	}

	for _, f := range cfg.ClientCAFiles {
		if e := t.AddClientCAFile(f); e != nil {
			return nil, ErrorBuildContext.Error(e)
		}
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		keyPEM, err := decryptKeyPEM(cfg.KeyFile, cfg.HelperScript)
		if err != nil {
			return nil, err
		}

		crtPEM, err := readPEM(cfg.CertFile)
		if err != nil {
			return nil, err
		}

		if e := t.AddCertificatePairString(string(keyPEM), string(crtPEM)); e != nil {
			return nil, ErrorBuildContext.Error(e)
		}
	}

	c := &Context{
		name: cfg.Name,
		cfg:  cfg,
		tls:  t,
	}

	if cfg.OCSPStaple {
		c.ocsp = newStaplerState(cfg.CertFile)
	}

	return c, nil
}

func readPEM(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrorBuildContext.Error(err)
	}
	return b, nil
}

// peerVerifier turns a certvalidate.Store into a tls.Config.VerifyPeerCertificate
// callback: the default x509 chain check runs first, and only a failure is
// handed to the exception store for a second opinion.
type peerVerifier struct {
	roots *x509.CertPool
	allow func(cert *x509.Certificate, depth int, peer net.IP, errCode x509.InvalidReason) bool
	peer  net.IP
}

// bind returns a copy of this verifier scoped to one handshake's peer
// address, since VerifyPeerCertificate itself is never told who is calling.
func (p *peerVerifier) bind(peer net.IP) *peerVerifier {
	return &peerVerifier{roots: p.roots, allow: p.allow, peer: peer}
}

func (p *peerVerifier) verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrorBuildContext.Error(nil)
	}

	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return err
		}
		certs = append(certs, cert)
	}

	opts := x509.VerifyOptions{Roots: p.roots}
	for _, c := range certs[1:] {
		if opts.Intermediates == nil {
			opts.Intermediates = x509.NewCertPool()
		}
		opts.Intermediates.AddCert(c)
	}

	if _, err := certs[0].Verify(opts); err == nil {
		return nil
	} else if ive, ok := err.(x509.CertificateInvalidError); ok {
		if p.allow != nil && p.allow(certs[0], 0, p.peer, ive.Reason) {
			return nil
		}
		return err
	} else {
		return err
	}
}

// SetPeerVerification wires a certvalidate.Store's exception rules as the
// second opinion on a chain-validation failure for this section. allow is
// normally (*certvalidate.Store).Allow.
func (c *Context) SetPeerVerification(roots *x509.CertPool, allow func(cert *x509.Certificate, depth int, peer net.IP, errCode x509.InvalidReason) bool) {
	c.verify = &peerVerifier{roots: roots, allow: allow}
}
