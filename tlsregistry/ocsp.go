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
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/crypto/ocsp"
)

// oidMustStaple is the RFC 7633 TLS Feature extension OID with the
// status_request value: a leaf carrying it requires a staple, not merely
// permits one.
var oidMustStaple = []int{1, 3, 6, 1, 5, 5, 7, 1, 24}

// staplerState caches one certificate's OCSP response in memory and on
// disk, keyed by serial number, refreshing it once NextUpdate has passed.
type staplerState struct {
	certFile string
	cacheDir string

	m        sync.Mutex
	leaf     *tls.Certificate
	resp     []byte
	nextUp   time.Time
	mustHave bool
}

func newStaplerState(certFile string) *staplerState {
	return &staplerState{
		certFile: certFile,
		cacheDir: filepath.Join(os.TempDir(), "tlsregistry-ocsp"),
	}
}

func (s *staplerState) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.leaf == nil {
		crt, err := tls.LoadX509KeyPair(s.certFile, s.certFile)
		if err != nil {
			// the key lives elsewhere; reload the leaf chain only, for OCSP purposes.
			raw, e := os.ReadFile(s.certFile)
			if e != nil {
				return nil, ErrorBuildContext.Error(e)
			}
			var der []byte
			for block, rest := pem.Decode(raw); block != nil; block, rest = pem.Decode(rest) {
				if block.Type == "CERTIFICATE" {
					der = block.Bytes
					break
				}
			}
			if der == nil {
				return nil, ErrorBuildContext.Error(nil)
			}
			cert, e := x509.ParseCertificate(der)
			if e != nil {
				return nil, ErrorBuildContext.Error(e)
			}
			s.leaf = &tls.Certificate{Certificate: [][]byte{cert.Raw}, Leaf: cert}
		} else {
			s.leaf = &crt
			if s.leaf.Leaf == nil && len(s.leaf.Certificate) > 0 {
				s.leaf.Leaf, _ = x509.ParseCertificate(s.leaf.Certificate[0])
			}
		}

		if s.leaf.Leaf != nil {
			for _, ext := range s.leaf.Leaf.Extensions {
				if ext.Id.Equal(oidMustStaple) {
					s.mustHave = true
				}
			}
		}
	}

	if time.Now().Before(s.nextUp) && len(s.resp) > 0 {
		s.leaf.OCSPStaple = s.resp
		return s.leaf, nil
	}

	if resp, next, err := s.fetch(); err == nil {
		s.resp = resp
		s.nextUp = next
		s.leaf.OCSPStaple = resp
	} else if s.mustHave {
		return nil, ErrorOCSPFetch.Error(err)
	}

	return s.leaf, nil
}

// fetch retrieves a fresh OCSP response via the leaf's AIA issuer URL and
// OCSPServer responder, checking a disk cache keyed by serial first.
func (s *staplerState) fetch() ([]byte, time.Time, error) {
	leaf := s.leaf.Leaf
	if leaf == nil || len(leaf.OCSPServer) == 0 {
		return nil, time.Time{}, ErrorOCSPFetch.Error(nil)
	}

	cachePath := s.cachePath(leaf)
	if b, t, ok := readDiskCache(cachePath); ok {
		return b, t, nil
	}

	issuer, err := s.fetchIssuer(leaf)
	if err != nil {
		return nil, time.Time{}, err
	}

	req, err := ocsp.CreateRequest(leaf, issuer, nil)
	if err != nil {
		return nil, time.Time{}, ErrorOCSPFetch.Error(err)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil

	httpResp, err := client.Post(leaf.OCSPServer[0], "application/ocsp-request", bytes.NewReader(req))
	if err != nil {
		return nil, time.Time{}, ErrorOCSPFetch.Error(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, time.Time{}, ErrorOCSPFetch.Error(err)
	}

	parsed, err := ocsp.ParseResponse(body, issuer)
	if err != nil {
		return nil, time.Time{}, ErrorOCSPFetch.Error(err)
	}

	if parsed.Status != ocsp.Good {
		return nil, time.Time{}, ErrorOCSPFetch.Error(nil)
	}

	writeDiskCache(cachePath, body)
	return body, parsed.NextUpdate, nil
}

func (s *staplerState) fetchIssuer(leaf *x509.Certificate) (*x509.Certificate, error) {
	if len(leaf.IssuingCertificateURL) == 0 {
		return nil, ErrorOCSPFetch.Error(nil)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil

	resp, err := client.Get(leaf.IssuingCertificateURL[0])
	if err != nil {
		return nil, ErrorOCSPFetch.Error(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrorOCSPFetch.Error(nil)
	}

	der, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrorOCSPFetch.Error(err)
	}

	return x509.ParseCertificate(der)
}

func (s *staplerState) cachePath(leaf *x509.Certificate) string {
	return filepath.Join(s.cacheDir, hex.EncodeToString(leaf.SerialNumber.Bytes())+".der")
}

func readDiskCache(path string) ([]byte, time.Time, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, false
	}
	resp, err := ocsp.ParseResponse(b, nil)
	if err != nil || time.Now().After(resp.NextUpdate) {
		return nil, time.Time{}, false
	}
	return b, resp.NextUpdate, true
}

func writeDiskCache(path string, b []byte) {
	_ = os.MkdirAll(filepath.Dir(path), 0o750)
	_ = os.WriteFile(path, b, 0o640)
}
