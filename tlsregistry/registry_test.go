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

package tlsregistry_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/nabbar/connpool/tlsregistry"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func genPair(dir, name string) (certFile, keyFile string) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		DNSNames:     []string{name},
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())

	certFile = filepath.Join(dir, name+".crt")
	keyFile = filepath.Join(dir, name+".key")

	certOut, err := os.Create(certFile)
	Expect(err).ToNot(HaveOccurred())
	Expect(pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der})).To(Succeed())
	Expect(certOut.Close()).To(Succeed())

	keyDER, err := x509.MarshalECPrivateKey(priv)
	Expect(err).ToNot(HaveOccurred())

	keyOut, err := os.Create(keyFile)
	Expect(err).ToNot(HaveOccurred())
	Expect(pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})).To(Succeed())
	Expect(keyOut.Close()).To(Succeed())

	return certFile, keyFile
}


func mustTLS(reg *tlsregistry.Registry, name string) *tls.Config {
	c, ok := reg.Get(name)
	Expect(ok).To(BeTrue())
	return c.TLSConfig()
}

var _ = Describe("Registry", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "tlsregistry-test-*")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("builds a TLS config for a registered section", func() {
		certFile, keyFile := genPair(dir, "api.example.com")

		reg := tlsregistry.New(nil)
		ctx, err := reg.CreateContext(tlsregistry.SectionConfig{
			Name:     "api",
			CertFile: certFile,
			KeyFile:  keyFile,
			ALPN:     []string{"h2", "http/1.1"},
			SNIHosts: []string{"api.example.com"},
		})
		Expect(err).ToNot(HaveOccurred())

		cnf := ctx.TLSConfig()
		Expect(cnf.Certificates).To(HaveLen(1))
		Expect(cnf.NextProtos).To(Equal([]string{"h2", "http/1.1"}))
	})

	It("rejects a duplicate section name", func() {
		certFile, keyFile := genPair(dir, "dup.example.com")

		reg := tlsregistry.New(nil)
		_, err := reg.CreateContext(tlsregistry.SectionConfig{Name: "dup", CertFile: certFile, KeyFile: keyFile})
		Expect(err).ToNot(HaveOccurred())

		_, err = reg.CreateContext(tlsregistry.SectionConfig{Name: "dup", CertFile: certFile, KeyFile: keyFile})
		Expect(err).To(HaveOccurred())
	})

	It("routes SNI to an exact host match and a wildcard fallback", func() {
		certA, keyA := genPair(dir, "a.example.com")
		certB, keyB := genPair(dir, "wild.example.com")

		reg := tlsregistry.New(nil)
		_, err := reg.CreateContext(tlsregistry.SectionConfig{
			Name: "exact", CertFile: certA, KeyFile: keyA, SNIHosts: []string{"a.example.com"},
		})
		Expect(err).ToNot(HaveOccurred())

		_, err = reg.CreateContext(tlsregistry.SectionConfig{
			Name: "wild", CertFile: certB, KeyFile: keyB, SNIHosts: []string{"*.other.example.com"},
		})
		Expect(err).ToNot(HaveOccurred())

		c, ok := reg.LookupSNI("a.example.com")
		Expect(ok).To(BeTrue())
		Expect(c.Name()).To(Equal("exact"))

		c, ok = reg.LookupSNI("foo.other.example.com")
		Expect(ok).To(BeTrue())
		Expect(c.Name()).To(Equal("wild"))

		_, ok = reg.LookupSNI("nowhere.invalid")
		Expect(ok).To(BeFalse())
	})

	It("rejects an empty ALPN protocol token at context creation", func() {
		certFile, keyFile := genPair(dir, "alpn.example.com")

		reg := tlsregistry.New(nil)
		_, err := reg.CreateContext(tlsregistry.SectionConfig{
			Name: "alpn", CertFile: certFile, KeyFile: keyFile, ALPN: []string{"h2", ""},
		})
		Expect(err).To(HaveOccurred())
	})

	It("reloads every registered section through ReloadAll", func() {
		certA, keyA := genPair(dir, "one.example.com")
		certB, keyB := genPair(dir, "two.example.com")

		reg := tlsregistry.New(nil)
		_, err := reg.CreateContext(tlsregistry.SectionConfig{Name: "one", CertFile: certA, KeyFile: keyA})
		Expect(err).ToNot(HaveOccurred())
		_, err = reg.CreateContext(tlsregistry.SectionConfig{Name: "two", CertFile: certB, KeyFile: keyB})
		Expect(err).ToNot(HaveOccurred())

		firstOne := mustTLS(reg, "one").Certificates[0]
		firstTwo := mustTLS(reg, "two").Certificates[0]

		genPair(dir, "one.example.com")
		genPair(dir, "two.example.com")

		reg.ReloadAll()

		Expect(mustTLS(reg, "one").Certificates[0].Certificate[0]).ToNot(Equal(firstOne.Certificate[0]))
		Expect(mustTLS(reg, "two").Certificates[0].Certificate[0]).ToNot(Equal(firstTwo.Certificate[0]))
	})

	It("reloads a section's certificate from disk in place", func() {
		certFile, keyFile := genPair(dir, "reload.example.com")

		reg := tlsregistry.New(nil)
		ctx, err := reg.CreateContext(tlsregistry.SectionConfig{Name: "reload", CertFile: certFile, KeyFile: keyFile})
		Expect(err).ToNot(HaveOccurred())

		first := ctx.TLSConfig().Certificates[0]

		genPair(dir, "reload.example.com")
		Expect(reg.Reload("reload")).To(Succeed())

		refreshed, ok := reg.Get("reload")
		Expect(ok).To(BeTrue())

		second := refreshed.TLSConfig().Certificates[0]
		Expect(second.Certificate[0]).ToNot(Equal(first.Certificate[0]))
	})
})
