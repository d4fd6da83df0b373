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

package certs

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrInvalidPairCertificate = errors.New("invalid pair certificate")
	ErrInvalidCertificate     = errors.New("invalid certificate")
	ErrInvalidPrivateKey      = errors.New("invalid private key")
)

// Config is how one certificate arrives from configuration: a key+cert
// pair or a combined chain, either inline PEM or a file path.
type Config interface {
	Cert() (*tls.Certificate, error)
}

// ConfigPair is a private key and certificate given separately. Each field
// may hold inline PEM or the path of a PEM file.
type ConfigPair struct {
	Key string `mapstructure:"key" json:"key" yaml:"key" toml:"key"`
	Pub string `mapstructure:"pub" json:"pub" yaml:"pub" toml:"pub"`
}

func (c *ConfigPair) Cert() (*tls.Certificate, error) {
	if c == nil {
		return nil, ErrInvalidPairCertificate
	}

	k := resolvePEM([]byte(c.Key))
	p := resolvePEM([]byte(c.Pub))

	if len(k) < 1 || len(p) < 1 {
		return nil, ErrInvalidPairCertificate
	}

	crt, err := tls.X509KeyPair(p, k)
	if err != nil {
		return nil, err
	}

	return &crt, nil
}

// ConfigChain is certificates and private key combined in one PEM blob,
// inline or the path of a PEM file.
type ConfigChain string

func (c *ConfigChain) Cert() (*tls.Certificate, error) {
	if c == nil || len(*c) < 1 {
		return nil, ErrInvalidPairCertificate
	}

	var crt tls.Certificate

	p := resolvePEM([]byte(*c))

	for {
		block, rest := pem.Decode(p)
		if block == nil {
			break
		}

		if block.Type == "CERTIFICATE" {
			crt.Certificate = append(crt.Certificate, block.Bytes)
		} else {
			key, err := parsePrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			crt.PrivateKey = key
		}

		p = rest
	}

	if len(crt.Certificate) == 0 || crt.PrivateKey == nil {
		return nil, ErrInvalidCertificate
	}

	return &crt, nil
}

// resolvePEM trims the raw value and, when it names an existing file,
// replaces it with that file's contents.
func resolvePEM(p []byte) []byte {
	p = bytes.TrimSpace(p)

	if len(p) < 1 {
		return p
	}

	if s, e := os.Stat(string(p)); e == nil && !s.IsDir() {
		/* #nosec */
		if b, e := os.ReadFile(filepath.Clean(string(p))); e == nil {
			p = bytes.TrimSpace(b)
		}
	}

	return p
}

// parsePrivateKey tries the three DER layouts a PEM key block may carry.
func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, ErrInvalidPrivateKey
		}
	}

	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}

	return nil, ErrInvalidPrivateKey
}
