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
	"fmt"

	libval "github.com/go-playground/validator/v10"
	tlsaut "github.com/nabbar/connpool/certificates/auth"
	tlscas "github.com/nabbar/connpool/certificates/ca"
	tlscrt "github.com/nabbar/connpool/certificates/certs"
	tlscpr "github.com/nabbar/connpool/certificates/cipher"
	tlscrv "github.com/nabbar/connpool/certificates/curves"
	tlsvrs "github.com/nabbar/connpool/certificates/tlsversion"
	liberr "github.com/nabbar/connpool/errors"
)

// Config is the decodable form of one TLS context. A zero field means "no
// opinion": New keeps the base value (the Default configuration when
// InheritDefault is set, empty otherwise) wherever this Config is silent.
type Config struct {
	CurveList            []tlscrv.Curves   `mapstructure:"curveList" json:"curveList" yaml:"curveList" toml:"curveList"`
	CipherList           []tlscpr.Cipher   `mapstructure:"cipherList" json:"cipherList" yaml:"cipherList" toml:"cipherList"`
	RootCA               []tlscas.Cert     `mapstructure:"rootCA" json:"rootCA" yaml:"rootCA" toml:"rootCA"`
	ClientCA             []tlscas.Cert     `mapstructure:"clientCA" json:"clientCA" yaml:"clientCA" toml:"clientCA"`
	Certs                []tlscrt.Certif   `mapstructure:"certs" json:"certs" yaml:"certs" toml:"certs"`
	VersionMin           tlsvrs.Version    `mapstructure:"versionMin" json:"versionMin" yaml:"versionMin" toml:"versionMin"`
	VersionMax           tlsvrs.Version    `mapstructure:"versionMax" json:"versionMax" yaml:"versionMax" toml:"versionMax"`
	AuthClient           tlsaut.ClientAuth `mapstructure:"authClient" json:"authClient" yaml:"authClient" toml:"authClient"`
	InheritDefault       bool              `mapstructure:"inheritDefault" json:"inheritDefault" yaml:"inheritDefault" toml:"inheritDefault"`
	DynamicSizingDisable bool              `mapstructure:"dynamicSizingDisable" json:"dynamicSizingDisable" yaml:"dynamicSizingDisable" toml:"dynamicSizingDisable"`
	SessionTicketDisable bool              `mapstructure:"sessionTicketDisable" json:"sessionTicketDisable" yaml:"sessionTicketDisable" toml:"sessionTicketDisable"`
}

// Validate runs the struct tags and folds every failing field into a
// single liberr.Error chain.
func (c *Config) Validate() liberr.Error {
	err := ErrorValidatorError.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		}

		for _, e := range er.(libval.ValidationErrors) {
			//nolint goerr113
			err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// New builds a TLSConfig from this Config, starting from the process-wide
// Default when InheritDefault is set.
func (c *Config) New() TLSConfig {
	if c.InheritDefault {
		return c.NewFrom(Default)
	}
	return c.NewFrom(nil)
}

// NewFrom builds a TLSConfig by overlaying this Config on cfg: scalar
// fields replace the base value when set, list fields append to it, and
// cipher/curve entries outside the accepted sets are silently dropped.
func (c *Config) NewFrom(cfg TLSConfig) TLSConfig {
	t := c.overlay(cfg)

	res := New().(*config)
	res.clientAuth = t.AuthClient
	res.dynSizingDisabled = t.DynamicSizingDisable
	res.ticketSessionDisabled = t.SessionTicketDisable

	// a config silent on versions keeps New()'s TLS 1.2 floor
	res.SetVersionMin(t.VersionMin)
	res.SetVersionMax(t.VersionMax)

	for _, s := range t.Certs {
		res.cert = append(res.cert, s.Cert())
	}

	res.cipherList = append(res.cipherList, t.CipherList...)
	res.curveList = append(res.curveList, t.CurveList...)
	res.caRoot = append(res.caRoot, t.RootCA...)
	res.clientCA = append(res.clientCA, t.ClientCA...)

	return res
}

// overlay merges this Config over the base configuration's own Config
// representation, yielding the effective settings NewFrom materializes.
func (c *Config) overlay(cfg TLSConfig) *Config {
	var t *Config

	if cfg != nil {
		t = cfg.Config()
	}
	if t == nil {
		t = &Config{}
	}

	if c.VersionMin != tlsvrs.VersionUnknown {
		t.VersionMin = c.VersionMin
	}
	if c.VersionMax != tlsvrs.VersionUnknown {
		t.VersionMax = c.VersionMax
	}
	if c.AuthClient != tlsaut.NoClientCert {
		t.AuthClient = c.AuthClient
	}
	if c.DynamicSizingDisable {
		t.DynamicSizingDisable = true
	}
	if c.SessionTicketDisable {
		t.SessionTicketDisable = true
	}

	for _, a := range c.CipherList {
		if a.Check() {
			t.CipherList = append(t.CipherList, a)
		}
	}

	for _, a := range c.CurveList {
		if a.Check() {
			t.CurveList = append(t.CurveList, a)
		}
	}

	t.RootCA = append(t.RootCA, c.RootCA...)
	t.ClientCA = append(t.ClientCA, c.ClientCA...)
	t.Certs = append(t.Certs, c.Certs...)

	return t
}
