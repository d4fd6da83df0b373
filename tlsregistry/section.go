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
	tlsaut "github.com/nabbar/connpool/certificates/auth"
	tlscpr "github.com/nabbar/connpool/certificates/cipher"
	tlscrv "github.com/nabbar/connpool/certificates/curves"
	tlsvrs "github.com/nabbar/connpool/certificates/tlsversion"
)

// PassCallback resolves the passphrase for an encrypted private key file.
// The registry tries, in order: a configured helper script, the
// TLS_KEY_PASS_<MANGLED_PATH> environment variable, the plain TLS_KEY_PASS
// variable, and finally an interactive stdin prompt - see resolvePassphrase.
type PassCallback func(keyFile string) (string, error)

// SectionConfig is the registry's input for one named TLS context: the
// key/cert pair and trust material on disk, the handshake policy, and the
// SNI names this context should answer for.
type SectionConfig struct {
	Name string

	CertFile string
	KeyFile  string

	RootCAFiles   []string
	ClientCAFiles []string

	ClientAuth tlsaut.ClientAuth

	VersionMin tlsvrs.Version
	VersionMax tlsvrs.Version

	CipherList []tlscpr.Cipher
	CurveList  []tlscrv.Curves

	// ALPN lists the protocol identifiers this context advertises, most
	// preferred first (e.g. "h2", "http/1.1").
	ALPN []string

	// SNIHosts lists the handshake ServerName values routed to this
	// section. An empty list makes the section the fallback context.
	SNIHosts []string

	// HelperScript, if set, is invoked as `HelperScript keyFile` and its
	// trimmed stdout is used as the passphrase.
	HelperScript string

	// OCSPStaple enables fetching and caching an OCSP response for this
	// section's leaf certificate, stapled onto every handshake.
	OCSPStaple bool
}
