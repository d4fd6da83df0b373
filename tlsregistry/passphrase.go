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
	"bufio"
	"crypto/x509" //nolint:staticcheck
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// mangleEnvName turns a key file path into the TLS_KEY_PASS_<MANGLED_PATH>
// variable name: non-alphanumerics become underscores, upper-cased.
func mangleEnvName(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return "TLS_KEY_PASS_" + b.String()
}

// resolvePassphrase tries, in order: helper script, per-path env var,
// blanket env var, interactive stdin - the first non-empty result wins.
func resolvePassphrase(keyFile, helper string) (string, error) {
	if helper != "" {
		if p, err := expandHome(helper); err == nil {
			helper = p
		}
		out, err := exec.Command(helper, keyFile).Output() //nolint:gosec
		if err == nil {
			if s := strings.TrimSpace(string(out)); s != "" {
				return s, nil
			}
		}
	}

	if v := os.Getenv(mangleEnvName(keyFile)); v != "" {
		return v, nil
	}

	if v := os.Getenv("TLS_KEY_PASS"); v != "" {
		return v, nil
	}

	fmt.Fprintf(os.Stderr, "enter passphrase for %s: ", keyFile) //nolint:errcheck
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", ErrorPassCallback.Error(err)
	}

	return strings.TrimSpace(line), nil
}

func expandHome(path string) (string, error) {
	return homedir.Expand(path)
}

// decryptKeyPEM reads keyFile and, if its sole PEM block is encrypted,
// decrypts it with a passphrase resolved through resolvePassphrase. It
// returns the resulting (always cleartext) key PEM as bytes.
func decryptKeyPEM(keyFile, helper string) ([]byte, error) {
	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, ErrorBuildContext.Error(err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return raw, nil
	}

	if !x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		return raw, nil
	}

	pass, err := resolvePassphrase(keyFile, helper)
	if err != nil {
		return nil, err
	}

	der, err := x509.DecryptPEMBlock(block, []byte(pass)) //nolint:staticcheck
	if err != nil {
		return nil, ErrorPassCallback.Error(err)
	}

	out := pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der})
	return out, nil
}
