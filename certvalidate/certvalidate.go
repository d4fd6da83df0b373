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

// Package certvalidate implements the peer-certificate verification callback:
// a per-server list of IP-scoped exceptions to the default chain validation,
// plus disk persistence of every certificate that ever failed validation.
package certvalidate

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	liberr "github.com/nabbar/connpool/errors"
	liblog "github.com/nabbar/connpool/logger"
)

const (
	ErrorArchiveWrite liberr.CodeError = iota + liberr.MinPkgCertValidate
)

func init() {
	liberr.RegisterIdFctMessage(ErrorArchiveWrite, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorArchiveWrite:
		return "cannot write invalid-certificate archive entry"
	}
	return liberr.UnknownMessage
}

// Rule is one validation-exception entry: a peer IP/mask paired with either
// an explicit list of acceptable x509 error codes, or AcceptAll.
type Rule struct {
	Net       *net.IPNet
	AcceptAll bool
	Codes     map[x509.InvalidReason]struct{}
}

// Matches reports whether this rule covers peer and accepts errCode.
func (r Rule) Matches(peer net.IP, errCode x509.InvalidReason) bool {
	if r.Net != nil && !r.Net.Contains(peer) {
		return false
	}
	if r.AcceptAll {
		return true
	}
	_, ok := r.Codes[errCode]
	return ok
}

// Store holds the exception rule list plus the archive directory for
// rejected certificates.
type Store struct {
	m        sync.RWMutex
	rules    []Rule
	archive  string
	log      liblog.FuncLog
}

func New(archiveDir string, log liblog.FuncLog) *Store {
	return &Store{
		archive: archiveDir,
		log:     log,
	}
}

func (s *Store) logger() liblog.Logger {
	if s.log == nil {
		return nil
	}
	return s.log()
}

func (s *Store) SetRules(rules []Rule) {
	s.m.Lock()
	defer s.m.Unlock()
	s.rules = rules
}

func (s *Store) AddRule(r Rule) {
	s.m.Lock()
	defer s.m.Unlock()
	s.rules = append(s.rules, r)
}

// Allow searches the rule list for one matching peer and errCode, reporting
// valid=true on a match. Every offending certificate is archived before
// Allow returns - accepted via a rule exception or not - so a granted
// exception and a hard rejection both leave a record.
func (s *Store) Allow(cert *x509.Certificate, depth int, peer net.IP, errCode x509.InvalidReason) (valid bool) {
	s.m.RLock()
	rules := s.rules
	s.m.RUnlock()

	valid = false
	for _, r := range rules {
		if r.Matches(peer, errCode) {
			valid = true
			break
		}
	}

	if e := s.archiveCert(cert, depth, int(errCode)); e != nil && s.logger() != nil {
		s.logger().Entry(liblog.WarnLevel, "archiving rejected certificate").
			ErrorAdd(true, e).Log()
	}

	return valid
}

// archiveCert writes cert under <archive>/<sha256-hex>-<depth>-<errcode>.pem,
// skipping the write if the file already exists.
func (s *Store) archiveCert(cert *x509.Certificate, depth, errCode int) error {
	if s.archive == "" || cert == nil {
		return nil
	}

	sum := sha256.Sum256(cert.Raw)
	name := fmt.Sprintf("%s-%d-%d.pem", hex.EncodeToString(sum[:]), depth, errCode)
	path := filepath.Join(s.archive, name)

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(s.archive, 0o750); err != nil {
		return ErrorArchiveWrite.Error(err)
	}

	block := &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return ErrorArchiveWrite.Error(err)
	}
	defer func() { _ = f.Close() }()

	if err = pem.Encode(f, block); err != nil {
		return ErrorArchiveWrite.Error(err)
	}

	return nil
}
