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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"

	liblog "github.com/nabbar/connpool/logger"
)

// Watch starts an fsnotify watcher on every registered section's cert and
// key file, calling Reload(name) whenever one of them is written or
// renamed onto (the common pattern for atomic certificate rotation). It
// runs until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrorBuildContext.Error(err)
	}

	r.m.RLock()
	byPath := make(map[string]string, len(r.ctx)*2)
	for name, c := range r.ctx {
		if c.cfg.CertFile != "" {
			byPath[c.cfg.CertFile] = name
			_ = w.Add(c.cfg.CertFile)
		}
		if c.cfg.KeyFile != "" {
			byPath[c.cfg.KeyFile] = name
			_ = w.Add(c.cfg.KeyFile)
		}
	}
	r.m.RUnlock()

	go func() {
		defer func() { _ = w.Close() }()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				name, ok := byPath[ev.Name]
				if !ok {
					continue
				}
				if err := r.Reload(name); err != nil {
					if l := r.logger(); l != nil {
						l.Entry(liblog.WarnLevel, "tls section reload on file change failed").
							FieldAdd("section", name).FieldAdd("file", ev.Name).
							ErrorAdd(true, err).Log()
					}
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if l := r.logger(); l != nil {
					l.Entry(liblog.WarnLevel, "tls registry file watch error").ErrorAdd(true, err).Log()
				}
			}
		}
	}()

	return nil
}

// WatchSignal reloads every registered section on SIGHUP, the classic
// rotate-then-signal certificate deployment. It runs until ctx is
// cancelled and composes with Watch: one reacts to the files changing,
// the other to the operator saying "now".
func (r *Registry) WatchSignal(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)

		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if l := r.logger(); l != nil {
					l.Entry(liblog.InfoLevel, "SIGHUP received, reloading every tls section").Log()
				}
				r.ReloadAll()
			}
		}
	}()
}
