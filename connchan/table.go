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

package connchan

import (
	"strconv"
	"sync"
	"sync/atomic"

	liblog "github.com/nabbar/connpool/logger"
)

// Table is the server-wide name -> ConnChan registry. Insertion and
// deletion are serialized by a reader-writer lock; readers (list/status/get)
// may traverse concurrently and are never blocked behind a script
// evaluation.
type Table struct {
	m       sync.RWMutex
	seq     uint64
	entries map[string]*ConnChan
	log     liblog.FuncLog
}

// NewTable builds an empty channel table. log may be nil, in which case the
// table and the channels it mints log nowhere.
func NewTable(log liblog.FuncLog) *Table {
	return &Table{
		entries: make(map[string]*ConnChan),
		log:     log,
	}
}

func (t *Table) logger() liblog.FuncLog {
	if t.log != nil {
		return t.log
	}
	return func() liblog.Logger { return nil }
}

// nextName allocates "conn" + a monotonic counter unique across the table's
// lifetime, the stable key used in the channels map.
func (t *Table) nextName() string {
	n := atomic.AddUint64(&t.seq, 1)
	return "conn" + strconv.FormatUint(n, 10)
}

// Register inserts ch under a freshly allocated name and returns it.
func (t *Table) Register(ch *ConnChan) string {
	name := t.nextName()

	t.m.Lock()
	ch.name = name
	ch.table = t
	t.entries[name] = ch
	t.m.Unlock()

	return name
}

// Get returns the channel registered under name, if any.
func (t *Table) Get(name string) (*ConnChan, bool) {
	t.m.RLock()
	defer t.m.RUnlock()
	ch, ok := t.entries[name]
	return ch, ok
}

// Remove deletes name from the table. It is idempotent: removing a name
// that is already gone is a no-op.
func (t *Table) Remove(name string) {
	t.m.Lock()
	defer t.m.Unlock()
	delete(t.entries, name)
}

// List returns every channel name currently registered, in no particular
// order.
func (t *Table) List() []string {
	t.m.RLock()
	defer t.m.RUnlock()

	out := make([]string, 0, len(t.entries))
	for name := range t.entries {
		out = append(out, name)
	}
	return out
}

// Len reports how many channels are presently registered.
func (t *Table) Len() int {
	t.m.RLock()
	defer t.m.RUnlock()
	return len(t.entries)
}

// Exists reports whether name is a currently-registered channel.
func (t *Table) Exists(name string) bool {
	_, ok := t.Get(name)
	return ok
}
