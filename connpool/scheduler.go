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

package connpool

import (
	"context"
	"net/http"
	"sync"
	"time"

	liblog "github.com/nabbar/connpool/logger"
	"github.com/nabbar/connpool/sockio"
)

// RouteFunc performs minimal URL-space routing: given the request method,
// URL, and header-derived context, it returns the name of the pool that
// should serve the request, or "" for "no match, use the server's default
// pool". Full routing-table semantics (virtual hosts, path trees) live
// upstream; this is the hook a caller wires a real router's decision
// through.
type RouteFunc func(method, url string, headers http.Header) string

// Scheduler spans every pool a server owns: it holds the named pools, the
// default pool used on a routing miss, and the server-wide shutdown/drain
// orchestration layered on top of per-pool locks.
type Scheduler struct {
	mu          sync.RWMutex
	pools       map[string]*Pool
	defaultPool *Pool
	route       RouteFunc
	log         liblog.FuncLog
	mon         *Monitor

	shuttingDown bool
}

// NewScheduler builds an empty Scheduler. route may be nil, in which case
// every Sock not already carrying a pool goes to the default pool.
func NewScheduler(route RouteFunc, log liblog.FuncLog) *Scheduler {
	return &Scheduler{
		pools: make(map[string]*Pool),
		route: route,
		log:   log,
		mon:   NewMonitor(),
	}
}

// Monitor returns a point-in-time process-level reading (goroutines, CPU,
// RSS) alongside the per-pool Snapshots the admin surface reports.
func (s *Scheduler) Monitor() MonitorSnapshot {
	return s.mon.Sample()
}

// AddPool registers p under its own name. The first pool added also becomes
// the default unless SetDefault is called explicitly. Returns
// ErrorPoolExists if the name is already taken.
func (s *Scheduler) AddPool(p *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[p.Name()]; ok {
		return ErrorPoolExists.Error(nil)
	}

	p.SetWakeDriver(func(pl *Pool) {
		s.logger().Entry(liblog.WarnLevel, "pool thread count below minimum outside shutdown").
			FieldAdd("pool", pl.Name()).Log()
	})

	s.pools[p.Name()] = p
	if s.defaultPool == nil {
		s.defaultPool = p
	}

	return nil
}

// SetDefault designates an already-registered pool as the fallback used on
// a routing miss.
func (s *Scheduler) SetDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[name]
	if !ok {
		return ErrorPoolMissing.Error(nil)
	}
	s.defaultPool = p
	return nil
}

func (s *Scheduler) Get(name string) (*Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[name]
	return p, ok
}

func (s *Scheduler) logger() liblog.Logger {
	if s.log == nil {
		return liblog.New(context.Background())
	} else if l := s.log(); l != nil {
		return l
	}
	return liblog.New(context.Background())
}

// Enqueue is the top-level admission entrypoint: reject outright if the
// server is shutting down, then resolve a pool by routing and hand off to
// Pool.Enqueue.
func (s *Scheduler) Enqueue(sock *sockio.Sock, method, url string, headers http.Header) error {
	s.mu.RLock()
	down := s.shuttingDown
	route := s.route
	s.mu.RUnlock()

	if down {
		return ErrorPoolShuttingDown.Error(nil)
	}

	p := s.resolvePool(method, url, headers, route)
	if p == nil {
		return ErrorNoDefaultPool.Error(nil)
	}

	return p.Enqueue(sock, method, url)
}

func (s *Scheduler) resolvePool(method, url string, headers http.Header, route RouteFunc) *Pool {
	if route != nil {
		if name := route(method, url, headers); name != "" {
			if p, ok := s.Get(name); ok {
				return p
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultPool
}

// Shutdown marks the scheduler (and transitively every registered pool) as
// draining. New Enqueue calls fail immediately with ErrorPoolShuttingDown.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	pools := make([]*Pool, 0, len(s.pools))
	for _, p := range s.pools {
		pools = append(pools, p)
	}
	s.mu.Unlock()

	for _, p := range pools {
		p.Shutdown()
	}
}

// Wait blocks until every registered pool has drained or timeout elapses.
func (s *Scheduler) Wait(timeout time.Duration) error {
	pools := s.poolList()
	deadline := time.Now().Add(timeout)

	for _, p := range pools {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrorPoolDrainTimeout.Error(nil)
		}
		if err := p.Wait(remaining); err != nil {
			return err
		}
	}

	return nil
}

// Active aggregates every pool's in-flight Conn summaries.
func (s *Scheduler) Active() []ConnInfo {
	out := make([]ConnInfo, 0)
	for _, p := range s.poolList() {
		out = append(out, p.Active()...)
	}
	return out
}

// Queued aggregates every pool's waiting Conn summaries.
func (s *Scheduler) Queued() []ConnInfo {
	out := make([]ConnInfo, 0)
	for _, p := range s.poolList() {
		out = append(out, p.Queued()...)
	}
	return out
}

func (s *Scheduler) poolList() []*Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	return out
}

// Snapshots returns a Stats snapshot for every registered pool, the payload
// behind the pools/stats introspection surface.
func (s *Scheduler) Snapshots() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p.Stats())
	}
	return out
}
