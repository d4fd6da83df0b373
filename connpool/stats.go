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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is a point-in-time read of a Pool's thread gauges and counters,
// the payload behind the stats/threads introspection surface.
type Snapshot struct {
	Name      string
	Current   int
	Idle      int
	Creating  int
	Min       int
	Max       int
	Queued    int
	Free      int
	Processed uint64
	Dropped   uint64
	Spooled   uint64
}

// Stats carries one pool's counters and rates: processed/queued/dropped/
// spooled counts, accumulated bytes, and a dynamic list of per-writer-thread
// rate samples aggregated under a single rate lock. Counters are exported
// as prometheus metrics labeled by pool name.
type Stats struct {
	processedC prometheus.Counter
	queuedC    prometheus.Counter
	droppedC   prometheus.Counter
	spooledC   prometheus.Counter
	bytesC     prometheus.Counter

	mu     sync.Mutex
	nProc  uint64
	nQue   uint64
	nDrop  uint64
	nSpool uint64

	rate *RateTracker
}

func newStats(poolName string) *Stats {
	mk := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "connpool",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"pool": poolName},
		})
	}

	s := &Stats{
		processedC: mk("requests_processed_total", "requests fully processed by this pool"),
		queuedC:    mk("requests_queued_total", "requests that spent time in the wait queue"),
		droppedC:   mk("requests_dropped_total", "requests rejected because the pool was saturated"),
		spooledC:   mk("requests_spooled_total", "requests whose body was spooled to disk"),
		bytesC:     mk("bytes_total", "bytes moved through this pool's connections"),
		rate:       newRateTracker(),
	}

	// Registration failures (duplicate pool name re-registered) are not
	// fatal: the pool still functions, it just won't export metrics twice.
	_ = prometheus.Register(s.processedC)
	_ = prometheus.Register(s.queuedC)
	_ = prometheus.Register(s.droppedC)
	_ = prometheus.Register(s.spooledC)
	_ = prometheus.Register(s.bytesC)

	return s
}

func (s *Stats) incProcessed() {
	s.mu.Lock()
	s.nProc++
	s.mu.Unlock()
	s.processedC.Inc()
}

func (s *Stats) incQueued() {
	s.mu.Lock()
	s.nQue++
	s.mu.Unlock()
	s.queuedC.Inc()
}

func (s *Stats) incDropped() {
	s.mu.Lock()
	s.nDrop++
	s.mu.Unlock()
	s.droppedC.Inc()
}

func (s *Stats) incSpooled() {
	s.mu.Lock()
	s.nSpool++
	s.mu.Unlock()
	s.spooledC.Inc()
}

func (s *Stats) addBytes(n int) {
	if n > 0 {
		s.bytesC.Add(float64(n))
	}
}

func (s *Stats) processed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nProc
}

func (s *Stats) dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nDrop
}

func (s *Stats) spooled() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nSpool
}

// rateSample is one writer thread's byte/time observation.
type rateSample struct {
	bytes int64
	at    time.Time
}

// RateTracker aggregates a dynamic list of per-writer-thread rate samples
// under one lock, backing the connection-rate and pool-rate values the
// introspection surface reports.
type RateTracker struct {
	mu      sync.Mutex
	samples map[uint64]rateSample
}

func newRateTracker() *RateTracker {
	return &RateTracker{samples: make(map[uint64]rateSample)}
}

// Record stores the latest (bytes, time) observation for a writer thread id,
// replacing any previous sample for the same id.
func (r *RateTracker) Record(writerID uint64, bytes int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[writerID] = rateSample{bytes: bytes, at: at}
}

// Forget drops a writer thread's sample, e.g. when that worker exits.
func (r *RateTracker) Forget(writerID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.samples, writerID)
}

// AggregateBytesPerSecond sums every live sample's instantaneous rate
// relative to now, the pool-wide figure `poolratelimit` reports.
func (r *RateTracker) AggregateBytesPerSecond(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total float64
	for _, s := range r.samples {
		elapsed := now.Sub(s.at).Seconds()
		if elapsed <= 0 {
			continue
		}
		total += float64(s.bytes) / elapsed
	}
	return total
}
