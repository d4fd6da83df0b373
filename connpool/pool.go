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
	"sync"
	"sync/atomic"
	"time"

	libatm "github.com/nabbar/connpool/atomic"
	liblog "github.com/nabbar/connpool/logger"
	"github.com/nabbar/connpool/sockio"
)

// HandlerFunc runs one Conn to completion inside a worker (the request
// runner, injected so connpool never imports reqrunner directly - the
// dependency points the other way, reqrunner depends on connpool.Conn).
type HandlerFunc func(ctx context.Context, conn *Conn) error

// Pool is one logical request-pool within a virtual server: a bounded,
// tunable set of worker goroutines, its wait queue, its free list, and the
// stats the introspection surface reports.
type Pool struct {
	cfg     Config
	log     liblog.FuncLog
	handler HandlerFunc

	threadsMu sync.Mutex
	current   int
	idle      int
	creating  int

	nextWorker uint64
	nextConn   uint64

	wait    *waitQueue
	free    *freeList
	workers *workerQueue

	// slots registers every live worker slot, busy or idle, so the
	// active/all introspection commands can walk them; the worker queue
	// itself only ever holds the idle ones.
	slotsMu sync.Mutex
	slots   map[uint64]*ConnThreadArg

	drainMu   sync.Mutex
	drainCond *sync.Cond

	shuttingDown libatm.Value[bool]

	joinQueue chan uint64

	stats *Stats

	wg sync.WaitGroup

	// onBelowMin, set by Scheduler.AddPool, lets the scheduler's accept
	// loop react to a pool's thread count dropping below its minimum
	// outside shutdown.
	onBelowMin func(*Pool)
}

// SetWakeDriver installs the hook called when the worker count drops below
// MinThreads outside shutdown.
func (p *Pool) SetWakeDriver(fn func(*Pool)) { p.onBelowMin = fn }

// New builds a Pool from cfg. It validates cfg, seeds the free list with
// MaxThreads+HighWaterMark slots (every worker busy plus a wait queue at
// its high watermark - exhausting that is the saturation case of the
// enqueue algorithm's step 6), and starts MinThreads workers so the pool is
// at steady state on return.
func New(cfg Config, handler HandlerFunc, log liblog.FuncLog) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		wait:      newWaitQueue(),
		free:      newFreeList(),
		workers:   newWorkerQueue(),
		slots:     make(map[uint64]*ConnThreadArg),
		joinQueue: make(chan uint64, 1),
		stats:     newStats(cfg.Name),
	}
	p.drainCond = sync.NewCond(&p.drainMu)
	p.shuttingDown = libatm.NewValueDefault[bool](false, false)

	seed := cfg.MaxThreads + cfg.HighWaterMark
	if seed <= 0 {
		seed = cfg.MinThreads
	}
	p.free.seed(seed, p.nextConnID)

	for i := 0; i < cfg.MinThreads; i++ {
		p.threadsMu.Lock()
		p.current++
		p.creating++
		p.threadsMu.Unlock()
		p.spawnWorker()
	}

	return p, nil
}

func (p *Pool) Name() string { return p.cfg.Name }

func (p *Pool) logger() liblog.Logger {
	if p.log == nil {
		return liblog.New(context.Background())
	} else if l := p.log(); l != nil {
		return l
	}
	return liblog.New(context.Background())
}

func infoLevel() liblog.Level { return liblog.InfoLevel }

func (p *Pool) nextConnID() uint64 {
	return atomic.AddUint64(&p.nextConn, 1)
}

func (p *Pool) newWorkerID() uint64 {
	return atomic.AddUint64(&p.nextWorker, 1)
}

func (p *Pool) spawnWorker() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runWorker()
	}()
}

// wakeDriver is a hook the owning Scheduler overrides via SetWakeDriver; by
// default it is a no-op. It lets the driver start a replacement when the
// worker count drops below min outside shutdown.
func (p *Pool) wakeDriver() {
	if p.onBelowMin != nil {
		p.onBelowMin(p)
	}
}

// Enqueue admits a Sock already routed to this pool. method/url are what a
// minimal URL-space router would have extracted; request parsing itself
// happens upstream in the driver.
func (p *Pool) Enqueue(sock *sockio.Sock, method, url string) error {
	if p.shuttingDown.Load() {
		return ErrorPoolShuttingDown.Error(nil)
	}

	conn := p.free.pop()
	if conn == nil {
		if p.cfg.RejectOverrun {
			p.stats.incDropped()
			return ErrorPoolSaturated.Error(nil)
		}
		sock.SetFlags(sock.Flags().Clone().Set(sockio.FlagSockWaiting))
		return ErrorPoolTimeout.Error(nil)
	}

	conn.fillFromSock(sock, method, url)
	conn.pool = p

	dispatched := false
	for {
		a := p.workers.pop()
		if a == nil {
			break
		}
		// a popped slot may have timed out between the pop and the
		// handoff; a refused slot is simply skipped, its worker is
		// already on its way out of the queue
		if a.tryHandOff(conn) {
			dispatched = true
			break
		}
	}

	if !dispatched {
		p.wait.pushBack(conn)
		p.stats.incQueued()
	}

	wq := p.wait.len()
	if p.shouldCreateThread(wq) {
		p.spawnWorker()
	}

	return nil
}

// processOne runs conn through the injected HandlerFunc, recording the
// per-request timing stats the introspection commands report, then closes
// the connection: a request that did not detach still owns its transport,
// so the Sock is released here before the slot cycles back to the free
// list. A detached Sock already moved to a ConnChan (TakeSock nils the
// reference) and is left alone.
func (p *Pool) processOne(conn *Conn) {
	conn.SetDequeueTime(time.Now())

	ctx := context.Background()
	if p.handler != nil {
		if err := p.handler(ctx, conn); err != nil {
			p.logger().Entry(liblog.WarnLevel, "request handler error").
				FieldAdd("pool", p.cfg.Name).
				FieldAdd("conn", conn.id).
				ErrorAdd(true, err).Log()
		}
	}

	conn.SetFilterDoneTime(time.Now())

	if s := conn.Sock(); s != nil {
		_ = s.Close()
	}

	p.stats.incProcessed()
}

// Rate returns the pool's per-writer-thread rate tracker, so a response
// writer thread can record its throughput and the pool-rate introspection
// can aggregate it.
func (p *Pool) Rate() *RateTracker { return p.stats.rate }

// RecordBytes folds n bytes into the pool's accumulated byte counter.
func (p *Pool) RecordBytes(n int) { p.stats.addBytes(n) }

// RecordSpooled counts a request whose body the writer spooled to disk
// rather than holding in memory.
func (p *Pool) RecordSpooled() { p.stats.incSpooled() }

func (p *Pool) registerSlot(a *ConnThreadArg) {
	p.slotsMu.Lock()
	p.slots[a.id] = a
	p.slotsMu.Unlock()
}

func (p *Pool) unregisterSlot(a *ConnThreadArg) {
	p.slotsMu.Lock()
	delete(p.slots, a.id)
	p.slotsMu.Unlock()
}

// Active summarizes every Conn currently held by a busy worker slot, each
// read under that slot's own lock so a snapshot never races the handoff
// protocol.
func (p *Pool) Active() []ConnInfo {
	p.slotsMu.Lock()
	slots := make([]*ConnThreadArg, 0, len(p.slots))
	for _, a := range p.slots {
		slots = append(slots, a)
	}
	p.slotsMu.Unlock()

	out := make([]ConnInfo, 0, len(slots))
	for _, a := range slots {
		a.mu.Lock()
		if a.state == stateBusy && a.running != nil {
			out = append(out, a.running.info("running"))
		}
		a.mu.Unlock()
	}
	return out
}

// Queued summarizes every Conn still sitting in the wait queue.
func (p *Pool) Queued() []ConnInfo {
	return p.wait.snapshot()
}

// All is Active plus Queued, the `server all` payload.
func (p *Pool) All() []ConnInfo {
	return append(p.Active(), p.Queued()...)
}

// Stats returns a snapshot of the pool's counters and thread gauges.
func (p *Pool) Stats() Snapshot {
	p.threadsMu.Lock()
	cur, idle, creating := p.current, p.idle, p.creating
	p.threadsMu.Unlock()

	return Snapshot{
		Name:      p.cfg.Name,
		Current:   cur,
		Idle:      idle,
		Creating:  creating,
		Min:       p.cfg.MinThreads,
		Max:       p.cfg.MaxThreads,
		Queued:    p.wait.len(),
		Free:      p.free.len(),
		Processed: p.stats.processed(),
		Dropped:   p.stats.dropped(),
		Spooled:   p.stats.spooled(),
	}
}

// Shutdown marks the pool as draining: idle workers are woken and will not
// pick up further work once the wait queue empties.
func (p *Pool) Shutdown() {
	p.shuttingDown.Store(true)

	for {
		a := p.workers.pop()
		if a == nil {
			break
		}
		a.shutdownWake()
	}
}

// Wait blocks until the pool has fully drained (current == 0 and the wait
// queue is empty) or timeout elapses. The wait is a condvar rendezvous:
// every exiting worker broadcasts drainCond, and the deadline fires one
// last broadcast so the wait cannot outlive timeout.
func (p *Pool) Wait(timeout time.Duration) error {
	var expired bool

	t := time.AfterFunc(timeout, func() {
		p.drainMu.Lock()
		expired = true
		p.drainMu.Unlock()
		p.drainCond.Broadcast()
	})
	defer t.Stop()

	p.drainMu.Lock()
	for !expired && !p.drained() {
		p.drainCond.Wait()
	}
	ok := p.drained()
	p.drainMu.Unlock()

	if !ok {
		return ErrorPoolDrainTimeout.Error(nil)
	}

	// join the last worker: current hits zero just before the goroutine
	// itself returns, so bridge the gap with the pool's own WaitGroup.
	p.wg.Wait()
	return nil
}

func (p *Pool) drained() bool {
	p.threadsMu.Lock()
	cur := p.current
	p.threadsMu.Unlock()
	return cur == 0 && p.wait.isEmpty()
}
