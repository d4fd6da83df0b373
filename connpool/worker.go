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
)

// workerState is the worker-slot lifecycle: a slot only ever appears on
// the worker queue while in stateIdle.
type workerState uint8

const (
	stateInitial workerState = iota
	stateWarmup
	stateReady
	stateIdle
	stateBusy
	stateDead
)

// ConnThreadArg is one worker's advertised-idle slot: its own mutex+condvar,
// used only for the direct enqueue handoff and the worker's own idle wait.
// While holding it, waitForWork also takes the worker-queue and threads
// locks; nothing takes this mutex while holding either of those.
type ConnThreadArg struct {
	mu    sync.Mutex
	cond  *sync.Cond
	next  *ConnThreadArg
	id    uint64
	state workerState

	// conn is the direct-handoff slot; running is the Conn being processed
	// while the slot is busy, kept separately so introspection can read it
	// without racing the handoff protocol.
	conn    *Conn
	running *Conn

	quit     bool
	timedOut bool
}

func newConnThreadArg(id uint64) *ConnThreadArg {
	a := &ConnThreadArg{id: id, state: stateInitial}
	a.cond = sync.NewCond(&a.mu)
	return a
}

func (a *ConnThreadArg) ID() uint64 { return a.id }

// tryHandOff publishes conn into the slot under the slot's own mutex and
// signals its condvar so the wake-up is never lost between the worker's
// null check and its wait. It refuses a slot that is no longer idle - one
// whose worker timed out or was told to quit but has not yet removed
// itself from the queue - so the caller re-dispatches the Conn instead of
// publishing it into a slot nobody will ever drain.
func (a *ConnThreadArg) tryHandOff(conn *Conn) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateIdle || a.quit || a.timedOut {
		return false
	}

	a.conn = conn
	a.cond.Signal()
	return true
}

// shutdownWake signals an idle slot with no Conn to deliver - the shutdown
// drain's broadcast, distinct from tryHandOff so a worker blocked in
// waitForWork can tell "woken for real work" from "woken to die" instead
// of looping forever on a nil conn.
func (a *ConnThreadArg) shutdownWake() {
	a.mu.Lock()
	a.quit = true
	a.cond.Signal()
	a.mu.Unlock()
}

// workerQueue is the list of idle worker slots advertising themselves for
// direct handoff.
type workerQueue struct {
	mu   sync.Mutex
	head *ConnThreadArg
	num  int
}

func newWorkerQueue() *workerQueue {
	return &workerQueue{}
}

func (w *workerQueue) push(a *ConnThreadArg) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a.next = w.head
	w.head = a
	w.num++
}

// pop removes an arbitrary advertised-idle slot, or nil if none are idle.
func (w *workerQueue) pop() *ConnThreadArg {
	w.mu.Lock()
	defer w.mu.Unlock()

	a := w.head
	if a == nil {
		return nil
	}
	w.head = a.next
	a.next = nil
	w.num--
	return a
}

// remove drops a specific slot from the queue (a worker that times out
// dequeues itself before dying).
func (w *workerQueue) remove(target *ConnThreadArg) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.head == target {
		w.head = target.next
		target.next = nil
		w.num--
		return
	}

	for p := w.head; p != nil && p.next != nil; p = p.next {
		if p.next == target {
			p.next = target.next
			target.next = nil
			w.num--
			return
		}
	}
}

func (w *workerQueue) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.num
}

// shouldCreateThread decides whether to start another worker: create one
// iff every condition below holds, evaluated atomically under the threads
// lock with wq the wait-queue length observed by the caller.
func (p *Pool) shouldCreateThread(wq int) bool {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()

	if p.shuttingDown.Load() {
		return false
	}
	if p.current >= p.cfg.MaxThreads {
		return false
	}
	if !(p.creating == 0 || wq > p.cfg.HighWaterMark) {
		return false
	}
	if !(p.idle < p.cfg.MinThreads || wq > p.cfg.LowWaterMark) {
		return false
	}

	p.current++
	p.creating++
	return true
}

// runWorker is the worker main loop, launched as a goroutine by
// spawnWorker; it exits on idle timeout (above min threads), on shutdown,
// or after connsPerThread requests, whichever comes first.
func (p *Pool) runWorker() {
	start := time.Now()
	arg := newConnThreadArg(p.newWorkerID())

	arg.mu.Lock()
	arg.state = stateWarmup
	arg.mu.Unlock()

	p.registerSlot(arg)
	defer p.unregisterSlot(arg)

	p.logger().Entry(infoLevel(), "worker warmup").
		FieldAdd("pool", p.cfg.Name).
		FieldAdd("worker", arg.id).Log()

	p.threadsMu.Lock()
	arg.state = stateReady
	p.creating--
	p.threadsMu.Unlock()

	p.logger().Entry(infoLevel(), "worker warmup complete").
		FieldAdd("pool", p.cfg.Name).
		FieldAdd("worker", arg.id).
		FieldAdd("latency", time.Since(start)).Log()

	processed := 0

	for {
		var conn *Conn

		if p.shuttingDown.Load() && p.wait.isEmpty() {
			break
		}

		if conn = p.wait.popFront(); conn == nil {
			conn = p.waitForWork(arg)
			if conn == nil {
				// woke on idle timeout or the shutdown broadcast; queued
				// Conns are still drained before this worker may exit
				if p.shuttingDown.Load() {
					if p.wait.isEmpty() {
						break
					}
					continue
				}
				p.threadsMu.Lock()
				excess := p.current > p.cfg.MinThreads
				p.threadsMu.Unlock()
				if excess {
					break
				}
				continue
			}
		}

		arg.mu.Lock()
		arg.state = stateBusy
		arg.running = conn
		arg.mu.Unlock()

		p.processOne(conn)

		arg.mu.Lock()
		arg.state = stateReady
		arg.running = nil
		arg.mu.Unlock()

		p.free.push(conn)
		processed++

		if p.cfg.ConnsPerThread > 0 && processed >= p.cfg.ConnsPerThread {
			break
		}
	}

	arg.mu.Lock()
	arg.state = stateDead
	arg.mu.Unlock()
	p.workers.remove(arg)

	p.threadsMu.Lock()
	p.current--
	belowMin := p.current < p.cfg.MinThreads && !p.shuttingDown.Load()
	p.threadsMu.Unlock()

	p.logger().Entry(infoLevel(), "worker exit").
		FieldAdd("pool", p.cfg.Name).
		FieldAdd("worker", arg.id).
		FieldAdd("processed", processed).Log()

	p.joinZombie(arg.id)

	if belowMin {
		p.wakeDriver()
	}

	// broadcasting under drainMu pairs with Wait's predicate check, so a
	// waiter cannot miss the final worker's exit between check and wait.
	p.drainMu.Lock()
	p.drainCond.Broadcast()
	p.drainMu.Unlock()
}

// waitForWork advertises arg on the worker queue, marks it idle, and waits
// on its own condvar bounded by the pool's idle timeout. Returns the Conn
// handed off, or nil on timeout/spurious shutdown wake. The pool's idle
// gauge covers exactly the span spent inside this call.
func (p *Pool) waitForWork(arg *ConnThreadArg) *Conn {
	arg.mu.Lock()
	arg.state = stateIdle
	arg.conn = nil
	arg.quit = false
	arg.timedOut = false
	p.workers.push(arg)

	// Shutdown sets the flag before draining the worker queue; a slot pushed
	// after that drain would otherwise sleep out its whole idle timeout.
	if p.shuttingDown.Load() {
		arg.quit = true
	}

	p.threadsMu.Lock()
	p.idle++
	p.threadsMu.Unlock()

	timeout := p.cfg.IdleTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	timer := time.AfterFunc(timeout, func() {
		arg.mu.Lock()
		arg.timedOut = true
		arg.cond.Signal()
		arg.mu.Unlock()
	})

	for arg.conn == nil && !arg.quit && !arg.timedOut {
		arg.cond.Wait()
	}

	conn := arg.conn
	arg.conn = nil
	// leaving idle: from here on tryHandOff must refuse this slot even if
	// it is still sitting on the worker queue
	arg.state = stateReady
	arg.mu.Unlock()

	timer.Stop()

	p.threadsMu.Lock()
	p.idle = max0(p.idle - 1)
	p.threadsMu.Unlock()

	if conn == nil {
		p.workers.remove(arg)
	}

	return conn
}

// joinZombie drains the single-slot zombie join-queue: a finishing worker
// tries once to receive a previously-exited worker's id, a rendezvous that
// reaps exited workers without a dedicated reaper thread.
func (p *Pool) joinZombie(selfID uint64) {
	select {
	case id := <-p.joinQueue:
		p.logger().Entry(infoLevel(), "worker joined zombie").
			FieldAdd("pool", p.cfg.Name).
			FieldAdd("worker", selfID).
			FieldAdd("zombie", id).Log()
	default:
	}

	select {
	case p.joinQueue <- selfID:
	default:
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
