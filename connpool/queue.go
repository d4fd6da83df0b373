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

import "sync"

// waitQueue is the pool's FIFO of Conns awaiting a worker. It carries its
// own lock, separate from the threads lock and the worker queue's lock, to
// reduce contention.
type waitQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond // not waited on; the shutdown rendezvous is Pool.drainCond
	first *Conn
	last  *Conn
	num   int
}

func newWaitQueue() *waitQueue {
	q := &waitQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// pushBack appends c to the tail; queued Conns are always served in FIFO
// order.
func (q *waitQueue) pushBack(c *Conn) {
	q.mu.Lock()
	defer q.mu.Unlock()

	c.next = nil
	if q.last == nil {
		q.first, q.last = c, c
	} else {
		q.last.next = c
		q.last = c
	}
	q.num++
}

// popFront removes and returns the head Conn, or nil if the queue is empty.
func (q *waitQueue) popFront() *Conn {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popFrontLocked()
}

func (q *waitQueue) popFrontLocked() *Conn {
	c := q.first
	if c == nil {
		return nil
	}

	q.first = c.next
	if q.first == nil {
		q.last = nil
	}
	c.next = nil
	q.num--
	return c
}

// snapshot walks the queue under its lock and summarizes every waiting Conn.
func (q *waitQueue) snapshot() []ConnInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]ConnInfo, 0, q.num)
	for c := q.first; c != nil; c = c.next {
		out = append(out, c.info("queued"))
	}
	return out
}

func (q *waitQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.num
}

func (q *waitQueue) isEmpty() bool {
	return q.len() == 0
}

// freeList is the pool's pool-of-Conn-slots: reusable allocations that cycle
// back here after a worker finishes with them.
type freeList struct {
	mu   sync.Mutex
	head *Conn
	num  int
}

func newFreeList() *freeList {
	return &freeList{}
}

// seed pre-allocates n Conn slots, each id drawn from nextID, and
// stacks them on the free list. Called once at pool construction so the
// steady-state path never calls newConn again.
func (f *freeList) seed(n int, nextID func() uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := 0; i < n; i++ {
		c := newConn(nextID())
		c.next = f.head
		f.head = c
		f.num++
	}
}

// pop removes and returns a Conn slot, or nil if the free list is
// exhausted - the pool is saturated.
func (f *freeList) pop() *Conn {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.head
	if c == nil {
		return nil
	}
	f.head = c.next
	c.next = nil
	f.num--
	return c
}

// push returns c to the free list after reset() has cleared its
// request-scoped fields.
func (f *freeList) push(c *Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c.reset()
	c.next = f.head
	f.head = c
	f.num++
}

func (f *freeList) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.num
}
