/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package httpserver is the driver of the connection pool scheduler: it owns
// the bound listener, applies TLS from a tlsregistry.Registry section when
// configured, and is the sole producer feeding accepted sockets into a
// connpool.Scheduler. It is the "driver thread" the rest of this module's
// spec refers to but never itself implements, since the scheduler and the
// request runner are transport-agnostic.
//
// A Driver reads just enough of each accepted connection - the request line
// and headers - to route it to a pool, then hands the still-unconsumed
// connection to sockio.Sock so the scheduler's worker and the request
// runner see the same byte stream a raw accept would have produced.
//
// Start/Stop/IsRunning/Uptime are backed by a runner/startstop.Runner
// instead of a hand-rolled running flag.
//
// admin.go exposes the read-only half of the "server ... {pools | stats |
// threads}" command surface over HTTP via gin, backed directly by the
// scheduler's snapshots.
package httpserver
