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

package sockio

import "github.com/bits-and-blooms/bitset"

// Flag bit positions shared by Sock and the pool's Conn slot; Conn carries
// the full set, Sock mirrors only the transport-relevant subset.
const (
	FlagConfigured uint = iota
	FlagClosed
	FlagSockWaiting
	FlagSkipHdrs
	FlagSkipBody
)

// Flags is a small bitset wrapper, used instead of a hand-rolled uint32 so
// adding a new flag never forces a type change at every call site.
type Flags struct {
	b *bitset.BitSet
}

func NewFlags() Flags {
	return Flags{b: bitset.New(8)}
}

func (f Flags) Set(bit uint) Flags {
	f.b.Set(bit)
	return f
}

func (f Flags) Clear(bit uint) Flags {
	f.b.Clear(bit)
	return f
}

func (f Flags) Has(bit uint) bool {
	if f.b == nil {
		return false
	}
	return f.b.Test(bit)
}

// Clone returns an independent copy so migrating a Conn between free-list,
// wait-queue, and worker-slot never aliases another slot's flags.
func (f Flags) Clone() Flags {
	if f.b == nil {
		return NewFlags()
	}
	return Flags{b: f.b.Clone()}
}
