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

import liberr "github.com/nabbar/connpool/errors"

const (
	ErrorPoolValidate liberr.CodeError = iota + liberr.MinPkgConnPool
	ErrorPoolShuttingDown
	ErrorPoolSaturated
	ErrorPoolTimeout
	ErrorPoolDrainTimeout
	ErrorNoDefaultPool
	ErrorPoolExists
	ErrorPoolMissing
)

func init() {
	liberr.RegisterIdFctMessage(ErrorPoolValidate, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorPoolValidate:
		return "pool configuration failed validation"
	case ErrorPoolShuttingDown:
		return "pool is shutting down, new connections are not accepted"
	case ErrorPoolSaturated:
		return "pool is saturated and configured to reject overrun"
	case ErrorPoolTimeout:
		return "pool has no free connection slot, retry later"
	case ErrorPoolDrainTimeout:
		return "pool did not drain its workers within the configured timeout"
	case ErrorNoDefaultPool:
		return "no default pool registered on the scheduler"
	case ErrorPoolExists:
		return "a pool with this name is already registered"
	case ErrorPoolMissing:
		return "no pool registered under this name"
	}
	return liberr.UnknownMessage
}
