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

// Package result carries the small set of boundary outcomes every component
// in this module returns, layered the way httpserver/error.go layers a
// handful of named conditions on top of the errors.CodeError registry.
package result

// Code is the outcome of a core operation: request-runner filter phases,
// pool admission, and channel commands all settle on one of these.
type Code uint8

const (
	OK Code = iota
	ERROR
	TIMEOUT
	UNAUTHORIZED
	FORBIDDEN
	FILTER_BREAK
	FILTER_RETURN
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case ERROR:
		return "ERROR"
	case TIMEOUT:
		return "TIMEOUT"
	case UNAUTHORIZED:
		return "UNAUTHORIZED"
	case FORBIDDEN:
		return "FORBIDDEN"
	case FILTER_BREAK:
		return "FILTER_BREAK"
	case FILTER_RETURN:
		return "FILTER_RETURN"
	}
	return "UNKNOWN"
}

// Terminal reports whether a worker should stop attempting further phases
// once this code comes back: only OK and the two filter short-circuits let
// the trace phase still run, everything else heads straight for the error
// response.
func (c Code) Terminal() bool {
	switch c {
	case ERROR, TIMEOUT, FORBIDDEN, UNAUTHORIZED:
		return true
	}
	return false
}
