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

package reqrunner

import (
	"context"

	"github.com/nabbar/connpool/connpool"
	"github.com/nabbar/connpool/result"
)

// FilterFunc is one step of a filter-phase chain: pre-auth, authorize,
// post-auth, trace, and void-trace are each an ordered list of these, the
// request handler itself is a chain of exactly one.
type FilterFunc func(ctx context.Context, conn *connpool.Conn) result.Code

// runChain runs filters in order against conn. An OK result advances to the
// next filter; FILTER_BREAK stops the chain but reports OK to the caller, so
// the pipeline proceeds to its next phase as if the chain had completed
// cleanly; any other code (a terminal code or FILTER_RETURN) stops the chain
// and is returned unchanged to short-circuit the whole pipeline.
func runChain(ctx context.Context, conn *connpool.Conn, filters []FilterFunc) result.Code {
	for _, f := range filters {
		if f == nil {
			continue
		}

		switch code := f(ctx, conn); code {
		case result.OK:
			continue
		case result.FILTER_BREAK:
			return result.OK
		default:
			return code
		}
	}

	return result.OK
}
