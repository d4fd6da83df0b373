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
	"net/http"
	"time"

	"github.com/nabbar/connpool/connpool"
	liblog "github.com/nabbar/connpool/logger"
	"github.com/nabbar/connpool/result"
)

// CaseFold selects the header-name normalization the runner applies before
// the pre-auth chain runs.
type CaseFold uint8

const (
	CaseFoldPreserve CaseFold = iota
	CaseFoldLower
	CaseFoldUpper
)

// Runner wires one worker's filter-phase pipeline: ordered pre-auth/
// authorize/post-auth/trace/void-trace chains around a single request
// handler, injected the way connpool.Pool is handed a HandlerFunc so
// neither package imports the other's concrete type beyond connpool.Conn.
type Runner struct {
	PreAuth   []FilterFunc
	Authorize []FilterFunc
	PostAuth  []FilterFunc
	Handler   FilterFunc
	Trace     []FilterFunc
	VoidTrace []FilterFunc

	CaseFold CaseFold

	log liblog.FuncLog
}

// New builds a Runner. Any of the chain fields may be left nil/empty; an
// empty chain behaves as an immediate OK.
func New(log liblog.FuncLog) *Runner {
	return &Runner{log: log}
}

func (r *Runner) logger() liblog.Logger {
	if r.log == nil {
		return liblog.New(context.Background())
	} else if l := r.log(); l != nil {
		return l
	}
	return liblog.New(context.Background())
}

func foldHeaders(h http.Header, mode CaseFold) {
	if mode == CaseFoldPreserve || h == nil {
		return
	}

	folded := make(http.Header, len(h))
	for k, v := range h {
		switch mode {
		case CaseFoldLower:
			k = toCase(k, false)
		case CaseFoldUpper:
			k = toCase(k, true)
		}
		folded[k] = v
	}

	for k := range h {
		delete(h, k)
	}
	for k, v := range folded {
		h[k] = v
	}
}

func toCase(s string, upper bool) string {
	b := []byte(s)
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		} else if !upper && c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// runPhase runs one named chain, then applies the detach-downgrade rule:
// any phase that observes the Sock has become nil must downgrade its
// result to FILTER_RETURN, unconditionally overriding whatever the chain
// itself returned, so no later phase attempts output on a Sock that has
// already moved to a ConnChan.
func (r *Runner) runPhase(ctx context.Context, conn *connpool.Conn, name string, filters []FilterFunc) result.Code {
	code := runChain(ctx, conn, filters)

	if conn.SockDetached() {
		if code != result.FILTER_RETURN {
			r.logger().Entry(liblog.DebugLevel, "phase observed a detached sock, downgrading result").
				FieldAdd("conn", conn.ID()).
				FieldAdd("phase", name).
				FieldAdd("code", code.String()).Log()
		}
		return result.FILTER_RETURN
	}

	return code
}

// Handle implements connpool.HandlerFunc: it is the function a driver wires
// into connpool.New so every dequeued Conn runs through this pipeline.
func (r *Runner) Handle(ctx context.Context, conn *connpool.Conn) error {
	traceID, terr := newTraceID()
	if terr != nil {
		r.logger().Entry(liblog.WarnLevel, "could not generate trace id").
			FieldAdd("conn", conn.ID()).
			ErrorAdd(true, terr).Log()
		traceID = ""
	}

	start := time.Now()
	foldHeaders(conn.Headers(), r.CaseFold)

	code := r.runPhase(ctx, conn, "pre-auth", r.PreAuth)

	if code == result.OK {
		code = r.runPhase(ctx, conn, "authorize", r.Authorize)
	}

	if code == result.OK {
		code = r.runPhase(ctx, conn, "post-auth", r.PostAuth)
	}

	if code == result.OK && r.Handler != nil {
		code = r.runPhase(ctx, conn, "handler", []FilterFunc{r.Handler})
	}

	if !code.Terminal() {
		code = r.runPhase(ctx, conn, "trace", r.Trace)
	}

	r.respond(conn, code)

	r.runPhase(ctx, conn, "void-trace", r.VoidTrace)
	conn.SetFilterDoneTime(time.Now())

	r.logger().Entry(liblog.InfoLevel, "request completed").
		FieldAdd("conn", conn.ID()).
		FieldAdd("trace", traceID).
		FieldAdd("method", conn.Method()).
		FieldAdd("url", conn.URL()).
		FieldAdd("result", code.String()).
		FieldAdd("latency", time.Since(start)).Log()

	return nil
}

// respond emits the canonical response for a terminal outcome the pipeline
// produced on its own behalf. FILTER_BREAK/FILTER_RETURN/OK mean a filter or
// the handler already wrote (or deliberately skipped) its own output, so
// nothing further is attempted for those. The body is run through
// compressBody using whatever encoding the request negotiated onto the Conn
// (SetOutputEncoding/SetCompress).
func (r *Runner) respond(conn *connpool.Conn, code result.Code) {
	var (
		status int
		reason string
		body   string
	)

	switch code {
	case result.FORBIDDEN:
		status, reason, body = 403, "Forbidden", bodyForbidden
	case result.UNAUTHORIZED:
		status, reason, body = 401, "Unauthorized", bodyUnauthorized
	case result.ERROR, result.TIMEOUT:
		status, reason, body = 500, "Internal Server Error", bodyInternal
	default:
		return
	}

	enc, compressed := compressBody(conn.OutputEncoding(), conn.Compress(), []byte(body))
	payload := canonicalResponse(status, reason, enc, compressed)

	sock := conn.Sock()
	if sock == nil {
		// already detached or closed; the connection may be gone by the
		// time we try to respond
		return
	}

	n, err := sock.Send(payload)
	if err != nil {
		r.logger().Entry(liblog.WarnLevel, "failed writing canonical response, connection likely already closed").
			FieldAdd("conn", conn.ID()).
			ErrorAdd(true, ErrorResponseWrite.Error(err)).Log()
		return
	}

	if p := conn.Pool(); p != nil {
		p.RecordBytes(n)
	}
}
