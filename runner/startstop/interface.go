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

// Package startstop gives the pool, the TLS registry, and the listener driver
// a common Start/Stop/Restart/IsRunning/Uptime contract, so no long-running
// component hand-rolls its own running flag.
package startstop

import (
	"context"
	"sync"
	"time"

	libatm "github.com/nabbar/connpool/atomic"
	liblog "github.com/nabbar/connpool/logger"
)

// FuncStart is run once, under lock, when Start is called on a non-running
// Runner. Returning an error aborts the start: the Runner stays stopped.
type FuncStart func(ctx context.Context) error

// FuncStop is run once, under lock, when Stop is called on a running Runner.
type FuncStop func(ctx context.Context) error

type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	// Uptime returns how long the Runner has been running, or 0 if stopped.
	Uptime() time.Duration
}

type runner struct {
	m   sync.Mutex
	fsa FuncStart
	fso FuncStop
	log liblog.FuncLog
	run libatm.Value[bool]
	at  libatm.Value[time.Time]
	cnl context.CancelFunc
}

// New returns a Runner that calls fsa on Start and fso on Stop, serialized
// under a single mutex so Start/Stop/Restart never overlap.
func New(fsa FuncStart, fso FuncStop, log liblog.FuncLog) Runner {
	r := &runner{
		fsa: fsa,
		fso: fso,
		log: log,
		run: libatm.NewValueDefault[bool](false, false),
		at:  libatm.NewValue[time.Time](),
	}

	return r
}

func (r *runner) logger() liblog.Logger {
	if r.log == nil {
		return liblog.New(context.Background())
	} else if l := r.log(); l != nil {
		return l
	}
	return liblog.New(context.Background())
}

func (r *runner) Start(ctx context.Context) error {
	r.m.Lock()
	defer r.m.Unlock()

	if r.run.Load() {
		return nil
	}

	var cctx context.Context
	cctx, r.cnl = context.WithCancel(ctx)

	if r.fsa != nil {
		if err := r.fsa(cctx); err != nil {
			r.cnl()
			r.cnl = nil
			r.logger().Entry(liblog.ErrorLevel, "starting").ErrorAdd(true, err).Log()
			return err
		}
	}

	r.run.Store(true)
	r.at.Store(time.Now())
	r.logger().Entry(liblog.InfoLevel, "started").Log()

	return nil
}

func (r *runner) Stop(ctx context.Context) error {
	r.m.Lock()
	defer r.m.Unlock()

	if !r.run.Load() {
		return nil
	}

	var err error
	if r.fso != nil {
		err = r.fso(ctx)
	}

	if r.cnl != nil {
		r.cnl()
		r.cnl = nil
	}

	r.run.Store(false)
	r.at.Store(time.Time{})
	r.logger().Entry(liblog.ErrorLevel, "stopped").ErrorAdd(true, err).Check(liblog.InfoLevel)

	return err
}

func (r *runner) Restart(ctx context.Context) error {
	if err := r.Stop(ctx); err != nil {
		return err
	}
	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	return r.run.Load()
}

func (r *runner) Uptime() time.Duration {
	at := r.at.Load()
	if at.IsZero() {
		return 0
	}
	return time.Since(at)
}
