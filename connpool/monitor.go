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
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// MonitorSnapshot is the process-level complement to a pool's Snapshot: it
// reports how the server as a whole is doing, independent of which pool is
// under load. Surfaced through the admin introspection surface alongside
// the per-pool Snapshots.
type MonitorSnapshot struct {
	Goroutines int
	CPUPercent float64
	MemRSS     uint64
}

// Monitor samples the current process's CPU and memory usage via
// gopsutil/process, pointed at the server's own pid since a Scheduler has
// no subprocess to watch.
type Monitor struct {
	proc *process.Process
}

// NewMonitor opens a gopsutil handle on the current process. It never
// fails in a way that should block server construction: if gopsutil cannot
// resolve this process (exotic sandboxing, missing /proc), Sample reports
// the zero value for CPU/memory and only the goroutine count stays live.
func NewMonitor() *Monitor {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &Monitor{}
	}
	return &Monitor{proc: p}
}

// Sample takes one reading. CPUPercent is gopsutil's Process.CPUPercent:
// the process's total CPU time since it started, as a percentage of the
// wall-clock time elapsed since then.
func (m *Monitor) Sample() MonitorSnapshot {
	snap := MonitorSnapshot{Goroutines: runtime.NumGoroutine()}

	if m == nil || m.proc == nil {
		return snap
	}

	if cpu, err := m.proc.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}

	if mem, err := m.proc.MemoryInfo(); err == nil && mem != nil {
		snap.MemRSS = mem.RSS
	}

	return snap
}
