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

package connpool_test

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nabbar/connpool/connpool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scheduler", func() {
	It("routes to the default pool on a routing miss", func() {
		var hits int64
		sched := connpool.NewScheduler(nil, nil)

		p, err := connpool.New(connpool.DefaultConfig("default"), countingHandler(&hits), nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.AddPool(p)).To(Succeed())

		sock, client := newTestSock()
		defer func() { _ = client.Close() }()

		Expect(sched.Enqueue(sock, "GET", "/anything", nil)).To(Succeed())
		Eventually(func() int64 { return atomic.LoadInt64(&hits) }, time.Second).Should(Equal(int64(1)))

		sched.Shutdown()
		Expect(sched.Wait(time.Second)).To(Succeed())
	})

	It("routes by name when RouteFunc matches", func() {
		var defaultHits, namedHits int64

		route := func(method, url string, _ http.Header) string {
			if url == "/named" {
				return "named"
			}
			return ""
		}

		sched := connpool.NewScheduler(route, nil)

		def, err := connpool.New(connpool.DefaultConfig("default"), countingHandler(&defaultHits), nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.AddPool(def)).To(Succeed())

		named, err := connpool.New(connpool.DefaultConfig("named"), countingHandler(&namedHits), nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.AddPool(named)).To(Succeed())

		sock, client := newTestSock()
		defer func() { _ = client.Close() }()

		Expect(sched.Enqueue(sock, "GET", "/named", nil)).To(Succeed())
		Eventually(func() int64 { return atomic.LoadInt64(&namedHits) }, time.Second).Should(Equal(int64(1)))
		Expect(atomic.LoadInt64(&defaultHits)).To(Equal(int64(0)))

		sched.Shutdown()
		Expect(sched.Wait(time.Second)).To(Succeed())
	})

	It("rejects registering a duplicate pool name", func() {
		sched := connpool.NewScheduler(nil, nil)

		p1, err := connpool.New(connpool.DefaultConfig("dup"), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.AddPool(p1)).To(Succeed())

		p2, err := connpool.New(connpool.DefaultConfig("dup"), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.AddPool(p2)).To(HaveOccurred())

		sched.Shutdown()
		Expect(sched.Wait(time.Second)).To(Succeed())
	})

	It("fails enqueue once the scheduler is shutting down", func() {
		sched := connpool.NewScheduler(nil, nil)

		p, err := connpool.New(connpool.DefaultConfig("default"), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.AddPool(p)).To(Succeed())

		sched.Shutdown()
		Expect(sched.Wait(time.Second)).To(Succeed())

		sock, client := newTestSock()
		defer func() { _ = client.Close() }()

		err = sched.Enqueue(sock, "GET", "/", nil)
		Expect(err).To(HaveOccurred())
	})

	It("reports no default pool when none are registered", func() {
		sched := connpool.NewScheduler(nil, nil)

		sock, client := newTestSock()
		defer func() { _ = client.Close() }()

		err := sched.Enqueue(sock, "GET", "/", nil)
		Expect(err).To(HaveOccurred())
	})

	It("samples a process-level monitor snapshot", func() {
		sched := connpool.NewScheduler(nil, nil)

		snap := sched.Monitor()
		Expect(snap.Goroutines).To(BeNumerically(">", 0))
	})
})
