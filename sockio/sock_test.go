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

package sockio_test

import (
	"net"
	"time"

	"github.com/nabbar/connpool/sockio"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Sock", func() {
	var client, server net.Conn

	BeforeEach(func() {
		client, server = net.Pipe()
	})

	AfterEach(func() {
		_ = client.Close()
		_ = server.Close()
	})

	It("reports Read on a successful recv and propagates the byte count", func() {
		s := sockio.New(server, false)

		go func() { _, _ = client.Write([]byte("hello")) }()

		buf := make([]byte, 16)
		n, st := s.Recv(buf)

		Expect(st).To(Equal(sockio.Read))
		Expect(string(buf[:n])).To(Equal("hello"))
	})

	It("reports Done once the peer closes", func() {
		s := sockio.New(server, false)
		Expect(client.Close()).To(Succeed())

		buf := make([]byte, 16)
		_, st := s.Recv(buf)
		Expect(st).To(Equal(sockio.Done))
	})

	It("pins the unsent remainder on a blocked write and clears it on drain", func() {
		s := sockio.New(server, true)
		Expect(s.RequireStableSendBuffer()).To(BeTrue())

		done := make(chan struct{})
		go func() {
			defer close(done)
			buf := make([]byte, 4)
			_, _ = client.Read(buf)
		}()

		_ = client.SetDeadline(time.Now().Add(time.Second))
		n, err := s.Send([]byte("data"))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(4))

		<-done

		base, pinned := s.SendRejected()
		Expect(base).To(BeNil())
		Expect(pinned).To(Equal(0))
	})

	It("tracks client/peer addresses and accept time independently", func() {
		s := sockio.New(server, false)
		Expect(s.Peer()).To(Equal(server.RemoteAddr()))
		Expect(s.AcceptTime()).To(BeTemporally("~", time.Now(), time.Second))

		s.SetClient(client.LocalAddr())
		Expect(s.Client()).To(Equal(client.LocalAddr()))
	})

	It("exposes an independent SLS store per Sock", func() {
		a := sockio.New(server, false)
		b := sockio.New(client, false)

		a.SLS().Set("k", "v")
		Expect(a.SLS().Get("k", "")).To(Equal("v"))
		Expect(b.SLS().Get("k", "missing")).To(Equal("missing"))
	})
})
