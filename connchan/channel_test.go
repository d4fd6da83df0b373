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

package connchan

import (
	"net"
	"time"

	"github.com/nabbar/connpool/sockio"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConnChan", func() {
	var (
		a, b net.Conn
		tbl  *Table
	)

	BeforeEach(func() {
		a, b = net.Pipe()
		tbl = NewTable(nil)
	})

	AfterEach(func() {
		_ = a.Close()
		_ = b.Close()
	})

	It("registers a detached socket under a table name and tears it down on Close", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)

		Expect(ch.Name()).To(HavePrefix("conn"))
		Expect(tbl.Exists(ch.Name())).To(BeTrue())

		Expect(ch.Close()).To(Succeed())
		Expect(tbl.Exists(ch.Name())).To(BeFalse())

		// Close is idempotent.
		Expect(ch.Close()).To(Succeed())
	})

	It("delivers written bytes to the peer in order", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)
		defer ch.Close()

		read := make(chan string, 1)
		go func() {
			buf := make([]byte, 32)
			total := 0
			for total < len("helloworld") {
				n, err := a.Read(buf[total:])
				if err != nil {
					break
				}
				total += n
			}
			read <- string(buf[:total])
		}()

		n, err := ch.Write([]byte("hello"))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(5))

		n, err = ch.Write([]byte("world"))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(5))

		Expect(<-read).To(Equal("helloworld"))
	})

	It("rejects writes to an already-closed channel", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)
		Expect(ch.Close()).To(Succeed())

		_, err := ch.Write([]byte("x"))
		Expect(err).To(HaveOccurred())
	})

	It("reports a Done state once the peer closes", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)
		defer ch.Close()

		_ = a.Close()

		_, st := ch.Read(time.Second)
		Expect(st).To(Equal(sockio.Done))
	})

	It("assembles a complete WebSocket frame via ReadFrame", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)
		defer ch.Close()

		encoded, err := EncodeFrame([]byte("ping"), OpText, true, false)
		Expect(err).ToNot(HaveOccurred())

		go func() {
			_, _ = a.Write(encoded)
		}()

		frame, st := ch.ReadFrame(time.Second)
		Expect(st).To(Equal(sockio.Read))
		Expect(frame.Status).To(Equal(FrameComplete))
		Expect(string(frame.Payload)).To(Equal("ping"))
	})

	It("reports buffer occupancy and callback state through Status", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)
		defer ch.Close()

		st := ch.Status()
		Expect(st.Name).To(Equal(ch.Name()))
		Expect(st.SendPending).To(Equal(0))
		Expect(st.SendRejected).To(Equal(0))
		Expect(st.CallbackArmed).To(BeFalse())

		Expect(ch.RegisterCallback(func(string, Condition) (string, error) {
			return "1", nil
		}, "r", 0, 0, 0)).To(Succeed())

		Expect(ch.Status().CallbackArmed).To(BeTrue())
	})

	It("tracks its binary-mode flag", func() {
		ch := Detach(tbl, sockio.New(b, false), nil)
		defer ch.Close()

		Expect(ch.IsBinary()).To(BeFalse())
		ch.SetBinary(true)
		Expect(ch.IsBinary()).To(BeTrue())
	})
})

var _ = Describe("Listen", func() {
	It("registers a new channel for every accepted connection", func() {
		tbl := NewTable(nil)

		accepted := make(chan string, 1)
		ln, err := Listen(tbl, "127.0.0.1", 0, func(name string) {
			accepted <- name
		}, nil)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		conn, err := net.Dial("tcp", ln.Addr().String())
		Expect(err).ToNot(HaveOccurred())
		defer conn.Close()

		var name string
		Eventually(accepted, time.Second).Should(Receive(&name))
		Expect(tbl.Exists(name)).To(BeTrue())
	})
})
