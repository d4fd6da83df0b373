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

package sls_test

import (
	"github.com/nabbar/connpool/sls"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	It("defaults missing scalar keys and remembers set ones", func() {
		s := sls.New()
		Expect(s.Get("missing", "def")).To(Equal("def"))

		s.Set("k", "v1")
		Expect(s.Get("k", "def")).To(Equal("v1"))

		s.Unset("k")
		Expect(s.Get("k", "def")).To(Equal("def"))
	})

	It("snapshots the scalar map without aliasing it", func() {
		s := sls.New()
		s.Set("a", "1")

		snap := s.Array()
		Expect(snap).To(HaveKeyWithValue("a", "1"))

		snap["a"] = "mutated"
		Expect(s.Get("a", "")).To(Equal("1"))
	})

	It("fires every registered slot's cleanup on Close, once, in order", func() {
		var fired []string

		sls.Register("sls-test-first", func(v interface{}) {
			fired = append(fired, "first:"+v.(string))
		})
		sls.Register("sls-test-second", func(v interface{}) {
			fired = append(fired, "second:"+v.(string))
		})

		s := sls.New()
		s.SetTyped("sls-test-first", "a")
		s.SetTyped("sls-test-second", "b")

		s.Close()

		Expect(fired).To(Equal([]string{"first:a", "second:b"}))

		_, ok := s.GetTyped("sls-test-first")
		Expect(ok).To(BeFalse())
	})

	It("skips cleanup for slots never given a value on this Store", func() {
		called := false
		sls.Register("sls-test-unused", func(v interface{}) { called = true })

		s := sls.New()
		s.Close()

		Expect(called).To(BeFalse())
	})

	It("panics when the same slot name is registered twice", func() {
		sls.Register("sls-test-dup", func(v interface{}) {})
		Expect(func() { sls.Register("sls-test-dup", func(v interface{}) {}) }).To(Panic())
	})
})
