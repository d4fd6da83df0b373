/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package logger_test

import (
	"bytes"
	"context"
	"errors"

	"github.com/nabbar/connpool/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Entry", func() {
	var (
		buf *bytes.Buffer
		log logger.Logger
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		log = logger.New(context.Background())
		log.SetOutput(buf)
	})

	It("writes the message when logged", func() {
		log.Entry(logger.InfoLevel, "hello world").Log()
		Expect(buf.String()).To(ContainSubstring("hello world"))
	})

	It("reports false from Check when no error is attached", func() {
		found := log.Entry(logger.ErrorLevel, "op done").Check(logger.DebugLevel)
		Expect(found).To(BeFalse())
	})

	It("reports true from Check and keeps the level when an error is attached", func() {
		found := log.Entry(logger.ErrorLevel, "op failed").
			ErrorAdd(true, errors.New("boom")).
			Check(logger.DebugLevel)

		Expect(found).To(BeTrue())
		Expect(buf.String()).To(ContainSubstring("boom"))
	})

	It("merges fields added with FieldAdd", func() {
		log.Entry(logger.InfoLevel, "fielded").FieldAdd("pool", "p0").Log()
		Expect(buf.String()).To(ContainSubstring("pool"))
		Expect(buf.String()).To(ContainSubstring("p0"))
	})

	It("never writes when the level is NilLevel", func() {
		log.Entry(logger.NilLevel, "silent").Log()
		Expect(buf.String()).To(BeEmpty())
	})
})
