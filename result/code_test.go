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

package result_test

import (
	"github.com/nabbar/connpool/result"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Code", func() {
	It("stringifies every named outcome", func() {
		Expect(result.OK.String()).To(Equal("OK"))
		Expect(result.ERROR.String()).To(Equal("ERROR"))
		Expect(result.TIMEOUT.String()).To(Equal("TIMEOUT"))
		Expect(result.UNAUTHORIZED.String()).To(Equal("UNAUTHORIZED"))
		Expect(result.FORBIDDEN.String()).To(Equal("FORBIDDEN"))
		Expect(result.FILTER_BREAK.String()).To(Equal("FILTER_BREAK"))
		Expect(result.FILTER_RETURN.String()).To(Equal("FILTER_RETURN"))
		Expect(result.Code(255).String()).To(Equal("UNKNOWN"))
	})

	It("marks only the hard-stop codes terminal", func() {
		Expect(result.OK.Terminal()).To(BeFalse())
		Expect(result.FILTER_BREAK.Terminal()).To(BeFalse())
		Expect(result.FILTER_RETURN.Terminal()).To(BeFalse())
		Expect(result.ERROR.Terminal()).To(BeTrue())
		Expect(result.TIMEOUT.Terminal()).To(BeTrue())
		Expect(result.FORBIDDEN.Terminal()).To(BeTrue())
		Expect(result.UNAUTHORIZED.Terminal()).To(BeTrue())
	})
})
