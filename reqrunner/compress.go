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
	"bytes"

	"github.com/andybalholm/brotli"
	"github.com/pierrec/lz4/v4"
)

// compressBody picks the compressor named by encoding ("br" or "lz4",
// conn.OutputEncoding's values) and runs body through it at the requested
// level. level <= 0 or an unrecognized encoding leaves body untouched and
// reports "" so the caller omits Content-Encoding. A write/close failure
// from either compressor falls back to the identity body rather than
// emitting a truncated one.
func compressBody(encoding string, level int, body []byte) (string, []byte) {
	if level <= 0 {
		return "", body
	}

	var buf bytes.Buffer

	switch encoding {
	case "br":
		w := brotli.NewWriterLevel(&buf, clampBrotliLevel(level))
		if _, err := w.Write(body); err != nil {
			return "", body
		}
		if err := w.Close(); err != nil {
			return "", body
		}
		return "br", buf.Bytes()

	case "lz4":
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return "", body
		}
		if err := w.Close(); err != nil {
			return "", body
		}
		return "lz4", buf.Bytes()

	default:
		return "", body
	}
}

func clampBrotliLevel(level int) int {
	if level > brotli.BestCompression {
		return brotli.BestCompression
	}
	if level < brotli.BestSpeed {
		return brotli.BestSpeed
	}
	return level
}
