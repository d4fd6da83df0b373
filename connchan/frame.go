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
	"crypto/rand"
	"encoding/binary"
)

// Opcode is the WebSocket frame opcode (RFC 6455 §5.2).
type Opcode byte

const (
	OpContinue Opcode = 0x0
	OpText     Opcode = 0x1
	OpBinary   Opcode = 0x2
	OpClose    Opcode = 0x8
	OpPing     Opcode = 0x9
	OpPong     Opcode = 0xA
)

// FrameStatus is the outcome of one parse attempt against frameBuffer.
type FrameStatus int

const (
	FrameIncomplete FrameStatus = iota
	FrameComplete
	FrameException
)

// Frame is the structured record a read(-websocket) call returns.
type Frame struct {
	Status      FrameStatus
	Opcode      Opcode
	Payload     []byte
	Fin         bool
	Bytes       int  // bytes consumed from the transport this call
	Unprocessed int  // bytes remaining in frameBuffer after this call
	Fragments   int  // bytes presently queued in fragmentsBuffer
	HaveData    bool // Status == FrameComplete
}

// frameState is the per-channel WebSocket assembly state: the inbound byte
// buffer pending frame completion, and the accumulator for a fragmented
// message's non-final payloads plus the opcode that started it.
type frameState struct {
	frameBuffer     []byte
	fragmentsBuffer []byte
	fragmentsOpcode Opcode
}

// parse appends the freshly received newBytes to frameBuffer and
// attempts to parse one complete frame out of it. It mirrors the source
// library's ConnChanWsoFrameDecode loop one call at a time: a caller that
// gets FrameIncomplete should read more and call again.
func (fs *frameState) parse(newBytes []byte) Frame {
	fs.frameBuffer = append(fs.frameBuffer, newBytes...)
	nRead := len(newBytes)

	if len(fs.frameBuffer) < 3 {
		return Frame{
			Status:      FrameIncomplete,
			Bytes:       nRead,
			Unprocessed: len(fs.frameBuffer),
			Fragments:   len(fs.fragmentsBuffer),
		}
	}

	data := fs.frameBuffer

	fin := data[0]&0x80 != 0
	masked := data[1]&0x80 != 0
	opcode := Opcode(data[0] & 0x0F)
	payloadLen := uint64(data[1] & 0x7F)

	offset := 2
	switch {
	case payloadLen <= 125:
		// offset already 2
	case payloadLen == 126:
		if len(data) < 4 {
			return fs.incomplete(nRead)
		}
		payloadLen = uint64(binary.BigEndian.Uint16(data[2:4]))
		offset = 4
	default:
		if len(data) < 10 {
			return fs.incomplete(nRead)
		}
		payloadLen = binary.BigEndian.Uint64(data[2:10])
		offset = 10
	}

	var maskKey [4]byte
	if masked {
		if len(data) < offset+4 {
			return fs.incomplete(nRead)
		}
		copy(maskKey[:], data[offset:offset+4])
		offset += 4
	}

	total := offset + int(payloadLen)
	if len(data) < total {
		return fs.incomplete(nRead)
	}

	payload := make([]byte, payloadLen)
	copy(payload, data[offset:total])

	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	frame := Frame{
		Status: FrameComplete,
		Opcode: opcode,
		Fin:    fin,
		Bytes:  nRead,
	}

	if !fin {
		// Non-final fragment: accumulate payload and remember the
		// opcode that started the message so the eventual final
		// fragment can be reported under it.
		if len(fs.fragmentsBuffer) == 0 {
			fs.fragmentsOpcode = opcode
		}
		fs.fragmentsBuffer = append(fs.fragmentsBuffer, payload...)

		fs.compact(total)

		frame.Status = FrameIncomplete
		frame.Unprocessed = len(fs.frameBuffer)
		frame.Fragments = len(fs.fragmentsBuffer)
		return frame
	}

	if len(fs.fragmentsBuffer) > 0 {
		// Final fragment of a previously-started message: the
		// reported payload is the whole reassembled message, under
		// the opcode the first fragment carried.
		full := append(fs.fragmentsBuffer, payload...)
		frame.Opcode = fs.fragmentsOpcode
		frame.Payload = full
		fs.fragmentsBuffer = nil
		fs.fragmentsOpcode = 0
	} else {
		frame.Payload = payload
	}

	frame.HaveData = true

	fs.compact(total)
	frame.Unprocessed = len(fs.frameBuffer)
	frame.Fragments = len(fs.fragmentsBuffer)

	return frame
}

func (fs *frameState) incomplete(nRead int) Frame {
	return Frame{
		Status:      FrameIncomplete,
		Bytes:       nRead,
		Unprocessed: len(fs.frameBuffer),
		Fragments:   len(fs.fragmentsBuffer),
	}
}

// compact shifts any bytes beyond the consumed frame to the start of
// frameBuffer, the same trailing-bytes-carried-forward behavior the source
// library performs with memmove.
func (fs *frameState) compact(consumed int) {
	if len(fs.frameBuffer) > consumed {
		remainder := make([]byte, len(fs.frameBuffer)-consumed)
		copy(remainder, fs.frameBuffer[consumed:])
		fs.frameBuffer = remainder
	} else {
		fs.frameBuffer = nil
	}
}

// EncodeFrame produces a single WebSocket frame for payload under opcode,
// with the requested fin bit and, when masked is true, a mask drawn from
// crypto/rand, which reads the operating system's random source. If that
// read fails, EncodeFrame returns ErrorFrameException and no frame.
func EncodeFrame(payload []byte, opcode Opcode, fin bool, masked bool) ([]byte, error) {
	var header []byte

	b0 := byte(opcode)
	if fin {
		b0 |= 0x80
	}

	n := len(payload)

	switch {
	case n <= 125:
		header = []byte{b0, byte(n)}
	case n <= 0xFFFF:
		header = make([]byte, 4)
		header[0] = b0
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:4], uint16(n))
	default:
		header = make([]byte, 10)
		header[0] = b0
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:10], uint64(n))
	}

	if !masked {
		out := make([]byte, 0, len(header)+n)
		out = append(out, header...)
		out = append(out, payload...)
		return out, nil
	}

	header[1] |= 0x80

	var maskKey [4]byte
	if _, err := rand.Read(maskKey[:]); err != nil {
		return nil, ErrorFrameException.Error(err)
	}

	out := make([]byte, 0, len(header)+4+n)
	out = append(out, header...)
	out = append(out, maskKey[:]...)

	masked4 := make([]byte, n)
	for i := 0; i < n; i++ {
		masked4[i] = payload[i] ^ maskKey[i%4]
	}
	out = append(out, masked4...)

	return out, nil
}
