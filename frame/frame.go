// Copyright (c) 2024-2025, The nowlink Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package frame implements the wire-level radio frame of ESP-NOW-class
// transports and the codec that translates between pktbuf packet chains and
// such frames.
package frame

import (
	"encoding/hex"
	"fmt"

	"github.com/nowlink/nowlink/types"
)

const (
	// MaxSizeRaw is the maximum on-wire frame size of the transport,
	// including the header.
	MaxSizeRaw = 250

	// HeaderLen is the size of the frame header: a single type-tag byte.
	HeaderLen = 1

	// MaxPayload is the maximum payload that fits into a single frame.
	MaxPayload = MaxSizeRaw - HeaderLen
)

// Frame is one wire-level frame: a 1-byte type tag followed by up to
// MaxPayload payload bytes. The length field, not the buffer capacity, is
// authoritative for how many bytes are valid.
type Frame struct {
	buf [MaxSizeRaw]byte
	len int
}

// Tag returns the type tag in the frame header.
func (f *Frame) Tag() types.FrameTag {
	return f.buf[0]
}

func (f *Frame) setTag(t types.FrameTag) {
	f.buf[0] = t
}

// Len returns the number of valid bytes (header + payload). A zero length
// marks the frame as free.
func (f *Frame) Len() int {
	return f.len
}

// Payload returns the valid payload bytes after the header.
func (f *Frame) Payload() []byte {
	if f.len < HeaderLen {
		return nil
	}
	return f.buf[HeaderLen:f.len]
}

// Bytes returns the valid on-wire bytes, header included.
func (f *Frame) Bytes() []byte {
	return f.buf[:f.len]
}

// Buf returns the full frame buffer, for the transport driver to write a
// received frame into. The driver must call SetLen with the received count.
func (f *Frame) Buf() []byte {
	return f.buf[:]
}

// SetLen marks the first n buffer bytes as valid.
func (f *Frame) SetLen(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxSizeRaw {
		n = MaxSizeRaw
	}
	f.len = n
}

// Reset marks the frame buffer as free.
func (f *Frame) Reset() {
	f.len = 0
}

// Addressed couples a Frame with the out-of-band hardware address of its
// peer: the destination when sending, the source when receiving.
type Addressed struct {
	Frame
	Addr types.HwAddr
}

func (f *Addressed) String() string {
	return fmt.Sprintf("Frame{%s,tag=%d,payl=%s}", f.Addr, f.Tag(), hex.EncodeToString(f.Payload()))
}
