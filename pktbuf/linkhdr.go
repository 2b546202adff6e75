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

package pktbuf

import (
	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/types"
)

// LinkFlags are the flags of a link-layer header segment.
type LinkFlags uint8

const (
	FlagBroadcast LinkFlags = 1 << 0
	FlagMulticast LinkFlags = 1 << 1
)

// LinkHdr is the link-layer metadata carried in the first segment of a
// packet chain. Addresses are variable-length: upper layers may hand down
// addresses of a different link technology, which the codec rejects.
type LinkHdr struct {
	Src     []byte
	Dst     []byte
	Flags   LinkFlags
	IfIndex types.IfIndex
}

// Serialized layout: flags(1) ifIndex(1) srcLen(1) dstLen(1) src dst.
const linkHdrFixedLen = 4

func (h *LinkHdr) serializedLen() int {
	return linkHdrFixedLen + len(h.Src) + len(h.Dst)
}

func (h *LinkHdr) serialize(buf []byte) {
	buf[0] = byte(h.Flags)
	buf[1] = byte(h.IfIndex)
	buf[2] = byte(len(h.Src))
	buf[3] = byte(len(h.Dst))
	n := copy(buf[linkHdrFixedLen:], h.Src)
	copy(buf[linkHdrFixedLen+n:], h.Dst)
}

// NewLinkHdrSnip allocates a link-layer header segment holding h.
func (pl *Pool) NewLinkHdrSnip(h *LinkHdr) (*Snip, error) {
	if len(h.Src) > 0xff || len(h.Dst) > 0xff || h.IfIndex < 0 || h.IfIndex > 0xff {
		return nil, errors.Wrap(types.ErrFormat, "link-layer header out of range")
	}
	s, err := pl.NewSnip(nil, h.serializedLen(), types.ProtoLink)
	if err != nil {
		return nil, err
	}
	h.serialize(s.data)
	return s, nil
}

// LinkHdr decodes the link-layer header stored in this segment. It fails if
// the segment is not a well-formed types.ProtoLink segment.
func (s *Snip) LinkHdr() (*LinkHdr, error) {
	if s.proto != types.ProtoLink {
		return nil, errors.Wrapf(types.ErrFormat, "segment is %v, not a link-layer header", s.proto)
	}
	if len(s.data) < linkHdrFixedLen {
		return nil, errors.Wrap(types.ErrFormat, "link-layer header truncated")
	}
	srcLen := int(s.data[2])
	dstLen := int(s.data[3])
	if linkHdrFixedLen+srcLen+dstLen > len(s.data) {
		return nil, errors.Wrap(types.ErrFormat, "link-layer header truncated")
	}
	h := &LinkHdr{
		Flags:   LinkFlags(s.data[0]),
		IfIndex: types.IfIndex(s.data[1]),
		Src:     s.data[linkHdrFixedLen : linkHdrFixedLen+srcLen],
		Dst:     s.data[linkHdrFixedLen+srcLen : linkHdrFixedLen+srcLen+dstLen],
	}
	return h, nil
}
