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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowlink/nowlink/types"
)

func TestPoolAccounting(t *testing.T) {
	pool := NewPool(100)
	assert.Equal(t, 100, pool.Capacity())
	assert.Equal(t, 0, pool.Used())

	s1, err := pool.NewSnip([]byte{1, 2, 3}, 3, types.ProtoUndef)
	require.Nil(t, err)
	assert.Equal(t, 3, pool.Used())
	assert.Equal(t, []byte{1, 2, 3}, s1.Data())

	s2, err := pool.NewSnip(nil, 97, types.ProtoIpv6)
	require.Nil(t, err)
	assert.Equal(t, 100, pool.Used())
	assert.Equal(t, types.ProtoIpv6, s2.Proto())

	_, err = pool.NewSnip(nil, 1, types.ProtoUndef)
	assert.True(t, errors.Is(err, types.ErrNoSpace))

	pkt := NewPacket(pool)
	pkt.Append(s1)
	pkt.Append(s2)
	pkt.Release()
	assert.Equal(t, 0, pool.Used())

	// budget is available again after release
	_, err = pool.NewSnip(nil, 100, types.ProtoUndef)
	assert.Nil(t, err)
}

func TestNewSnipZeroSize(t *testing.T) {
	pool := NewPool(10)
	s, err := pool.NewSnip(nil, 0, types.ProtoSixLowpan)
	require.Nil(t, err)
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 0, pool.Used())
}

func TestNewSnipBadSize(t *testing.T) {
	pool := NewPool(10)
	_, err := pool.NewSnip(nil, -1, types.ProtoUndef)
	assert.True(t, errors.Is(err, types.ErrFormat))
	_, err = pool.NewSnip([]byte{1, 2, 3}, 2, types.ProtoUndef)
	assert.True(t, errors.Is(err, types.ErrFormat))
}

func TestPacketChain(t *testing.T) {
	pool := NewPool(0)
	pkt := NewPacket(pool)
	assert.Nil(t, pkt.Head())
	assert.Equal(t, 0, pkt.Len())
	assert.Equal(t, 0, pkt.PayloadSize())

	payload, err := pool.NewSnip([]byte{0xaa, 0xbb}, 2, types.ProtoSixLowpan)
	require.Nil(t, err)
	pkt.Append(payload)

	hdr, err := pool.NewLinkHdrSnip(&LinkHdr{IfIndex: 1})
	require.Nil(t, err)
	pkt.Prepend(hdr)

	assert.Equal(t, 2, pkt.Len())
	assert.Equal(t, hdr, pkt.Head())
	assert.Equal(t, payload, pkt.Head().Next())
	assert.Nil(t, payload.Next())
	assert.Equal(t, 2, pkt.PayloadSize(), "head segment does not count as payload")

	pkt.Release()
	pkt.Release() // idempotent
	assert.Equal(t, 0, pool.Used())
}

func TestLinkHdrRoundTrip(t *testing.T) {
	pool := NewPool(0)
	src := []byte{0x02, 0x01, 0x02, 0x03, 0x04, 0x05}
	dst := []byte{0x02, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e}
	in := &LinkHdr{Src: src, Dst: dst, Flags: FlagBroadcast, IfIndex: 3}

	s, err := pool.NewLinkHdrSnip(in)
	require.Nil(t, err)
	assert.Equal(t, types.ProtoLink, s.Proto())

	out, err := s.LinkHdr()
	require.Nil(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("link header mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkHdrEmptyAddrs(t *testing.T) {
	pool := NewPool(0)
	s, err := pool.NewLinkHdrSnip(&LinkHdr{Flags: FlagMulticast})
	require.Nil(t, err)
	h, err := s.LinkHdr()
	require.Nil(t, err)
	assert.Equal(t, 0, len(h.Src))
	assert.Equal(t, 0, len(h.Dst))
	assert.Equal(t, FlagMulticast, h.Flags)
}

func TestLinkHdrWrongProto(t *testing.T) {
	pool := NewPool(0)
	s, err := pool.NewSnip([]byte{1, 2, 3, 4}, 4, types.ProtoSixLowpan)
	require.Nil(t, err)
	_, err = s.LinkHdr()
	assert.True(t, errors.Is(err, types.ErrFormat))
}
