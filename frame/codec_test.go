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

package frame

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowlink/nowlink/pktbuf"
	"github.com/nowlink/nowlink/types"
)

func newTestCodec(t *testing.T) (*Codec, *pktbuf.Pool) {
	pool := pktbuf.NewPool(0)
	return NewCodec(types.DefaultProtoMap(), pool), pool
}

// makeChain builds [link header | payload segments...] the way the network
// stack hands packets down for sending.
func makeChain(t *testing.T, pool *pktbuf.Pool, hdr *pktbuf.LinkHdr, segs ...*pktbuf.Snip) *pktbuf.Packet {
	pkt := pktbuf.NewPacket(pool)
	hdrSnip, err := pool.NewLinkHdrSnip(hdr)
	require.Nil(t, err)
	pkt.Append(hdrSnip)
	for _, s := range segs {
		pkt.Append(s)
	}
	return pkt
}

func mustSnip(t *testing.T, pool *pktbuf.Pool, data []byte, proto types.ProtoType) *pktbuf.Snip {
	s, err := pool.NewSnip(data, len(data), proto)
	require.Nil(t, err)
	return s
}

func TestFlattenUnicast(t *testing.T) {
	c, pool := newTestCodec(t)
	dst := bytes.Repeat([]byte{0x11}, types.AddrLen)
	payload := bytes.Repeat([]byte{0xaa}, 20)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Dst: dst},
		mustSnip(t, pool, payload, types.ProtoUndef))

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))

	assert.Equal(t, types.TagUndef, out.Tag())
	assert.Equal(t, 21, out.Len())
	assert.Equal(t, types.HwAddr{0x11, 0x11, 0x11, 0x11, 0x11, 0x11}, out.Addr)
	assert.Equal(t, payload, out.Payload())
	assert.Equal(t, 0, pool.Used(), "input chain must be released")
}

func TestFlattenBroadcastFlag(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast},
		mustSnip(t, pool, []byte{1, 2, 3, 4, 5}, types.ProtoUndef))

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, types.BroadcastAddr, out.Addr)
	assert.Equal(t, 6, out.Len())
}

func TestFlattenMulticastCollapsesToBroadcast(t *testing.T) {
	c, pool := newTestCodec(t)
	// a concrete multicast address in the header must be ignored
	mcast := []byte{0x33, 0x33, 0x00, 0x00, 0x00, 0x01}
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Dst: mcast, Flags: pktbuf.FlagMulticast},
		mustSnip(t, pool, []byte{0xde, 0xad}, types.ProtoUndef))

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, types.BroadcastAddr, out.Addr)
}

func TestFlattenTagSelection(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast},
		mustSnip(t, pool, []byte{0x42}, types.ProtoSixLowpan))

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, types.TagSixLowpan, out.Tag())

	// a protocol outside the recognized set maps to the undefined tag
	pkt = makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast},
		mustSnip(t, pool, []byte{0x42}, types.ProtoIpv6))
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, types.TagUndef, out.Tag())
}

func TestFlattenMultiSegment(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast},
		mustSnip(t, pool, []byte{0x60, 0x00}, types.ProtoSixLowpan),
		mustSnip(t, pool, bytes.Repeat([]byte{0xcc}, 100), types.ProtoUndef),
		mustSnip(t, pool, bytes.Repeat([]byte{0xdd}, 40), types.ProtoUndef))

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, 1+2+100+40, out.Len())
	want := append([]byte{0x60, 0x00}, bytes.Repeat([]byte{0xcc}, 100)...)
	want = append(want, bytes.Repeat([]byte{0xdd}, 40)...)
	assert.Equal(t, want, out.Payload())
}

func TestFlattenEmptyPayload(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast})

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, HeaderLen, out.Len())
	assert.Equal(t, types.TagUndef, out.Tag())
	assert.Equal(t, 0, len(out.Payload()))
}

func TestFlattenMissingLinkHdr(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := pktbuf.NewPacket(pool)
	pkt.Append(mustSnip(t, pool, []byte{1, 2, 3}, types.ProtoSixLowpan))

	var out Addressed
	err := c.Flatten(pkt, &out)
	assert.True(t, errors.Is(err, types.ErrFormat))
	assert.Equal(t, 0, pool.Used(), "chain must be released on error")

	// empty chain
	err = c.Flatten(pktbuf.NewPacket(pool), &out)
	assert.True(t, errors.Is(err, types.ErrFormat))
}

func TestFlattenBadAddrLen(t *testing.T) {
	c, pool := newTestCodec(t)
	for _, n := range []int{0, 1, 5, 7, 8} {
		pkt := makeChain(t, pool, &pktbuf.LinkHdr{Dst: bytes.Repeat([]byte{0x22}, n)},
			mustSnip(t, pool, []byte{1}, types.ProtoUndef))
		var out Addressed
		err := c.Flatten(pkt, &out)
		assert.Truef(t, errors.Is(err, types.ErrFormat), "address length %d must be rejected", n)
		assert.Equal(t, 0, pool.Used())
	}
}

func TestFlattenSizeExceeded(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast},
		mustSnip(t, pool, bytes.Repeat([]byte{0xaa}, 200), types.ProtoUndef),
		mustSnip(t, pool, bytes.Repeat([]byte{0xbb}, 50), types.ProtoUndef))

	var out Addressed
	err := c.Flatten(pkt, &out)
	assert.True(t, errors.Is(err, types.ErrSizeExceeded))
	assert.Equal(t, 0, out.Len(), "no partial frame may remain")
	assert.Equal(t, 0, pool.Used(), "chain must be released on error")
}

func TestFlattenExactlyMaxPayload(t *testing.T) {
	c, pool := newTestCodec(t)
	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Flags: pktbuf.FlagBroadcast},
		mustSnip(t, pool, bytes.Repeat([]byte{0xee}, MaxPayload), types.ProtoUndef))

	var out Addressed
	require.Nil(t, c.Flatten(pkt, &out))
	assert.Equal(t, MaxSizeRaw, out.Len())
}

func TestExpandBasic(t *testing.T) {
	c, pool := newTestCodec(t)
	own := types.HwAddr{0x02, 1, 2, 3, 4, 5}
	src := types.HwAddr{0x02, 9, 8, 7, 6, 5}

	var f Addressed
	f.Addr = src
	n := copy(f.Buf(), append([]byte{types.TagSixLowpan}, 0x60, 0x01, 0x02))
	f.SetLen(n)

	pkt, err := c.Expand(&f, n, own, 2)
	require.Nil(t, err)
	require.NotNil(t, pkt)

	hdr, err := pkt.Head().LinkHdr()
	require.Nil(t, err)
	assert.Equal(t, src[:], hdr.Src)
	assert.Equal(t, own[:], hdr.Dst)
	assert.Equal(t, 2, hdr.IfIndex)

	payload := pkt.Head().Next()
	require.NotNil(t, payload)
	assert.Equal(t, types.ProtoSixLowpan, payload.Proto())
	assert.Equal(t, []byte{0x60, 0x01, 0x02}, payload.Data())
	assert.Nil(t, payload.Next())

	assert.Equal(t, 0, f.Len(), "reusable slot must be marked free")

	pkt.Release()
	assert.Equal(t, 0, pool.Used(), "released chain must drain the pool")
}

func TestExpandUnknownTag(t *testing.T) {
	c, _ := newTestCodec(t)
	var f Addressed
	f.Buf()[0] = 0x7e
	f.Buf()[1] = 0x01
	f.SetLen(2)

	pkt, err := c.Expand(&f, 2, types.HwAddr{}, 1)
	require.Nil(t, err)
	assert.Equal(t, types.ProtoUndef, pkt.Head().Next().Proto())
}

func TestExpandNothingReceived(t *testing.T) {
	c, _ := newTestCodec(t)
	var f Addressed
	f.SetLen(10) // stale length from a previous receive must not be touched

	for _, n := range []int{0, -1} {
		pkt, err := c.Expand(&f, n, types.HwAddr{}, 1)
		assert.Nil(t, err)
		assert.Nil(t, pkt)
		assert.Equal(t, 10, f.Len())
	}
}

func TestExpandHeaderOnlyFrame(t *testing.T) {
	c, _ := newTestCodec(t)
	var f Addressed
	f.Buf()[0] = types.TagUndef
	f.SetLen(1)

	pkt, err := c.Expand(&f, 1, types.HwAddr{}, 1)
	require.Nil(t, err)
	require.NotNil(t, pkt)
	payload := pkt.Head().Next()
	require.NotNil(t, payload)
	assert.Equal(t, 0, payload.Size(), "zero-length payload segment, not an error")
}

func TestExpandAllocationFailure(t *testing.T) {
	protos := types.DefaultProtoMap()

	// pool too small for the payload segment
	pool := pktbuf.NewPool(10)
	c := NewCodec(protos, pool)
	var f Addressed
	f.SetLen(21)
	pkt, err := c.Expand(&f, 21, types.HwAddr{}, 1)
	assert.Nil(t, pkt)
	assert.True(t, errors.Is(err, types.ErrNoSpace))
	assert.Equal(t, 0, pool.Used())

	// pool fits the payload but not the link-layer header; the payload
	// segment must be released again
	pool = pktbuf.NewPool(21)
	c = NewCodec(protos, pool)
	f.SetLen(21)
	pkt, err = c.Expand(&f, 21, types.HwAddr{}, 1)
	assert.Nil(t, pkt)
	assert.True(t, errors.Is(err, types.ErrNoSpace))
	assert.Equal(t, 0, pool.Used(), "partially-built chain must be released")
}

// Round-trip: Flatten then Expand preserves payload bytes and swaps the
// address roles (the flattened destination becomes the inbound source).
func TestRoundTrip(t *testing.T) {
	c, pool := newTestCodec(t)
	dst := types.HwAddr{0x02, 0xaa, 0xbb, 0xcc, 0xdd, 0xee}
	own := types.HwAddr{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}
	payload := bytes.Repeat([]byte{0x5a}, 123)

	pkt := makeChain(t, pool, &pktbuf.LinkHdr{Dst: dst[:], Src: own[:]},
		mustSnip(t, pool, payload, types.ProtoSixLowpan))

	var f Addressed
	require.Nil(t, c.Flatten(pkt, &f))
	// the radio delivered the frame; its carried address is now the sender's
	f.Addr = own

	rx, err := c.Expand(&f, f.Len(), dst, 1)
	require.Nil(t, err)
	require.NotNil(t, rx)

	hdr, err := rx.Head().LinkHdr()
	require.Nil(t, err)
	assert.Equal(t, own[:], hdr.Src)
	assert.Equal(t, dst[:], hdr.Dst)
	assert.Equal(t, payload, rx.Head().Next().Data())
	assert.Equal(t, types.ProtoSixLowpan, rx.Head().Next().Proto())

	// and the reconstructed chain flattens back to the identical frame
	var f2 Addressed
	require.Nil(t, c.Flatten(rx, &f2))
	assert.Equal(t, types.TagSixLowpan, f2.Tag())
	assert.Equal(t, payload, f2.Payload())
	assert.Equal(t, dst, f2.Addr)
}
