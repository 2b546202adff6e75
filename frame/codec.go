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
	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/pktbuf"
	"github.com/nowlink/nowlink/types"
)

// Codec translates between packet chains and wire frames. It performs no
// I/O; both directions operate on buffers handed to it.
type Codec struct {
	protos *types.ProtoMap
	pool   *pktbuf.Pool
}

func NewCodec(protos *types.ProtoMap, pool *pktbuf.Pool) *Codec {
	logger.AssertNotNil(protos)
	logger.AssertNotNil(pool)
	return &Codec{protos: protos, pool: pool}
}

// Flatten copies the payload segments of pkt contiguously into out and
// resolves the destination hardware address from the link-layer header
// segment. It consumes pkt: the chain is released on every return path, and
// the codec retains no reference into it.
//
// The chain's first segment must be the link-layer header; the remaining
// segments are payload. Broadcast or multicast destinations collapse to the
// transport's broadcast address; a unicast destination must have the
// transport's native address length.
func (c *Codec) Flatten(pkt *pktbuf.Packet, out *Addressed) error {
	defer pkt.Release()

	head := pkt.Head()
	if head == nil || head.Proto() != types.ProtoLink {
		logger.Debugf("flatten: first segment is not a link-layer header")
		return errors.Wrap(types.ErrFormat, "first segment is not a link-layer header")
	}
	hdr, err := head.LinkHdr()
	if err != nil {
		logger.Debugf("flatten: %v", err)
		return err
	}

	if hdr.Flags&(pktbuf.FlagBroadcast|pktbuf.FlagMulticast) != 0 {
		// The transport has no native multicast, always broadcast.
		out.Addr = types.BroadcastAddr
	} else if len(hdr.Dst) == types.AddrLen {
		copy(out.Addr[:], hdr.Dst)
	} else {
		logger.Debugf("flatten: destination address had unexpected format (flags=%d, len=%d)",
			hdr.Flags, len(hdr.Dst))
		return errors.Wrapf(types.ErrFormat, "destination address length %d, need %d",
			len(hdr.Dst), types.AddrLen)
	}

	payload := head.Next()
	if payload != nil {
		out.setTag(c.protos.Tag(payload.Proto()))
	} else {
		out.setTag(types.TagUndef)
	}

	payloadLen := 0
	pos := out.buf[HeaderLen:]
	for ; payload != nil; payload = payload.Next() {
		payloadLen += payload.Size()
		if payloadLen > MaxPayload {
			logger.Debugf("flatten: payload length exceeds maximum (%d>%d)", payloadLen, MaxPayload)
			out.Reset()
			return errors.Wrapf(types.ErrSizeExceeded, "payload %d exceeds %d", payloadLen, MaxPayload)
		}
		n := copy(pos, payload.Data())
		pos = pos[n:]
	}

	out.len = HeaderLen + payloadLen
	return nil
}

// Expand reconstructs a packet chain from the frame received into f.
// recvRes is the byte count reported by the transport driver; a non-positive
// count is a normal empty read and yields (nil, nil) without touching the
// frame. own is the local hardware address, recorded as the destination of
// the inbound packet, and ifIndex identifies the receiving device.
//
// The returned chain has the link-layer header segment as head and a single
// payload segment as tail; ownership passes to the caller. On success and
// on dropped receives the frame length is reset as the final step, marking
// the reusable buffer free again.
func (c *Codec) Expand(f *Addressed, recvRes int, own types.HwAddr, ifIndex types.IfIndex) (*pktbuf.Packet, error) {
	if recvRes <= 0 {
		logger.Tracef("expand: nothing received (%d)", recvRes)
		return nil, nil
	}
	if f.Len() < HeaderLen {
		f.Reset()
		return nil, errors.Wrapf(types.ErrFormat, "frame of %d bytes is shorter than the header", f.Len())
	}

	proto := c.protos.Proto(f.Tag())

	payload, err := c.pool.NewSnip(f.Payload(), f.Len()-HeaderLen, proto)
	if err != nil {
		logger.Debugf("expand: cannot allocate payload segment: %v", err)
		f.Reset()
		return nil, err
	}

	hdrSnip, err := c.pool.NewLinkHdrSnip(&pktbuf.LinkHdr{
		Src:     f.Addr[:],
		Dst:     own[:],
		IfIndex: ifIndex,
	})
	if err != nil {
		logger.Debugf("expand: no space left for link-layer header: %v", err)
		drop := pktbuf.NewPacket(c.pool)
		drop.Append(payload)
		drop.Release()
		f.Reset()
		return nil, err
	}

	pkt := pktbuf.NewPacket(c.pool)
	pkt.Append(hdrSnip)
	pkt.Append(payload)

	// All bytes are copied out, mark the reusable buffer free.
	f.Reset()
	return pkt, nil
}
