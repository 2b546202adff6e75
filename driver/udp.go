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

package driver

import (
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/frame"
	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/prng"
	"github.com/nowlink/nowlink/progctx"
	"github.com/nowlink/nowlink/types"
)

// UDP envelope layout: dst(6) src(6) frame bytes. The hardware addresses
// travel out-of-band of the frame body, as they do on the radio.
const udpEnvelopeLen = 2 * types.AddrLen

// UDPConfig configures a UDP bridge driver.
type UDPConfig struct {
	// Addr is the hardware address of this driver; zero picks a random one.
	Addr types.HwAddr
	// ListenAddr is the local UDP address, e.g. ":17771".
	ListenAddr string
	// PeerAddr is the UDP address the bridge sends all frames to, e.g. a
	// LAN broadcast address with the peer's port.
	PeerAddr string
	// QueueLen is the receive queue length (0 selects the default).
	QueueLen int
}

// UDP moves frames over a UDP socket to a fixed peer address, standing in
// for a LAN-side bridge to the radio segment. Frames not addressed to this
// driver (or broadcast) are filtered out on receive.
type UDP struct {
	addr   types.HwAddr
	conn   *net.UDPConn
	peer   *net.UDPAddr
	rxq    chan rxFrame
	ctx    *progctx.ProgCtx
	closed bool
	mu     sync.Mutex
}

// NewUDP opens the socket and starts the receive loop on ctx.
func NewUDP(ctx *progctx.ProgCtx, cfg UDPConfig) (*UDP, error) {
	addr := cfg.Addr
	if addr == (types.HwAddr{}) {
		addr = prng.NewHwAddr()
	}

	laddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return nil, errors.Wrapf(types.ErrTransport, "resolve listen address: %v", err)
	}
	peer, err := net.ResolveUDPAddr("udp", cfg.PeerAddr)
	if err != nil {
		return nil, errors.Wrapf(types.ErrTransport, "resolve peer address: %v", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrapf(types.ErrTransport, "listen: %v", err)
	}

	queueLen := cfg.QueueLen
	if queueLen <= 0 {
		queueLen = defaultQueueLen
	}
	u := &UDP{
		addr: addr,
		conn: conn,
		peer: peer,
		rxq:  make(chan rxFrame, queueLen),
		ctx:  ctx,
	}

	ctx.WaitAdd("udp-driver-rx", 1)
	go u.rxLoop()
	return u, nil
}

func (u *UDP) rxLoop() {
	defer u.ctx.WaitDone("udp-driver-rx")

	buf := make([]byte, udpEnvelopeLen+frame.MaxSizeRaw)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			u.mu.Lock()
			closed := u.closed
			u.mu.Unlock()
			if closed || u.ctx.Err() != nil {
				return
			}
			logger.Warnf("udp driver %s: read failed: %v", u.addr, err)
			continue
		}
		if n < udpEnvelopeLen || n > udpEnvelopeLen+frame.MaxSizeRaw {
			logger.Debugf("udp driver %s: dropping datagram of invalid size %d", u.addr, n)
			continue
		}

		var dst, src types.HwAddr
		copy(dst[:], buf[:types.AddrLen])
		copy(src[:], buf[types.AddrLen:udpEnvelopeLen])
		if dst != u.addr && !dst.IsBroadcast() {
			continue
		}
		if src == u.addr {
			continue // own broadcast looped back by the bridge
		}

		data := make([]byte, n-udpEnvelopeLen)
		copy(data, buf[udpEnvelopeLen:n])
		select {
		case u.rxq <- rxFrame{src: src, data: data}:
		default:
			logger.Debugf("udp driver %s: receive queue full, frame lost", u.addr)
		}
	}
}

func (u *UDP) HardwareAddr() types.HwAddr {
	return u.addr
}

// LocalAddr returns the bound UDP address, with the port resolved when the
// listen address requested an ephemeral one.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) Transmit(addr types.HwAddr, data []byte) (int, error) {
	if len(data) > frame.MaxSizeRaw {
		return 0, errors.Wrapf(types.ErrTransport, "frame of %d bytes exceeds %d", len(data), frame.MaxSizeRaw)
	}

	buf := make([]byte, udpEnvelopeLen+len(data))
	copy(buf[:types.AddrLen], addr[:])
	copy(buf[types.AddrLen:udpEnvelopeLen], u.addr[:])
	copy(buf[udpEnvelopeLen:], data)

	if _, err := u.conn.WriteToUDP(buf, u.peer); err != nil {
		return 0, errors.Wrapf(types.ErrTransport, "transmit: %v", err)
	}
	return len(data), nil
}

func (u *UDP) ReceiveInto(f *frame.Addressed) (int, error) {
	select {
	case rx := <-u.rxq:
		n := copy(f.Buf(), rx.data)
		f.SetLen(n)
		f.Addr = rx.src
		return n, nil
	default:
		return 0, nil
	}
}

// Peers is unknown for a UDP bridge; it reports no reachable peers.
func (u *UDP) Peers() (int, int) {
	return 0, 0
}

func (u *UDP) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.mu.Unlock()
	return u.conn.Close()
}
