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

// Package driver provides transport drivers that move opaque link frames
// between hardware addresses: an in-memory radio segment for simulations
// and tests, a UDP bridge, and a serial driver for a radio co-processor.
package driver

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/frame"
	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/prng"
	"github.com/nowlink/nowlink/types"
)

// rxFrame is one frame pending in a port's receive queue.
type rxFrame struct {
	src  types.HwAddr
	data []byte
}

// defaultQueueLen is the per-port receive queue length; frames arriving at a
// full queue are lost, as they would be on air.
const defaultQueueLen = 16

// Switch is an in-memory radio segment: every port hears unicast frames
// addressed to it and all broadcast frames of the other ports.
type Switch struct {
	mu    sync.Mutex
	ports map[types.HwAddr]*Port
}

func NewSwitch() *Switch {
	return &Switch{ports: make(map[types.HwAddr]*Port)}
}

// NewPort attaches a new radio to the segment. A zero addr picks a random
// one; the queueLen 0 selects the default queue length.
func (s *Switch) NewPort(addr types.HwAddr, queueLen int) (*Port, error) {
	if addr == (types.HwAddr{}) {
		addr = prng.NewHwAddr()
	}
	if addr.IsBroadcast() {
		return nil, errors.Wrap(types.ErrFormat, "broadcast is not a valid port address")
	}
	if queueLen <= 0 {
		queueLen = defaultQueueLen
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ports[addr]; ok {
		return nil, errors.Errorf("port address %s already in use", addr)
	}
	p := &Port{
		sw:   s,
		addr: addr,
		rxq:  make(chan rxFrame, queueLen),
	}
	s.ports[addr] = p
	return p, nil
}

func (s *Switch) removePort(p *Port) {
	s.mu.Lock()
	delete(s.ports, p.addr)
	s.mu.Unlock()
}

// deliver queues data at every destination port. The sender never hears its
// own broadcasts.
func (s *Switch) deliver(from *Port, dst types.HwAddr, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	f := rxFrame{src: from.addr, data: buf}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dst.IsBroadcast() {
		for _, p := range s.ports {
			if p != from {
				p.enqueue(f)
			}
		}
		return
	}
	if p, ok := s.ports[dst]; ok {
		p.enqueue(f)
	}
	// an unknown unicast destination is silently lost, like on air
}

// Port is one radio attached to a Switch. It implements the transport
// driver boundary consumed by netif.
type Port struct {
	sw     *Switch
	addr   types.HwAddr
	rxq    chan rxFrame
	closed bool
	mu     sync.Mutex
}

func (p *Port) enqueue(f rxFrame) {
	select {
	case p.rxq <- f:
	default:
		logger.Debugf("switch port %s: receive queue full, frame lost", p.addr)
	}
}

func (p *Port) HardwareAddr() types.HwAddr {
	return p.addr
}

// Transmit sends one frame into the segment and reports all bytes accepted.
func (p *Port) Transmit(addr types.HwAddr, data []byte) (int, error) {
	if len(data) > frame.MaxSizeRaw {
		return 0, errors.Wrapf(types.ErrTransport, "frame of %d bytes exceeds %d", len(data), frame.MaxSizeRaw)
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, errors.Wrap(types.ErrTransport, "port is closed")
	}

	p.sw.deliver(p, addr, data)
	return len(data), nil
}

// ReceiveInto pops one pending frame, if any, without blocking.
func (p *Port) ReceiveInto(f *frame.Addressed) (int, error) {
	select {
	case rx := <-p.rxq:
		n := copy(f.Buf(), rx.data)
		f.SetLen(n)
		f.Addr = rx.src
		return n, nil
	default:
		return 0, nil
	}
}

// Peers counts the other ports of the segment. The in-memory segment has no
// encryption, so the encrypted count is always zero.
func (p *Port) Peers() (int, int) {
	p.sw.mu.Lock()
	defer p.sw.mu.Unlock()
	return len(p.sw.ports) - 1, 0
}

func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.sw.removePort(p)
	return nil
}
