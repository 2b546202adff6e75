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

// Package pktbuf implements the stack-side packet representation: packets
// are chains of protocol-tagged segments (snips) allocated from a shared,
// bounded pool.
package pktbuf

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/types"
)

// Snip is one segment of a packet chain.
type Snip struct {
	next  *Snip
	proto types.ProtoType
	data  []byte
}

// Next returns the next snip in the chain, or nil at the tail.
func (s *Snip) Next() *Snip {
	return s.next
}

func (s *Snip) Proto() types.ProtoType {
	return s.proto
}

// Data returns the snip's byte storage. The caller may modify the bytes but
// must not grow the slice.
func (s *Snip) Data() []byte {
	return s.data
}

func (s *Snip) Size() int {
	return len(s.data)
}

// Pool is the shared allocator for packet segments. It accounts a byte
// budget; when the budget is exhausted, allocations fail with
// types.ErrNoSpace until segments are released.
type Pool struct {
	mu       sync.Mutex
	capacity int
	used     int
}

// DefaultPoolCapacity is the default byte budget of a Pool, sized to hold a
// modest backlog of maximum-size frames.
const DefaultPoolCapacity = 6144

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{capacity: capacity}
}

// Used returns the number of bytes currently allocated from the pool.
func (pl *Pool) Used() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.used
}

func (pl *Pool) Capacity() int {
	return pl.capacity
}

// NewSnip allocates a snip of the given size from the pool. If data is
// non-nil its bytes are copied in; data may be shorter than size, the rest
// stays zeroed. A zero size is valid and yields an empty segment.
func (pl *Pool) NewSnip(data []byte, size int, proto types.ProtoType) (*Snip, error) {
	if size < 0 || len(data) > size {
		return nil, errors.Wrapf(types.ErrFormat, "invalid snip size %d", size)
	}

	pl.mu.Lock()
	if pl.used+size > pl.capacity {
		pl.mu.Unlock()
		return nil, errors.Wrapf(types.ErrNoSpace, "snip of %d bytes (pool %d/%d used)",
			size, pl.used, pl.capacity)
	}
	pl.used += size
	pl.mu.Unlock()

	s := &Snip{proto: proto, data: make([]byte, size)}
	copy(s.data, data)
	return s, nil
}

func (pl *Pool) releaseSnip(s *Snip) {
	pl.mu.Lock()
	pl.used -= len(s.data)
	if pl.used < 0 {
		pl.used = 0
	}
	pl.mu.Unlock()
	s.next = nil
	s.data = nil
}

// Packet is an ordered chain of snips. The first snip of a link-layer packet
// is the link-layer header segment (types.ProtoLink); the remaining snips
// hold payload bytes.
type Packet struct {
	head *Snip
	tail *Snip
	pool *Pool
}

// NewPacket creates an empty packet drawing its segments from pool.
func NewPacket(pool *Pool) *Packet {
	return &Packet{pool: pool}
}

func (p *Packet) Head() *Snip {
	return p.head
}

// Append links s as the new tail of the chain. s must have been allocated
// from the packet's pool.
func (p *Packet) Append(s *Snip) {
	if p.head == nil {
		p.head, p.tail = s, s
		return
	}
	p.tail.next = s
	p.tail = s
}

// Prepend links s as the new head of the chain.
func (p *Packet) Prepend(s *Snip) {
	s.next = p.head
	p.head = s
	if p.tail == nil {
		p.tail = s
	}
}

// Len returns the number of snips in the chain.
func (p *Packet) Len() int {
	n := 0
	for s := p.head; s != nil; s = s.next {
		n++
	}
	return n
}

// PayloadSize returns the total byte size of all snips after the head.
func (p *Packet) PayloadSize() int {
	if p.head == nil {
		return 0
	}
	n := 0
	for s := p.head.next; s != nil; s = s.next {
		n += len(s.data)
	}
	return n
}

// Release returns every snip of the chain to the pool. The packet is empty
// afterwards; releasing an already-released packet is a no-op.
func (p *Packet) Release() {
	s := p.head
	p.head, p.tail = nil, nil
	for s != nil {
		next := s.next
		p.pool.releaseSnip(s)
		s = next
	}
}
