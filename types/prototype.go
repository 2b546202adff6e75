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

package types

import (
	"github.com/pkg/errors"
	"github.com/simonlingoogle/go-simplelogger"
)

// ProtoType identifies the protocol a packet segment belongs to, on the
// stack side of the link layer.
type ProtoType int

const (
	ProtoUndef     ProtoType = 0 // unknown or raw payload
	ProtoLink      ProtoType = 1 // link-layer header segment
	ProtoSixLowpan ProtoType = 2
	ProtoIpv6      ProtoType = 3
)

func (p ProtoType) String() string {
	switch p {
	case ProtoUndef:
		return "undef"
	case ProtoLink:
		return "link"
	case ProtoSixLowpan:
		return "6lowpan"
	case ProtoIpv6:
		return "ipv6"
	default:
		simplelogger.Panicf("invalid protocol type: %v", int(p))
		return "invalid"
	}
}

// ParseProtoType parses a protocol type name as used in config files and the CLI.
func ParseProtoType(s string) (ProtoType, error) {
	switch s {
	case "undef":
		return ProtoUndef, nil
	case "6lowpan":
		return ProtoSixLowpan, nil
	case "ipv6":
		return ProtoIpv6, nil
	default:
		return ProtoUndef, errors.Errorf("unknown protocol type %q", s)
	}
}

// FrameTag is the 1-byte type tag carried in the frame header on the wire.
type FrameTag = byte

const (
	// TagUndef marks a frame whose payload has no recognized next-layer protocol.
	TagUndef FrameTag = 0
	// TagSixLowpan is the reserved tag of the default next-layer protocol.
	TagSixLowpan FrameTag = 1
)

// ProtoMap is the closed mapping between wire frame tags and upper-layer
// protocol types. The zero tag is fixed to ProtoUndef and cannot be remapped.
type ProtoMap struct {
	toProto map[FrameTag]ProtoType
	toTag   map[ProtoType]FrameTag
}

// DefaultProtoMap returns the mapping of the reference transport, which
// recognizes 6LoWPAN as the only next-layer protocol.
func DefaultProtoMap() *ProtoMap {
	m := NewProtoMap()
	err := m.Register(TagSixLowpan, ProtoSixLowpan)
	simplelogger.PanicIfError(err)
	return m
}

func NewProtoMap() *ProtoMap {
	return &ProtoMap{
		toProto: make(map[FrameTag]ProtoType, 2),
		toTag:   make(map[ProtoType]FrameTag, 2),
	}
}

// Register adds a tag <-> protocol pair to the mapping.
func (m *ProtoMap) Register(tag FrameTag, proto ProtoType) error {
	if tag == TagUndef {
		return errors.New("frame tag 0 is reserved for undefined payloads")
	}
	if proto == ProtoUndef || proto == ProtoLink {
		return errors.Errorf("protocol %v cannot be a next-layer protocol", proto)
	}
	if _, ok := m.toProto[tag]; ok {
		return errors.Errorf("frame tag %d already registered", tag)
	}
	if _, ok := m.toTag[proto]; ok {
		return errors.Errorf("protocol %v already registered", proto)
	}
	m.toProto[tag] = proto
	m.toTag[proto] = tag
	return nil
}

// Tag returns the wire tag for the given protocol, or TagUndef if the
// protocol is not a recognized next-layer protocol.
func (m *ProtoMap) Tag(proto ProtoType) FrameTag {
	return m.toTag[proto] // zero value is TagUndef
}

// Proto returns the protocol type for the given wire tag, or ProtoUndef if
// the tag is not recognized.
func (m *ProtoMap) Proto(tag FrameTag) ProtoType {
	return m.toProto[tag] // zero value is ProtoUndef
}
