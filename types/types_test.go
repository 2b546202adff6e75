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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHwAddrString(t *testing.T) {
	a := HwAddr{0x02, 0x11, 0x22, 0xab, 0xcd, 0xef}
	assert.Equal(t, "02:11:22:ab:cd:ef", a.String())
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", BroadcastAddr.String())
}

func TestParseHwAddr(t *testing.T) {
	a, err := ParseHwAddr("02:11:22:ab:cd:ef")
	assert.Nil(t, err)
	assert.Equal(t, HwAddr{0x02, 0x11, 0x22, 0xab, 0xcd, 0xef}, a)

	a, err = ParseHwAddr("ff-ff-ff-ff-ff-ff")
	assert.Nil(t, err)
	assert.True(t, a.IsBroadcast())

	_, err = ParseHwAddr("02:11:22:ab:cd")
	assert.NotNil(t, err)
	_, err = ParseHwAddr("02:11:22:ab:cd:zz")
	assert.NotNil(t, err)
	_, err = ParseHwAddr("021122abcdef")
	assert.NotNil(t, err)
}

func TestProtoMapDefaults(t *testing.T) {
	m := DefaultProtoMap()
	assert.Equal(t, ProtoSixLowpan, m.Proto(TagSixLowpan))
	assert.Equal(t, TagSixLowpan, m.Tag(ProtoSixLowpan))
	assert.Equal(t, ProtoUndef, m.Proto(TagUndef))
	assert.Equal(t, ProtoUndef, m.Proto(0x7f))
	assert.Equal(t, TagUndef, m.Tag(ProtoIpv6))
}

func TestProtoMapRegister(t *testing.T) {
	m := DefaultProtoMap()
	assert.Nil(t, m.Register(2, ProtoIpv6))
	assert.Equal(t, ProtoIpv6, m.Proto(2))
	assert.Equal(t, FrameTag(2), m.Tag(ProtoIpv6))

	assert.NotNil(t, m.Register(0, ProtoIpv6))      // tag 0 reserved
	assert.NotNil(t, m.Register(2, ProtoSixLowpan)) // tag taken
	assert.NotNil(t, m.Register(3, ProtoIpv6))      // proto taken
	assert.NotNil(t, m.Register(4, ProtoLink))      // not a payload proto
	assert.NotNil(t, m.Register(5, ProtoUndef))     // not a payload proto
	assert.Equal(t, ProtoUndef, m.Proto(3), "failed Register must not mutate")
}

func TestProtoTypeString(t *testing.T) {
	assert.Equal(t, "6lowpan", ProtoSixLowpan.String())
	assert.Equal(t, "undef", ProtoUndef.String())

	p, err := ParseProtoType("ipv6")
	assert.Nil(t, err)
	assert.Equal(t, ProtoIpv6, p)
	_, err = ParseProtoType("spanning-tree")
	assert.NotNil(t, err)
}
