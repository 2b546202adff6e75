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

// Package types holds the basic types shared by all nowlink packages.
package types

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

type IfIndex = int

// InvalidIfIndex marks a device that is not registered with any interface table.
const InvalidIfIndex IfIndex = 0

// AddrLen is the native hardware address length of ESP-NOW-class transports
// (same as an Ethernet MAC address).
const AddrLen = 6

// HwAddr is a transport-native hardware address.
type HwAddr [AddrLen]byte

// BroadcastAddr is the all-ones address. ESP-NOW has no native multicast;
// multicast traffic is sent to this address as well.
var BroadcastAddr = HwAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (a HwAddr) String() string {
	sb := strings.Builder{}
	for i, b := range a {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hex.EncodeToString([]byte{b}))
	}
	return sb.String()
}

func (a HwAddr) IsBroadcast() bool {
	return a == BroadcastAddr
}

// ParseHwAddr parses a colon- or dash-separated hardware address string.
func ParseHwAddr(s string) (HwAddr, error) {
	var a HwAddr
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != AddrLen {
		return a, errors.Errorf("invalid hardware address %q", s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return a, errors.Errorf("invalid hardware address %q", s)
		}
		a[i] = b[0]
	}
	return a, nil
}
