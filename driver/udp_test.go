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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowlink/nowlink/frame"
	"github.com/nowlink/nowlink/progctx"
	"github.com/nowlink/nowlink/types"
)

func TestUDPLoopback(t *testing.T) {
	ctx := progctx.New(context.Background())
	defer ctx.Wait()
	defer ctx.Cancel(nil)

	// u1 only receives; its peer address is never used
	u1, err := NewUDP(ctx, UDPConfig{
		Addr:       addrA,
		ListenAddr: "127.0.0.1:0",
		PeerAddr:   "127.0.0.1:9",
	})
	require.Nil(t, err)
	defer func() { _ = u1.Close() }()

	u2, err := NewUDP(ctx, UDPConfig{
		Addr:       addrB,
		ListenAddr: "127.0.0.1:0",
		PeerAddr:   u1.LocalAddr().String(),
	})
	require.Nil(t, err)
	defer func() { _ = u2.Close() }()

	// a frame for somebody else is filtered out by u1
	_, err = u2.Transmit(addrC, []byte{0x01, 0x99})
	require.Nil(t, err)

	data := []byte{0x01, 0xde, 0xad}
	n, err := u2.Transmit(addrA, data)
	require.Nil(t, err)
	assert.Equal(t, len(data), n)

	var f frame.Addressed
	require.Eventually(t, func() bool {
		n, err := u1.ReceiveInto(&f)
		return err == nil && n > 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, addrB, f.Addr)
	assert.Equal(t, data, f.Bytes())

	// nothing else pending: the misaddressed frame never surfaced
	n, err = u1.ReceiveInto(&f)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)

	all, enc := u1.Peers()
	assert.Equal(t, 0, all)
	assert.Equal(t, 0, enc)
}

func TestUDPBroadcastDelivery(t *testing.T) {
	ctx := progctx.New(context.Background())
	defer ctx.Wait()
	defer ctx.Cancel(nil)

	u1, err := NewUDP(ctx, UDPConfig{
		Addr:       addrA,
		ListenAddr: "127.0.0.1:0",
		PeerAddr:   "127.0.0.1:9",
	})
	require.Nil(t, err)
	defer func() { _ = u1.Close() }()

	u2, err := NewUDP(ctx, UDPConfig{
		Addr:       addrB,
		ListenAddr: "127.0.0.1:0",
		PeerAddr:   u1.LocalAddr().String(),
	})
	require.Nil(t, err)
	defer func() { _ = u2.Close() }()

	_, err = u2.Transmit(types.BroadcastAddr, []byte{0x00, 0x42})
	require.Nil(t, err)

	var f frame.Addressed
	require.Eventually(t, func() bool {
		n, err := u1.ReceiveInto(&f)
		return err == nil && n > 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, addrB, f.Addr)
}
