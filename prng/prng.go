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

// Package prng provides the seeded randomness used for simulated devices.
package prng

import (
	"math/rand"
	"sync"
	"time"

	"github.com/nowlink/nowlink/types"
)

var (
	addrGenerator *rand.Rand
	mutex         sync.Mutex
)

// Init initializes the prng package, either with a fixed PRNG seed
// (rootSeed != 0) for reproducible simulations, or a time-based seed.
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	mutex.Lock()
	addrGenerator = rand.New(rand.NewSource(rootSeed))
	mutex.Unlock()
}

// NewHwAddr generates a random locally-administered unicast hardware address
// for a simulated device.
func NewHwAddr() types.HwAddr {
	mutex.Lock()
	defer mutex.Unlock()
	if addrGenerator == nil {
		addrGenerator = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var a types.HwAddr
	for i := range a {
		a[i] = byte(addrGenerator.Intn(256))
	}
	a[0] = a[0]&0xfc | 0x02 // locally administered, unicast
	return a
}
