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

package netif

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/frame"
	"github.com/nowlink/nowlink/pktbuf"
	"github.com/nowlink/nowlink/types"
)

// Registry is the stack's interface table: it constructs device adapters
// over transport drivers, assigns interface indexes, and owns the shared
// packet pool and protocol mapping handed to each device's codec.
type Registry struct {
	mu      sync.Mutex
	protos  *types.ProtoMap
	pool    *pktbuf.Pool
	byIndex map[types.IfIndex]*Device
	byName  map[string]*Device
	nextIdx types.IfIndex
}

// NewRegistry creates an interface table whose devices share the given pool
// and protocol mapping. Pass nil to use the defaults.
func NewRegistry(protos *types.ProtoMap, pool *pktbuf.Pool) *Registry {
	if protos == nil {
		protos = types.DefaultProtoMap()
	}
	if pool == nil {
		pool = pktbuf.NewPool(0)
	}
	return &Registry{
		protos:  protos,
		pool:    pool,
		byIndex: make(map[types.IfIndex]*Device),
		byName:  make(map[string]*Device),
		nextIdx: types.InvalidIfIndex + 1,
	}
}

func (r *Registry) Pool() *pktbuf.Pool {
	return r.pool
}

func (r *Registry) Protos() *types.ProtoMap {
	return r.protos
}

// Add constructs a device adapter over drv and registers it under the given
// name. The device is usable immediately.
func (r *Registry) Add(name string, drv Driver) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return nil, errors.New("device name must not be empty")
	}
	if _, ok := r.byName[name]; ok {
		return nil, errors.Errorf("device %q already registered", name)
	}

	d := newDevice(name, r.nextIdx, drv, frame.NewCodec(r.protos, r.pool))
	r.byIndex[d.ifIndex] = d
	r.byName[name] = d
	r.nextIdx++
	return d, nil
}

// Remove unregisters the device and closes it.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	d, ok := r.byName[name]
	if ok {
		delete(r.byName, name)
		delete(r.byIndex, d.ifIndex)
	}
	r.mu.Unlock()

	if !ok {
		return errors.Errorf("device %q not registered", name)
	}
	return d.Close()
}

// Get looks a device up by interface index; nil if not registered.
func (r *Registry) Get(ifIndex types.IfIndex) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byIndex[ifIndex]
}

// GetByName looks a device up by name; nil if not registered.
func (r *Registry) GetByName(name string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// List returns all registered devices ordered by interface index.
func (r *Registry) List() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	devs := make([]*Device, 0, len(r.byIndex))
	for _, d := range r.byIndex {
		devs = append(devs, d)
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].ifIndex < devs[j].ifIndex })
	return devs
}

// Close removes and closes all devices; the first error is returned.
func (r *Registry) Close() error {
	var firstErr error
	for _, d := range r.List() {
		if err := r.Remove(d.Name()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
