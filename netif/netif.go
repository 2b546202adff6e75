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

// Package netif implements the device adapter that connects one radio
// transport driver to the stack's packet representation.
package netif

import (
	"sync"

	"github.com/nowlink/nowlink/frame"
	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/pcap"
	"github.com/nowlink/nowlink/pktbuf"
	"github.com/nowlink/nowlink/types"
)

// Driver is the boundary to the external radio transport. Implementations
// manage peers, sessions and encryption on their own; the adapter only moves
// opaque frames through them.
type Driver interface {
	// Transmit sends one frame to the given hardware address and reports
	// how many bytes were accepted.
	Transmit(addr types.HwAddr, data []byte) (int, error)

	// ReceiveInto writes one pending frame into f, sets its length and
	// carried source address, and returns the byte count. A non-positive
	// count means no frame was pending; it must leave f untouched then.
	ReceiveInto(f *frame.Addressed) (int, error)

	// HardwareAddr returns the local address of the radio.
	HardwareAddr() types.HwAddr

	// Peers returns the number of currently reachable peers and how many of
	// them use an encrypted session.
	Peers() (all int, encrypted int)

	Close() error
}

// Device is the adapter for one radio device. A device processes one send or
// one receive at a time; both entry points hold the device lock for their
// duration. The inbound frame buffer is reused across receives: the chain
// returned by Recv holds copies, never references into the buffer.
type Device struct {
	name    string
	ifIndex types.IfIndex
	addr    types.HwAddr
	codec   *frame.Codec
	drv     Driver
	log     *logger.DeviceLogger

	lock sync.Mutex      // serializes send/receive on this device
	rx   frame.Addressed // reusable receive buffer, guarded by lock
	tx   frame.Addressed // outbound scratch buffer, guarded by lock

	capture pcap.File // optional, nil when disabled
}

func newDevice(name string, ifIndex types.IfIndex, drv Driver, codec *frame.Codec) *Device {
	d := &Device{
		name:    name,
		ifIndex: ifIndex,
		addr:    drv.HardwareAddr(),
		codec:   codec,
		drv:     drv,
		log:     logger.GetDeviceLogger(name),
	}
	d.log.Debugf("device created, addr=%s ifIndex=%d", d.addr, ifIndex)
	return d
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) IfIndex() types.IfIndex {
	return d.ifIndex
}

func (d *Device) HardwareAddr() types.HwAddr {
	return d.addr
}

// MTU returns the maximum payload a single link-layer send can carry.
func (d *Device) MTU() int {
	return frame.MaxPayload
}

// Peers reports the driver's peer bookkeeping. Informational only.
func (d *Device) Peers() (all int, encrypted int) {
	return d.drv.Peers()
}

// Logger returns the device-specific logger, whose level can be raised to
// watch this device only.
func (d *Device) Logger() *logger.DeviceLogger {
	return d.log
}

// Send flattens pkt into a single radio frame and hands it to the transport
// driver. It consumes pkt on every path. The returned count is the driver's
// own result, the number of bytes it accepted for transmission.
func (d *Device) Send(pkt *pktbuf.Packet) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.codec.Flatten(pkt, &d.tx); err != nil {
		return 0, err
	}

	d.log.Debugf("sending frame to %s with size %d", d.tx.Addr, d.tx.Len()-frame.HeaderLen)
	if d.capture != nil {
		d.appendCapture(pcap.DirOut, &d.tx)
	}

	n, err := d.drv.Transmit(d.tx.Addr, d.tx.Bytes())
	d.tx.Reset()
	if err != nil {
		// surfaced verbatim; the driver wraps types.ErrTransport itself
		return 0, err
	}
	return n, nil
}

// Recv pulls one pending frame from the transport driver and reconstructs it
// into a packet chain. It returns (nil, nil) when no frame is pending.
// Ownership of the returned chain passes to the caller, which must release
// it after use. A dropped receive (allocation failure) leaves the device
// usable.
func (d *Device) Recv() (*pktbuf.Packet, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	n, err := d.drv.ReceiveInto(&d.rx)
	if err != nil {
		d.log.Debugf("failed receiving frame: %v", err)
		return nil, err
	}
	if n > 0 {
		d.log.Debugf("received frame from %s of length %d", d.rx.Addr, n-frame.HeaderLen)
		if d.capture != nil {
			d.appendCapture(pcap.DirIn, &d.rx)
		}
	}

	return d.codec.Expand(&d.rx, n, d.addr, d.ifIndex)
}

// Close shuts the underlying driver down and finishes a pending capture.
func (d *Device) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.capture != nil {
		_ = d.capture.Close()
		d.capture = nil
	}
	return d.drv.Close()
}

// SetCapture enables capturing of all frames of this device to f, or
// disables capturing when f is nil.
func (d *Device) SetCapture(f pcap.File) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.capture = f
}

func (d *Device) appendCapture(dir pcap.Direction, f *frame.Addressed) {
	err := d.capture.AppendFrame(pcap.Frame{Dir: dir, Addr: f.Addr, Data: f.Bytes()})
	if err != nil {
		d.log.Warnf("frame capture failed, disabling: %v", err)
		_ = d.capture.Close()
		d.capture = nil
	}
}
