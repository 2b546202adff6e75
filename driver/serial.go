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
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/nowlink/nowlink/frame"
	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/progctx"
	"github.com/nowlink/nowlink/types"
)

// Serial talks to an ESP-NOW radio co-processor over UART. Each direction
// carries envelopes of the form: length(1) peer-address(6) frame bytes,
// where length counts the frame bytes only. Outbound the address is the
// destination; inbound it is the source the co-processor reports.
type Serial struct {
	addr   types.HwAddr
	port   serial.Port
	rxq    chan rxFrame
	ctx    *progctx.ProgCtx
	wrLock sync.Mutex
	closed bool
	mu     sync.Mutex
}

// SerialConfig configures a serial co-processor driver.
type SerialConfig struct {
	// PortName is the device path of the UART, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate 0 selects 115200.
	BaudRate int
	// Addr is the radio's own hardware address, as reported by or
	// provisioned into the co-processor.
	Addr types.HwAddr
	// QueueLen is the receive queue length (0 selects the default).
	QueueLen int
}

// NewSerial opens the UART and starts the receive loop on ctx.
func NewSerial(ctx *progctx.ProgCtx, cfg SerialConfig) (*Serial, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.PortName, mode)
	if err != nil {
		return nil, errors.Wrapf(types.ErrTransport, "open %s: %v", cfg.PortName, err)
	}

	queueLen := cfg.QueueLen
	if queueLen <= 0 {
		queueLen = defaultQueueLen
	}
	s := &Serial{
		addr: cfg.Addr,
		port: port,
		rxq:  make(chan rxFrame, queueLen),
		ctx:  ctx,
	}

	ctx.WaitAdd("serial-driver-rx", 1)
	go s.rxLoop()
	return s, nil
}

func (s *Serial) rxLoop() {
	defer s.ctx.WaitDone("serial-driver-rx")

	var envelope [1 + types.AddrLen + frame.MaxSizeRaw]byte
	for {
		if _, err := io.ReadFull(s.port, envelope[:1]); err != nil {
			if s.isClosed() || s.ctx.Err() != nil {
				return
			}
			logger.Warnf("serial driver %s: read failed: %v", s.addr, err)
			return
		}
		n := int(envelope[0])
		if n > frame.MaxSizeRaw {
			logger.Debugf("serial driver %s: dropping envelope of invalid size %d", s.addr, n)
			continue
		}
		if _, err := io.ReadFull(s.port, envelope[1:1+types.AddrLen+n]); err != nil {
			if s.isClosed() || s.ctx.Err() != nil {
				return
			}
			logger.Warnf("serial driver %s: read failed: %v", s.addr, err)
			return
		}

		var src types.HwAddr
		copy(src[:], envelope[1:1+types.AddrLen])
		data := make([]byte, n)
		copy(data, envelope[1+types.AddrLen:1+types.AddrLen+n])

		select {
		case s.rxq <- rxFrame{src: src, data: data}:
		default:
			logger.Debugf("serial driver %s: receive queue full, frame lost", s.addr)
		}
	}
}

func (s *Serial) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Serial) HardwareAddr() types.HwAddr {
	return s.addr
}

func (s *Serial) Transmit(addr types.HwAddr, data []byte) (int, error) {
	if len(data) > frame.MaxSizeRaw {
		return 0, errors.Wrapf(types.ErrTransport, "frame of %d bytes exceeds %d", len(data), frame.MaxSizeRaw)
	}

	envelope := make([]byte, 1+types.AddrLen+len(data))
	envelope[0] = byte(len(data))
	copy(envelope[1:], addr[:])
	copy(envelope[1+types.AddrLen:], data)

	s.wrLock.Lock()
	defer s.wrLock.Unlock()
	if _, err := s.port.Write(envelope); err != nil {
		return 0, errors.Wrapf(types.ErrTransport, "transmit: %v", err)
	}
	return len(data), nil
}

func (s *Serial) ReceiveInto(f *frame.Addressed) (int, error) {
	select {
	case rx := <-s.rxq:
		n := copy(f.Buf(), rx.data)
		f.SetLen(n)
		f.Addr = rx.src
		return n, nil
	default:
		return 0, nil
	}
}

// Peers is not tracked by the serial envelope protocol.
func (s *Serial) Peers() (int, int) {
	return 0, 0
}

func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.port.Close()
}
