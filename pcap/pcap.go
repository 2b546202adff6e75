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

// Package pcap writes captured link frames to a PCAP file for offline
// inspection. Frames are stored with the DLT_USER0 link type and a small
// pseudo-header carrying the direction and the out-of-band peer address.
package pcap

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/nowlink/nowlink/types"
)

// Direction of a captured frame relative to the capturing device.
type Direction byte

const (
	DirOut Direction = 0
	DirIn  Direction = 1
)

const (
	dltUser0            = 147
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16

	// pseudo-header: direction(1) + peer hardware address
	pseudoHeaderSize = 1 + types.AddrLen
)

// File represents a capture file.
type File interface {
	AppendFrame(frame Frame) error
	Sync() error
	Close() error
}

// Frame is a single captured link frame. A zero Timestamp is replaced by the
// capture time.
type Frame struct {
	Timestamp uint64 // microseconds
	Dir       Direction
	Addr      types.HwAddr
	Data      []byte
}

type captureFile struct {
	fd *os.File
}

// NewFile creates a new capture file, truncating an existing one.
func NewFile(filename string) (File, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	pf := &captureFile{fd: fd}
	if err = pf.writeHeader(); err != nil {
		_ = pf.Close()
		return nil, err
	}
	return pf, nil
}

func (pf *captureFile) AppendFrame(frame Frame) error {
	ts := frame.Timestamp
	if ts == 0 {
		ts = uint64(time.Now().UnixNano() / 1000)
	}

	var header [pcapFrameHeaderSize + pseudoHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], uint32(ts/1000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(ts%1000000))
	plen := uint32(pseudoHeaderSize + len(frame.Data))
	binary.LittleEndian.PutUint32(header[8:12], plen)
	binary.LittleEndian.PutUint32(header[12:16], plen)
	header[16] = byte(frame.Dir)
	copy(header[17:], frame.Addr[:])

	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *captureFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *captureFile) Close() error {
	return pf.fd.Close()
}

func (pf *captureFile) writeHeader() error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], 256)
	binary.LittleEndian.PutUint32(header[20:24], dltUser0)
	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	return pf.fd.Sync()
}
