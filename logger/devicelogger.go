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

package logger

import (
	"sync"
)

// DeviceLogger is a device-specific log object. The level can be raised per
// individual device to watch its traffic without flooding the global log.
type DeviceLogger struct {
	Name  string
	level Level
}

var (
	deviceLogs = make(map[string]*DeviceLogger, 4)
	devMutex   sync.Mutex
)

// GetDeviceLogger gets (or creates) the DeviceLogger for the named device.
func GetDeviceLogger(name string) *DeviceLogger {
	devMutex.Lock()
	defer devMutex.Unlock()

	dl, ok := deviceLogs[name]
	if !ok {
		dl = &DeviceLogger{Name: name, level: DefaultLevel}
		deviceLogs[name] = dl
	}
	return dl
}

// SetLevel sets the watch level of this device only.
func (dl *DeviceLogger) SetLevel(lv Level) {
	dl.level = lv
}

func (dl *DeviceLogger) GetLevel() Level {
	return dl.level
}

func (dl *DeviceLogger) logf(level Level, format string, args []interface{}) {
	if level > dl.level && level > currentLevel {
		return
	}
	logAlways(level, dl.Name+": "+getMessage(format, args))
}

func (dl *DeviceLogger) Tracef(format string, args ...interface{}) {
	dl.logf(TraceLevel, format, args)
}

func (dl *DeviceLogger) Debugf(format string, args ...interface{}) {
	dl.logf(DebugLevel, format, args)
}

func (dl *DeviceLogger) Infof(format string, args ...interface{}) {
	dl.logf(InfoLevel, format, args)
}

func (dl *DeviceLogger) Warnf(format string, args ...interface{}) {
	dl.logf(WarnLevel, format, args)
}

func (dl *DeviceLogger) Errorf(format string, args ...interface{}) {
	dl.logf(ErrorLevel, format, args)
}
