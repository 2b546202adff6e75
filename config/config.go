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

// Package config loads the stack configuration from a YAML file and
// translates it into runtime objects.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/types"
)

// ProtoEntry maps one on-air frame tag to an upper-layer protocol.
type ProtoEntry struct {
	Tag   uint8  `yaml:"tag"`
	Proto string `yaml:"proto"`
}

// UDPConfig configures a UDP bridge device.
type UDPConfig struct {
	Addr   string `yaml:"addr"`
	Listen string `yaml:"listen"`
	Peer   string `yaml:"peer"`
}

// SerialConfig configures a serial co-processor device.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	Addr string `yaml:"addr"`
}

// DeviceConfig declares one device to register at startup. Driver selects
// the transport: "sim" attaches to the in-memory segment, "udp" and
// "serial" use the matching sub-config.
type DeviceConfig struct {
	Name   string        `yaml:"name"`
	Driver string        `yaml:"driver"`
	Addr   string        `yaml:"addr,omitempty"`
	Pcap   string        `yaml:"pcap,omitempty"`
	UDP    *UDPConfig    `yaml:"udp,omitempty"`
	Serial *SerialConfig `yaml:"serial,omitempty"`
}

// Config is the top-level stack configuration.
type Config struct {
	LogLevel     string         `yaml:"loglevel,omitempty"`
	PoolCapacity int            `yaml:"pool_capacity,omitempty"`
	Protocols    []ProtoEntry   `yaml:"protocols,omitempty"`
	Devices      []DeviceConfig `yaml:"devices,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given: two
// simulated devices on a shared segment.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Devices: []DeviceConfig{
			{Name: "radio0", Driver: "sim"},
			{Name: "radio1", Driver: "sim"},
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.LogLevel != "" {
		if _, err := logger.ParseLevelString(c.LogLevel); err != nil {
			return err
		}
	}
	if c.PoolCapacity < 0 {
		return errors.Errorf("pool_capacity must not be negative: %d", c.PoolCapacity)
	}

	seenTags := map[uint8]bool{}
	for _, p := range c.Protocols {
		if p.Tag == 0 {
			return errors.New("protocol tag 0 is reserved")
		}
		if seenTags[p.Tag] {
			return errors.Errorf("duplicate protocol tag %d", p.Tag)
		}
		seenTags[p.Tag] = true
		if _, err := types.ParseProtoType(p.Proto); err != nil {
			return err
		}
	}

	seenNames := map[string]bool{}
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Name == "" {
			return errors.Errorf("device %d has no name", i)
		}
		if seenNames[d.Name] {
			return errors.Errorf("duplicate device name %q", d.Name)
		}
		seenNames[d.Name] = true

		switch d.Driver {
		case "sim":
		case "udp":
			if d.UDP == nil || d.UDP.Listen == "" || d.UDP.Peer == "" {
				return errors.Errorf("device %q: udp driver needs listen and peer addresses", d.Name)
			}
		case "serial":
			if d.Serial == nil || d.Serial.Port == "" {
				return errors.Errorf("device %q: serial driver needs a port", d.Name)
			}
		default:
			return errors.Errorf("device %q: unknown driver %q", d.Name, d.Driver)
		}

		if _, err := d.HardwareAddr(); err != nil {
			return err
		}
	}
	return nil
}

// HardwareAddr resolves the configured hardware address of the device. A
// driver-specific address overrides the device-level one; the zero address
// means none was configured and a random one is picked at construction.
func (d *DeviceConfig) HardwareAddr() (types.HwAddr, error) {
	s := d.Addr
	switch d.Driver {
	case "udp":
		if d.UDP != nil && d.UDP.Addr != "" {
			s = d.UDP.Addr
		}
	case "serial":
		if d.Serial != nil && d.Serial.Addr != "" {
			s = d.Serial.Addr
		}
	}
	if s == "" {
		return types.HwAddr{}, nil
	}
	return types.ParseHwAddr(s)
}

// ProtoMap builds the tag mapping declared in the configuration, on top of
// the default one.
func (c *Config) ProtoMap() (*types.ProtoMap, error) {
	pm := types.DefaultProtoMap()
	for _, p := range c.Protocols {
		proto, err := types.ParseProtoType(p.Proto)
		if err != nil {
			return nil, err
		}
		if err = pm.Register(types.FrameTag(p.Tag), proto); err != nil {
			return nil, err
		}
	}
	return pm, nil
}
