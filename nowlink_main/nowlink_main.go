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

// Package nowlink_main wires configuration, drivers, the device registry and
// the console together into the nowlink-cli program.
package nowlink_main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/nowlink/nowlink/cli"
	"github.com/nowlink/nowlink/cli/runcli"
	"github.com/nowlink/nowlink/config"
	"github.com/nowlink/nowlink/driver"
	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/netif"
	"github.com/nowlink/nowlink/pcap"
	"github.com/nowlink/nowlink/pktbuf"
	"github.com/nowlink/nowlink/progctx"
)

type MainArgs struct {
	ConfigFile string
	LogLevel   string
}

var (
	args MainArgs
)

func parseArgs() {
	flag.StringVar(&args.ConfigFile, "config", "", "specify the configuration file")
	flag.StringVar(&args.LogLevel, "log", "", "set logging level: trace, debug, info, warn, error.")

	flag.Parse()
}

// Main runs nowlink-cli until the console exits or a signal arrives.
func Main(ctx *progctx.ProgCtx, cliOptions *runcli.CliOptions) {
	parseArgs()

	cfg := config.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		cfg, err = config.Load(args.ConfigFile)
		logger.FatalIfError(err)
	}

	levelStr := cfg.LogLevel
	if args.LogLevel != "" {
		levelStr = args.LogLevel
	}
	if levelStr != "" {
		lev, err := logger.ParseLevelString(levelStr)
		logger.FatalIfError(err)
		logger.SetLevel(lev)
	}

	// the console owns stdin; closing it unblocks readline on exit
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})

	handleSignals(ctx)

	registry, segment, err := buildStack(ctx, cfg)
	logger.FatalIfError(err)
	ctx.Defer(func() {
		_ = registry.Close()
	})

	rt := cli.NewCmdRunner(ctx, registry, segment)

	err = runcli.RunCli(rt, cliOptions)
	ctx.Cancel(errors.Wrapf(err, "console exit"))

	logger.Debugf("waiting for nowlink-cli to stop gracefully ...")
	ctx.Wait()
}

// buildStack constructs the registry and registers the configured devices.
func buildStack(ctx *progctx.ProgCtx, cfg *config.Config) (*netif.Registry, *driver.Switch, error) {
	protos, err := cfg.ProtoMap()
	if err != nil {
		return nil, nil, err
	}
	registry := netif.NewRegistry(protos, pktbuf.NewPool(cfg.PoolCapacity))
	segment := driver.NewSwitch()

	for _, dc := range cfg.Devices {
		addr, err := dc.HardwareAddr()
		if err != nil {
			return nil, nil, err
		}

		var drv netif.Driver
		switch dc.Driver {
		case "sim":
			drv, err = segment.NewPort(addr, 0)
		case "udp":
			drv, err = driver.NewUDP(ctx, driver.UDPConfig{
				Addr:       addr,
				ListenAddr: dc.UDP.Listen,
				PeerAddr:   dc.UDP.Peer,
			})
		case "serial":
			drv, err = driver.NewSerial(ctx, driver.SerialConfig{
				PortName: dc.Serial.Port,
				BaudRate: dc.Serial.Baud,
				Addr:     addr,
			})
		default:
			err = errors.Errorf("unknown driver %q", dc.Driver)
		}
		if err != nil {
			_ = registry.Close()
			return nil, nil, errors.Wrapf(err, "device %q", dc.Name)
		}

		dev, err := registry.Add(dc.Name, drv)
		if err != nil {
			_ = drv.Close()
			_ = registry.Close()
			return nil, nil, err
		}

		if dc.Pcap != "" {
			f, err := pcap.NewFile(dc.Pcap)
			if err != nil {
				_ = registry.Close()
				return nil, nil, err
			}
			dev.SetCapture(f)
		}
	}
	return registry, segment, nil
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
