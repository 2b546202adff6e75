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

// Package cli implements the interactive console of the link bridge. It
// parses and executes CLI commands against the device registry.
package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nowlink/nowlink/driver"
	"github.com/nowlink/nowlink/logger"
	"github.com/nowlink/nowlink/netif"
	"github.com/nowlink/nowlink/pcap"
	"github.com/nowlink/nowlink/pktbuf"
	"github.com/nowlink/nowlink/progctx"
	"github.com/nowlink/nowlink/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes console commands against the device registry and the
// in-memory segment used for devices added at the console.
type CmdRunner struct {
	ctx      *progctx.ProgCtx
	registry *netif.Registry
	segment  *driver.Switch
	help     Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, registry *netif.Registry, segment *driver.Switch) *CmdRunner {
	cr := &CmdRunner{
		ctx:      ctx,
		registry: registry,
		segment:  segment,
		help:     newHelp(),
	}
	return cr
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.Execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) Execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Add != nil {
		rt.executeAdd(cc, cmd.Add)
	} else if cmd.Del != nil {
		rt.executeDel(cc, cmd.Del)
	} else if cmd.Nodes != nil {
		rt.executeNodes(cc)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Recv != nil {
		rt.executeRecv(cc, cmd.Recv)
	} else if cmd.Status != nil {
		rt.executeStatus(cc)
	} else if cmd.Peers != nil {
		rt.executePeers(cc, cmd.Peers)
	} else if cmd.Pcap != nil {
		rt.executePcap(cc, cmd.Pcap)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else {
		cc.errorf("unimplemented command: %#v", cmd)
	}
}

func (rt *CmdRunner) executeAdd(cc *CommandContext, cmd *AddCmd) {
	logger.Debugf("Add: %#v", *cmd)

	var addr types.HwAddr
	if cmd.Addr != nil {
		var err error
		if addr, err = types.ParseHwAddr(cmd.Addr.Addr); err != nil {
			cc.error(err)
			return
		}
	}

	port, err := rt.segment.NewPort(addr, 0)
	if err != nil {
		cc.error(err)
		return
	}
	dev, err := rt.registry.Add(cmd.Name, port)
	if err != nil {
		_ = port.Close()
		cc.error(err)
		return
	}
	cc.outputf("%d\n", dev.IfIndex())
}

func (rt *CmdRunner) executeDel(cc *CommandContext, cmd *DelCmd) {
	for _, name := range cmd.Names {
		if err := rt.registry.Remove(name); err != nil {
			cc.error(err)
		}
	}
}

func (rt *CmdRunner) executeNodes(cc *CommandContext) {
	for _, dev := range rt.registry.List() {
		all, enc := dev.Peers()
		cc.outputf("name=%s\tifindex=%d\taddr=%s\tmtu=%d\tpeers=%d/%d\n",
			dev.Name(), dev.IfIndex(), dev.HardwareAddr(), dev.MTU(), all, enc)
	}
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	dev := rt.registry.GetByName(cmd.Device)
	if dev == nil {
		cc.errorf("device %q not found", cmd.Device)
		return
	}

	hdr := &pktbuf.LinkHdr{}
	if cmd.Dst.Bcast != nil {
		hdr.Flags = pktbuf.FlagBroadcast
	} else {
		dst, err := types.ParseHwAddr(*cmd.Dst.Addr)
		if err != nil {
			cc.error(err)
			return
		}
		hdr.Dst = dst[:]
	}

	proto := types.ProtoSixLowpan
	if cmd.Proto != nil {
		var err error
		if proto, err = types.ParseProtoType(cmd.Proto.Val); err != nil {
			cc.error(err)
			return
		}
	}

	pool := rt.registry.Pool()
	hdrSnip, err := pool.NewLinkHdrSnip(hdr)
	if err != nil {
		cc.error(err)
		return
	}
	payload := []byte(cmd.Payload)
	dataSnip, err := pool.NewSnip(payload, len(payload), proto)
	if err != nil {
		pkt := pktbuf.NewPacket(pool)
		pkt.Append(hdrSnip)
		pkt.Release()
		cc.error(err)
		return
	}

	pkt := pktbuf.NewPacket(pool)
	pkt.Append(hdrSnip)
	pkt.Append(dataSnip)

	n, err := dev.Send(pkt)
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputf("%d\n", n)
}

func (rt *CmdRunner) executeRecv(cc *CommandContext, cmd *RecvCmd) {
	dev := rt.registry.GetByName(cmd.Device)
	if dev == nil {
		cc.errorf("device %q not found", cmd.Device)
		return
	}

	pkt, err := dev.Recv()
	if err != nil {
		cc.error(err)
		return
	}
	if pkt == nil {
		cc.outputStr("(none)\n")
		return
	}
	defer pkt.Release()

	hdr, err := pkt.Head().LinkHdr()
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputf("src=%s\n", hex.EncodeToString(hdr.Src))
	for s := pkt.Head().Next(); s != nil; s = s.Next() {
		cc.outputf("%s\t%s\n", s.Proto(), hex.EncodeToString(s.Data()))
	}
}

func (rt *CmdRunner) executeStatus(cc *CommandContext) {
	pool := rt.registry.Pool()
	cc.outputItemsAsYaml(map[string]interface{}{
		"devices":       len(rt.registry.List()),
		"pool_used":     pool.Used(),
		"pool_capacity": pool.Capacity(),
		"loglevel":      logger.GetLevelString(logger.GetLevel()),
	})
}

func (rt *CmdRunner) executePeers(cc *CommandContext, cmd *PeersCmd) {
	dev := rt.registry.GetByName(cmd.Device)
	if dev == nil {
		cc.errorf("device %q not found", cmd.Device)
		return
	}
	all, enc := dev.Peers()
	cc.outputf("all=%d encrypted=%d\n", all, enc)
}

func (rt *CmdRunner) executePcap(cc *CommandContext, cmd *PcapCmd) {
	dev := rt.registry.GetByName(cmd.Device)
	if dev == nil {
		cc.errorf("device %q not found", cmd.Device)
		return
	}
	if cmd.Off != nil {
		dev.SetCapture(nil)
		return
	}

	f, err := pcap.NewFile(*cmd.File)
	if err != nil {
		cc.error(err)
		return
	}
	dev.SetCapture(f)
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == nil {
		cc.outputf("%s\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	lev, err := logger.ParseLevelString(*cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(lev)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) == 0 {
		cc.outputStr(rt.help.outputGeneralHelp())
	} else {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.ctx.Cancel(nil)
}
