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

package cli

import (
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Pcap     *PcapCmd     `| @@` //nolint
	Peers    *PeersCmd    `| @@` //nolint
	Recv     *RecvCmd     `| @@` //nolint
	Send     *SendCmd     `| @@` //nolint
	Status   *StatusCmd   `| @@` //nolint
}

// noinspection GoStructTag
type HwAddrFlag struct {
	Addr string `"addr" @String` //nolint
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd  struct{}    `"add"`  //nolint
	Name string      `@Ident` //nolint
	Addr *HwAddrFlag `[ @@ ]` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{} `"del"`       //nolint
	Names []string `( @Ident )+` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type BcastFlag struct {
	Dummy struct{} `"bcast"` //nolint
}

// noinspection GoStructTag
type DstSelector struct {
	Bcast *BcastFlag `( @@`        //nolint
	Addr  *string    `| @String )` //nolint
}

// noinspection GoStructTag
type ProtoFlag struct {
	Val string `"proto" @String` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd     struct{}    `"send"`  //nolint
	Device  string      `@Ident`  //nolint
	Dst     DstSelector `@@`      //nolint
	Payload string      `@String` //nolint
	Proto   *ProtoFlag  `[ @@ ]`  //nolint
}

// noinspection GoStructTag
type RecvCmd struct {
	Cmd    struct{} `"recv"` //nolint
	Device string   `@Ident` //nolint
}

// noinspection GoStructTag
type StatusCmd struct {
	Cmd struct{} `"status"` //nolint
}

// noinspection GoStructTag
type PeersCmd struct {
	Cmd    struct{} `"peers"` //nolint
	Device string   `@Ident`  //nolint
}

// noinspection GoStructTag
type OffFlag struct {
	Dummy struct{} `"off"` //nolint
}

// noinspection GoStructTag
type PcapCmd struct {
	Cmd    struct{} `"pcap"`      //nolint
	Device string   `@Ident`      //nolint
	Off    *OffFlag `( @@`        //nolint
	File   *string  `| @String )` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"loglevel"` //nolint
	Level *string  `[ @Ident ]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
