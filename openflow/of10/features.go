/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package of10

import (
	"bytes"
	"encoding/binary"
	"net"
	"strings"

	"github.com/superkkt/ofdriver/openflow"
)

func NewHello(xid uint32) *openflow.Hello {
	return &openflow.Hello{Header: openflow.NewHeader(Version, OFPT_HELLO, xid)}
}

func NewEchoRequest(xid uint32, data []byte) *openflow.EchoRequest {
	return &openflow.EchoRequest{Header: openflow.NewHeader(Version, OFPT_ECHO_REQUEST, xid), Data: data}
}

func NewEchoReply(xid uint32, data []byte) *openflow.EchoReply {
	return &openflow.EchoReply{Header: openflow.NewHeader(Version, OFPT_ECHO_REPLY, xid), Data: data}
}

func NewFeaturesRequest(xid uint32) *openflow.Empty {
	return &openflow.Empty{Header: openflow.NewHeader(Version, OFPT_FEATURES_REQUEST, xid)}
}

func NewBarrierRequest(xid uint32) *openflow.Empty {
	return &openflow.Empty{Header: openflow.NewHeader(Version, OFPT_BARRIER_REQUEST, xid)}
}

type Port struct {
	PortNo     uint16
	HWAddr     net.HardwareAddr
	Name       string
	Config     uint32
	State      uint32
	Curr       uint32
	Advertised uint32
	Supported  uint32
	Peer       uint32
}

type FeaturesReply struct {
	openflow.Header
	DPID         uint64
	NumBuffers   uint32
	NumTables    uint8
	Capabilities uint32
	Actions      uint32
	Ports        []Port
}

type featuresReplyCodec struct{}

func (featuresReplyCodec) Serialize(msg openflow.Message, w *bytes.Buffer) error {
	v, ok := msg.(*FeaturesReply)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	return openflow.Frame(w, v, func() error {
		var b [24]byte
		binary.BigEndian.PutUint64(b[0:8], v.DPID)
		binary.BigEndian.PutUint32(b[8:12], v.NumBuffers)
		b[12] = v.NumTables
		// b[13:16] is padding
		binary.BigEndian.PutUint32(b[16:20], v.Capabilities)
		binary.BigEndian.PutUint32(b[20:24], v.Actions)
		w.Write(b[:])

		for _, p := range v.Ports {
			var port [48]byte
			binary.BigEndian.PutUint16(port[0:2], p.PortNo)
			copy(port[2:8], p.HWAddr)
			// NULL terminated
			copy(port[8:23], p.Name)
			for i, c := range []uint32{p.Config, p.State, p.Curr, p.Advertised, p.Supported, p.Peer} {
				binary.BigEndian.PutUint32(port[24+i*4:28+i*4], c)
			}
			w.Write(port[:])
		}

		return nil
	})
}

func (featuresReplyCodec) Deserialize(h openflow.Header, body []byte) (openflow.Message, error) {
	if len(body) < 24 || (len(body)-24)%48 != 0 {
		return nil, openflow.ErrInvalidPacketLength
	}

	v := &FeaturesReply{
		Header:       h,
		DPID:         binary.BigEndian.Uint64(body[0:8]),
		NumBuffers:   binary.BigEndian.Uint32(body[8:12]),
		NumTables:    body[12],
		Capabilities: binary.BigEndian.Uint32(body[16:20]),
		Actions:      binary.BigEndian.Uint32(body[20:24]),
	}
	for buf := body[24:]; len(buf) > 0; buf = buf[48:] {
		c := func(i int) uint32 { return binary.BigEndian.Uint32(buf[24+i*4 : 28+i*4]) }
		v.Ports = append(v.Ports, Port{
			PortNo:     binary.BigEndian.Uint16(buf[0:2]),
			HWAddr:     net.HardwareAddr(append([]byte(nil), buf[2:8]...)),
			Name:       strings.TrimRight(string(buf[8:24]), "\x00"),
			Config:     c(0),
			State:      c(1),
			Curr:       c(2),
			Advertised: c(3),
			Supported:  c(4),
			Peer:       c(5),
		})
	}

	return v, nil
}

type messageCodec interface {
	openflow.MessageSerializer
	openflow.MessageDeserializer
}

// Inject registers the OpenFlow 1.0 message codecs. Only the messages needed
// to negotiate the version and identify the switch are supported.
func Inject(reg *openflow.Registry) {
	codecs := map[uint8]messageCodec{
		OFPT_HELLO:            openflow.HelloCodec{},
		OFPT_ERROR:            openflow.ErrorCodec{},
		OFPT_ECHO_REQUEST:     openflow.EchoRequestCodec{},
		OFPT_ECHO_REPLY:       openflow.EchoReplyCodec{},
		OFPT_FEATURES_REQUEST: openflow.EmptyCodec{},
		OFPT_FEATURES_REPLY:   featuresReplyCodec{},
		OFPT_BARRIER_REQUEST:  openflow.EmptyCodec{},
		OFPT_BARRIER_REPLY:    openflow.EmptyCodec{},
	}
	for typ, codec := range codecs {
		key := openflow.MessageKey(Version, typ)
		reg.Serializers.Messages.Register(key, codec)
		reg.Deserializers.Messages.Register(key, codec)
	}
}
