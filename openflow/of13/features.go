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

package of13

import (
	"bytes"
	"encoding/binary"

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

type FeaturesReply struct {
	openflow.Header
	DPID         uint64
	NumBuffers   uint32
	NumTables    uint8
	AuxID        uint8
	Capabilities uint32
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
		b[13] = v.AuxID
		// b[14:16] is padding
		binary.BigEndian.PutUint32(b[16:20], v.Capabilities)
		// b[20:24] is reserved
		w.Write(b[:])
		return nil
	})
}

func (featuresReplyCodec) Deserialize(h openflow.Header, body []byte) (openflow.Message, error) {
	if len(body) < 24 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return &FeaturesReply{
		Header:       h,
		DPID:         binary.BigEndian.Uint64(body[0:8]),
		NumBuffers:   binary.BigEndian.Uint32(body[8:12]),
		NumTables:    body[12],
		AuxID:        body[13],
		Capabilities: binary.BigEndian.Uint32(body[16:20]),
	}, nil
}
