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

type FlowMod struct {
	openflow.Header
	Cookie       uint64
	CookieMask   uint64
	TableID      uint8
	Command      uint8
	IdleTimeout  uint16
	HardTimeout  uint16
	Priority     uint16
	BufferID     uint32
	OutPort      uint32
	OutGroup     uint32
	Flags        uint16
	Match        openflow.Match
	Instructions []openflow.Instruction
}

// NewFlowMod returns an OFPFC_ADD flow mod with the default values of the
// optional fields.
func NewFlowMod(xid uint32) *FlowMod {
	return &FlowMod{
		Header:   openflow.NewHeader(Version, OFPT_FLOW_MOD, xid),
		Command:  OFPFC_ADD,
		Priority: OFP_DEFAULT_PRIORITY,
		BufferID: OFP_NO_BUFFER,
		OutPort:  OFPP_ANY,
		OutGroup: OFPG_ANY,
		Flags:    OFPFF_SEND_FLOW_REM,
	}
}

type flowModCodec struct {
	registry *openflow.Registry
	match    *MatchCodec
}

func newFlowModCodec(reg *openflow.Registry) *flowModCodec {
	return &flowModCodec{registry: reg, match: NewMatchCodec(reg)}
}

func (r *flowModCodec) Serialize(msg openflow.Message, w *bytes.Buffer) error {
	v, ok := msg.(*FlowMod)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	return openflow.Frame(w, v, func() error { return r.writeBody(v, w) })
}

func (r *flowModCodec) writeBody(v *FlowMod, w *bytes.Buffer) error {
	var b [40]byte
	binary.BigEndian.PutUint64(b[0:8], v.Cookie)
	binary.BigEndian.PutUint64(b[8:16], v.CookieMask)
	b[16] = v.TableID
	b[17] = v.Command
	binary.BigEndian.PutUint16(b[18:20], v.IdleTimeout)
	binary.BigEndian.PutUint16(b[20:22], v.HardTimeout)
	binary.BigEndian.PutUint16(b[22:24], v.Priority)
	binary.BigEndian.PutUint32(b[24:28], v.BufferID)
	binary.BigEndian.PutUint32(b[28:32], v.OutPort)
	binary.BigEndian.PutUint32(b[32:36], v.OutGroup)
	binary.BigEndian.PutUint16(b[36:38], v.Flags)
	// b[38:40] is padding
	w.Write(b[:])

	if err := r.match.Encode(&v.Match, w); err != nil {
		return err
	}

	return encodeInstructions(r.registry, v.Instructions, w)
}

func (r *flowModCodec) Deserialize(h openflow.Header, body []byte) (openflow.Message, error) {
	if len(body) < 40 {
		return nil, openflow.ErrInvalidPacketLength
	}

	v := &FlowMod{
		Header:      h,
		Cookie:      binary.BigEndian.Uint64(body[0:8]),
		CookieMask:  binary.BigEndian.Uint64(body[8:16]),
		TableID:     body[16],
		Command:     body[17],
		IdleTimeout: binary.BigEndian.Uint16(body[18:20]),
		HardTimeout: binary.BigEndian.Uint16(body[20:22]),
		Priority:    binary.BigEndian.Uint16(body[22:24]),
		BufferID:    binary.BigEndian.Uint32(body[24:28]),
		OutPort:     binary.BigEndian.Uint32(body[28:32]),
		OutGroup:    binary.BigEndian.Uint32(body[32:36]),
		Flags:       binary.BigEndian.Uint16(body[36:38]),
	}
	match, n, err := r.match.Decode(body[40:])
	if err != nil {
		return nil, err
	}
	v.Match = match
	v.Instructions, err = decodeInstructions(r.registry, body[40+n:])
	if err != nil {
		return nil, err
	}

	return v, nil
}

type FlowRemoved struct {
	openflow.Header
	Cookie       uint64
	Priority     uint16
	Reason       uint8
	TableID      uint8
	DurationSec  uint32
	DurationNsec uint32
	IdleTimeout  uint16
	HardTimeout  uint16
	PacketCount  uint64
	ByteCount    uint64
	Match        openflow.Match
}

type flowRemovedCodec struct {
	match *MatchCodec
}

func (r *flowRemovedCodec) Serialize(msg openflow.Message, w *bytes.Buffer) error {
	v, ok := msg.(*FlowRemoved)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	return openflow.Frame(w, v, func() error {
		var b [40]byte
		binary.BigEndian.PutUint64(b[0:8], v.Cookie)
		binary.BigEndian.PutUint16(b[8:10], v.Priority)
		b[10] = v.Reason
		b[11] = v.TableID
		binary.BigEndian.PutUint32(b[12:16], v.DurationSec)
		binary.BigEndian.PutUint32(b[16:20], v.DurationNsec)
		binary.BigEndian.PutUint16(b[20:22], v.IdleTimeout)
		binary.BigEndian.PutUint16(b[22:24], v.HardTimeout)
		binary.BigEndian.PutUint64(b[24:32], v.PacketCount)
		binary.BigEndian.PutUint64(b[32:40], v.ByteCount)
		w.Write(b[:])
		return r.match.Encode(&v.Match, w)
	})
}

func (r *flowRemovedCodec) Deserialize(h openflow.Header, body []byte) (openflow.Message, error) {
	if len(body) < 40 {
		return nil, openflow.ErrInvalidPacketLength
	}

	match, _, err := r.match.Decode(body[40:])
	if err != nil {
		return nil, err
	}

	return &FlowRemoved{
		Header:       h,
		Cookie:       binary.BigEndian.Uint64(body[0:8]),
		Priority:     binary.BigEndian.Uint16(body[8:10]),
		Reason:       body[10],
		TableID:      body[11],
		DurationSec:  binary.BigEndian.Uint32(body[12:16]),
		DurationNsec: binary.BigEndian.Uint32(body[16:20]),
		IdleTimeout:  binary.BigEndian.Uint16(body[20:22]),
		HardTimeout:  binary.BigEndian.Uint16(body[22:24]),
		PacketCount:  binary.BigEndian.Uint64(body[24:32]),
		ByteCount:    binary.BigEndian.Uint64(body[32:40]),
		Match:        match,
	}, nil
}
