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

type FlowStatsRequest struct {
	TableID    uint8
	OutPort    uint32
	OutGroup   uint32
	Cookie     uint64
	CookieMask uint64
	Match      openflow.Match
}

// NewFlowStatsRequest returns a request that matches all the flows of all
// the tables.
func NewFlowStatsRequest() *FlowStatsRequest {
	return &FlowStatsRequest{
		TableID:  OFPTT_ALL,
		OutPort:  OFPP_ANY,
		OutGroup: OFPG_ANY,
	}
}

func (r *FlowStatsRequest) MultipartType() uint16 { return OFPMP_FLOW }

// AggregateStatsRequest has the same layout as FlowStatsRequest.
type AggregateStatsRequest FlowStatsRequest

func (r *AggregateStatsRequest) MultipartType() uint16 { return OFPMP_AGGREGATE }

type flowRequestCodec struct {
	aggregate bool
	match     *MatchCodec
}

func (r *flowRequestCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	var v *FlowStatsRequest
	switch b := body.(type) {
	case *FlowStatsRequest:
		if r.aggregate {
			return openflow.ErrUnexpectedMessage
		}
		v = b
	case *AggregateStatsRequest:
		if !r.aggregate {
			return openflow.ErrUnexpectedMessage
		}
		v = (*FlowStatsRequest)(b)
	default:
		return openflow.ErrUnexpectedMessage
	}

	var b [32]byte
	b[0] = v.TableID
	// b[1:4] is padding
	binary.BigEndian.PutUint32(b[4:8], v.OutPort)
	binary.BigEndian.PutUint32(b[8:12], v.OutGroup)
	// b[12:16] is padding
	binary.BigEndian.PutUint64(b[16:24], v.Cookie)
	binary.BigEndian.PutUint64(b[24:32], v.CookieMask)
	w.Write(b[:])

	return r.match.Encode(&v.Match, w)
}

func (r *flowRequestCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) < 32 {
		return nil, openflow.ErrInvalidPacketLength
	}

	match, n, err := r.match.Decode(body[32:])
	if err != nil {
		return nil, err
	}
	if 32+n != len(body) {
		return nil, openflow.ErrInvalidPacketLength
	}

	v := &FlowStatsRequest{
		TableID:    body[0],
		OutPort:    binary.BigEndian.Uint32(body[4:8]),
		OutGroup:   binary.BigEndian.Uint32(body[8:12]),
		Cookie:     binary.BigEndian.Uint64(body[16:24]),
		CookieMask: binary.BigEndian.Uint64(body[24:32]),
		Match:      match,
	}
	if r.aggregate {
		return (*AggregateStatsRequest)(v), nil
	}

	return v, nil
}

type FlowStats struct {
	TableID      uint8
	DurationSec  uint32
	DurationNsec uint32
	Priority     uint16
	IdleTimeout  uint16
	HardTimeout  uint16
	Flags        uint16
	Cookie       uint64
	PacketCount  uint64
	ByteCount    uint64
	Match        openflow.Match
	Instructions []openflow.Instruction
}

type FlowStatsReply struct {
	Flows []FlowStats
}

func (r *FlowStatsReply) MultipartType() uint16 { return OFPMP_FLOW }

type flowStatsReplyCodec struct {
	registry *openflow.Registry
	match    *MatchCodec
}

func (r *flowStatsReplyCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	v, ok := body.(*FlowStatsReply)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	for _, f := range v.Flows {
		start := w.Len()

		var b [48]byte
		// b[0:2] is the length placeholder
		b[2] = f.TableID
		// b[3] is padding
		binary.BigEndian.PutUint32(b[4:8], f.DurationSec)
		binary.BigEndian.PutUint32(b[8:12], f.DurationNsec)
		binary.BigEndian.PutUint16(b[12:14], f.Priority)
		binary.BigEndian.PutUint16(b[14:16], f.IdleTimeout)
		binary.BigEndian.PutUint16(b[16:18], f.HardTimeout)
		binary.BigEndian.PutUint16(b[18:20], f.Flags)
		// b[20:24] is padding
		binary.BigEndian.PutUint64(b[24:32], f.Cookie)
		binary.BigEndian.PutUint64(b[32:40], f.PacketCount)
		binary.BigEndian.PutUint64(b[40:48], f.ByteCount)
		w.Write(b[:])

		if err := r.match.Encode(&f.Match, w); err != nil {
			return err
		}
		if err := encodeInstructions(r.registry, f.Instructions, w); err != nil {
			return err
		}

		length := w.Len() - start
		if length > 0xFFFF {
			return openflow.ErrInvalidPacketLength
		}
		binary.BigEndian.PutUint16(w.Bytes()[start:start+2], uint16(length))
	}

	return nil
}

func (r *flowStatsReplyCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	v := new(FlowStatsReply)

	for len(body) > 0 {
		if len(body) < 48 {
			return nil, openflow.ErrInvalidPacketLength
		}
		length := int(binary.BigEndian.Uint16(body[0:2]))
		if length < 48 || len(body) < length {
			return nil, openflow.ErrInvalidPacketLength
		}
		entry := body[:length]
		body = body[length:]

		f := FlowStats{
			TableID:      entry[2],
			DurationSec:  binary.BigEndian.Uint32(entry[4:8]),
			DurationNsec: binary.BigEndian.Uint32(entry[8:12]),
			Priority:     binary.BigEndian.Uint16(entry[12:14]),
			IdleTimeout:  binary.BigEndian.Uint16(entry[14:16]),
			HardTimeout:  binary.BigEndian.Uint16(entry[16:18]),
			Flags:        binary.BigEndian.Uint16(entry[18:20]),
			Cookie:       binary.BigEndian.Uint64(entry[24:32]),
			PacketCount:  binary.BigEndian.Uint64(entry[32:40]),
			ByteCount:    binary.BigEndian.Uint64(entry[40:48]),
		}
		match, n, err := r.match.Decode(entry[48:])
		if err != nil {
			return nil, err
		}
		f.Match = match
		f.Instructions, err = decodeInstructions(r.registry, entry[48+n:])
		if err != nil {
			return nil, err
		}
		v.Flows = append(v.Flows, f)
	}

	return v, nil
}

type AggregateStatsReply struct {
	PacketCount uint64
	ByteCount   uint64
	FlowCount   uint32
}

func (r *AggregateStatsReply) MultipartType() uint16 { return OFPMP_AGGREGATE }

type aggregateStatsReplyCodec struct{}

func (aggregateStatsReplyCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	v, ok := body.(*AggregateStatsReply)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	var b [24]byte
	binary.BigEndian.PutUint64(b[0:8], v.PacketCount)
	binary.BigEndian.PutUint64(b[8:16], v.ByteCount)
	binary.BigEndian.PutUint32(b[16:20], v.FlowCount)
	// b[20:24] is padding
	w.Write(b[:])

	return nil
}

func (aggregateStatsReplyCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) != 24 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return &AggregateStatsReply{
		PacketCount: binary.BigEndian.Uint64(body[0:8]),
		ByteCount:   binary.BigEndian.Uint64(body[8:16]),
		FlowCount:   binary.BigEndian.Uint32(body[16:20]),
	}, nil
}
