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
	"net"
	"strings"

	"github.com/superkkt/ofdriver/openflow"
)

func putString(b []byte, s string) {
	// Keep the last byte as the NULL terminator.
	copy(b[:len(b)-1], s)
}

func getString(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

type DescReply struct {
	Manufacturer string
	Hardware     string
	Software     string
	SerialNum    string
	Description  string
}

func (r *DescReply) MultipartType() uint16 { return OFPMP_DESC }

type descReplyCodec struct{}

func (descReplyCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	v, ok := body.(*DescReply)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	b := make([]byte, 1056)
	putString(b[0:256], v.Manufacturer)
	putString(b[256:512], v.Hardware)
	putString(b[512:768], v.Software)
	putString(b[768:800], v.SerialNum)
	putString(b[800:1056], v.Description)
	w.Write(b)

	return nil
}

func (descReplyCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) != 1056 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return &DescReply{
		Manufacturer: getString(body[0:256]),
		Hardware:     getString(body[256:512]),
		Software:     getString(body[512:768]),
		SerialNum:    getString(body[768:800]),
		Description:  getString(body[800:1056]),
	}, nil
}

// fixedEntries encodes and decodes the reply bodies that are arrays of
// fixed-length entries.
type fixedEntries[T any] struct {
	size int
	put  func(b []byte, v T)
	get  func(b []byte) T
	list func(openflow.MultipartBody) ([]T, bool)
	wrap func([]T) openflow.MultipartBody
}

func (r fixedEntries[T]) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	entries, ok := r.list(body)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	for _, v := range entries {
		b := make([]byte, r.size)
		r.put(b, v)
		w.Write(b)
	}

	return nil
}

func (r fixedEntries[T]) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body)%r.size != 0 {
		return nil, openflow.ErrInvalidPacketLength
	}

	var entries []T
	for ; len(body) > 0; body = body[r.size:] {
		entries = append(entries, r.get(body[:r.size]))
	}

	return r.wrap(entries), nil
}

type TableStats struct {
	TableID      uint8
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

type TableStatsReply struct {
	Tables []TableStats
}

func (r *TableStatsReply) MultipartType() uint16 { return OFPMP_TABLE }

func tableStatsReplyCodec() fixedEntries[TableStats] {
	return fixedEntries[TableStats]{
		size: 24,
		put: func(b []byte, v TableStats) {
			b[0] = v.TableID
			// b[1:4] is padding
			binary.BigEndian.PutUint32(b[4:8], v.ActiveCount)
			binary.BigEndian.PutUint64(b[8:16], v.LookupCount)
			binary.BigEndian.PutUint64(b[16:24], v.MatchedCount)
		},
		get: func(b []byte) TableStats {
			return TableStats{
				TableID:      b[0],
				ActiveCount:  binary.BigEndian.Uint32(b[4:8]),
				LookupCount:  binary.BigEndian.Uint64(b[8:16]),
				MatchedCount: binary.BigEndian.Uint64(b[16:24]),
			}
		},
		list: func(body openflow.MultipartBody) ([]TableStats, bool) {
			v, ok := body.(*TableStatsReply)
			if !ok {
				return nil, false
			}
			return v.Tables, true
		},
		wrap: func(v []TableStats) openflow.MultipartBody { return &TableStatsReply{Tables: v} },
	}
}

type PortStats struct {
	PortNo       uint32
	RxPackets    uint64
	TxPackets    uint64
	RxBytes      uint64
	TxBytes      uint64
	RxDropped    uint64
	TxDropped    uint64
	RxErrors     uint64
	TxErrors     uint64
	RxFrameErr   uint64
	RxOverErr    uint64
	RxCRCErr     uint64
	Collisions   uint64
	DurationSec  uint32
	DurationNsec uint32
}

type PortStatsReply struct {
	Ports []PortStats
}

func (r *PortStatsReply) MultipartType() uint16 { return OFPMP_PORT_STATS }

func portStatsReplyCodec() fixedEntries[PortStats] {
	return fixedEntries[PortStats]{
		size: 112,
		put: func(b []byte, v PortStats) {
			binary.BigEndian.PutUint32(b[0:4], v.PortNo)
			// b[4:8] is padding
			counters := []uint64{
				v.RxPackets, v.TxPackets, v.RxBytes, v.TxBytes, v.RxDropped, v.TxDropped,
				v.RxErrors, v.TxErrors, v.RxFrameErr, v.RxOverErr, v.RxCRCErr, v.Collisions,
			}
			for i, c := range counters {
				binary.BigEndian.PutUint64(b[8+i*8:16+i*8], c)
			}
			binary.BigEndian.PutUint32(b[104:108], v.DurationSec)
			binary.BigEndian.PutUint32(b[108:112], v.DurationNsec)
		},
		get: func(b []byte) PortStats {
			c := func(i int) uint64 { return binary.BigEndian.Uint64(b[8+i*8 : 16+i*8]) }
			return PortStats{
				PortNo:       binary.BigEndian.Uint32(b[0:4]),
				RxPackets:    c(0),
				TxPackets:    c(1),
				RxBytes:      c(2),
				TxBytes:      c(3),
				RxDropped:    c(4),
				TxDropped:    c(5),
				RxErrors:     c(6),
				TxErrors:     c(7),
				RxFrameErr:   c(8),
				RxOverErr:    c(9),
				RxCRCErr:     c(10),
				Collisions:   c(11),
				DurationSec:  binary.BigEndian.Uint32(b[104:108]),
				DurationNsec: binary.BigEndian.Uint32(b[108:112]),
			}
		},
		list: func(body openflow.MultipartBody) ([]PortStats, bool) {
			v, ok := body.(*PortStatsReply)
			if !ok {
				return nil, false
			}
			return v.Ports, true
		},
		wrap: func(v []PortStats) openflow.MultipartBody { return &PortStatsReply{Ports: v} },
	}
}

type QueueStats struct {
	PortNo       uint32
	QueueID      uint32
	TxBytes      uint64
	TxPackets    uint64
	TxErrors     uint64
	DurationSec  uint32
	DurationNsec uint32
}

type QueueStatsReply struct {
	Queues []QueueStats
}

func (r *QueueStatsReply) MultipartType() uint16 { return OFPMP_QUEUE }

func queueStatsReplyCodec() fixedEntries[QueueStats] {
	return fixedEntries[QueueStats]{
		size: 40,
		put: func(b []byte, v QueueStats) {
			binary.BigEndian.PutUint32(b[0:4], v.PortNo)
			binary.BigEndian.PutUint32(b[4:8], v.QueueID)
			binary.BigEndian.PutUint64(b[8:16], v.TxBytes)
			binary.BigEndian.PutUint64(b[16:24], v.TxPackets)
			binary.BigEndian.PutUint64(b[24:32], v.TxErrors)
			binary.BigEndian.PutUint32(b[32:36], v.DurationSec)
			binary.BigEndian.PutUint32(b[36:40], v.DurationNsec)
		},
		get: func(b []byte) QueueStats {
			return QueueStats{
				PortNo:       binary.BigEndian.Uint32(b[0:4]),
				QueueID:      binary.BigEndian.Uint32(b[4:8]),
				TxBytes:      binary.BigEndian.Uint64(b[8:16]),
				TxPackets:    binary.BigEndian.Uint64(b[16:24]),
				TxErrors:     binary.BigEndian.Uint64(b[24:32]),
				DurationSec:  binary.BigEndian.Uint32(b[32:36]),
				DurationNsec: binary.BigEndian.Uint32(b[36:40]),
			}
		},
		list: func(body openflow.MultipartBody) ([]QueueStats, bool) {
			v, ok := body.(*QueueStatsReply)
			if !ok {
				return nil, false
			}
			return v.Queues, true
		},
		wrap: func(v []QueueStats) openflow.MultipartBody { return &QueueStatsReply{Queues: v} },
	}
}

type Port struct {
	PortNo     uint32
	HWAddr     net.HardwareAddr
	Name       string
	Config     uint32
	State      uint32
	Curr       uint32
	Advertised uint32
	Supported  uint32
	Peer       uint32
	CurrSpeed  uint32
	MaxSpeed   uint32
}

type PortDescReply struct {
	Ports []Port
}

func (r *PortDescReply) MultipartType() uint16 { return OFPMP_PORT_DESC }

func portDescReplyCodec() fixedEntries[Port] {
	return fixedEntries[Port]{
		size: 64,
		put: func(b []byte, v Port) {
			binary.BigEndian.PutUint32(b[0:4], v.PortNo)
			// b[4:8] is padding
			copy(b[8:14], v.HWAddr)
			// b[14:16] is padding
			putString(b[16:32], v.Name)
			for i, c := range []uint32{v.Config, v.State, v.Curr, v.Advertised, v.Supported, v.Peer, v.CurrSpeed, v.MaxSpeed} {
				binary.BigEndian.PutUint32(b[32+i*4:36+i*4], c)
			}
		},
		get: func(b []byte) Port {
			c := func(i int) uint32 { return binary.BigEndian.Uint32(b[32+i*4 : 36+i*4]) }
			return Port{
				PortNo:     binary.BigEndian.Uint32(b[0:4]),
				HWAddr:     net.HardwareAddr(append([]byte(nil), b[8:14]...)),
				Name:       getString(b[16:32]),
				Config:     c(0),
				State:      c(1),
				Curr:       c(2),
				Advertised: c(3),
				Supported:  c(4),
				Peer:       c(5),
				CurrSpeed:  c(6),
				MaxSpeed:   c(7),
			}
		},
		list: func(body openflow.MultipartBody) ([]Port, bool) {
			v, ok := body.(*PortDescReply)
			if !ok {
				return nil, false
			}
			return v.Ports, true
		},
		wrap: func(v []Port) openflow.MultipartBody { return &PortDescReply{Ports: v} },
	}
}

type BucketCounter struct {
	PacketCount uint64
	ByteCount   uint64
}

type GroupStats struct {
	GroupID      uint32
	RefCount     uint32
	PacketCount  uint64
	ByteCount    uint64
	DurationSec  uint32
	DurationNsec uint32
	Buckets      []BucketCounter
}

type GroupStatsReply struct {
	Groups []GroupStats
}

func (r *GroupStatsReply) MultipartType() uint16 { return OFPMP_GROUP }

type groupStatsReplyCodec struct{}

func (groupStatsReplyCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	v, ok := body.(*GroupStatsReply)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	for _, g := range v.Groups {
		b := make([]byte, 40+16*len(g.Buckets))
		binary.BigEndian.PutUint16(b[0:2], uint16(len(b)))
		// b[2:4] is padding
		binary.BigEndian.PutUint32(b[4:8], g.GroupID)
		binary.BigEndian.PutUint32(b[8:12], g.RefCount)
		// b[12:16] is padding
		binary.BigEndian.PutUint64(b[16:24], g.PacketCount)
		binary.BigEndian.PutUint64(b[24:32], g.ByteCount)
		binary.BigEndian.PutUint32(b[32:36], g.DurationSec)
		binary.BigEndian.PutUint32(b[36:40], g.DurationNsec)
		for i, c := range g.Buckets {
			binary.BigEndian.PutUint64(b[40+i*16:48+i*16], c.PacketCount)
			binary.BigEndian.PutUint64(b[48+i*16:56+i*16], c.ByteCount)
		}
		w.Write(b)
	}

	return nil
}

func (groupStatsReplyCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	v := new(GroupStatsReply)

	for len(body) > 0 {
		if len(body) < 40 {
			return nil, openflow.ErrInvalidPacketLength
		}
		length := int(binary.BigEndian.Uint16(body[0:2]))
		if length < 40 || len(body) < length || (length-40)%16 != 0 {
			return nil, openflow.ErrInvalidPacketLength
		}
		b := body[:length]
		body = body[length:]

		g := GroupStats{
			GroupID:      binary.BigEndian.Uint32(b[4:8]),
			RefCount:     binary.BigEndian.Uint32(b[8:12]),
			PacketCount:  binary.BigEndian.Uint64(b[16:24]),
			ByteCount:    binary.BigEndian.Uint64(b[24:32]),
			DurationSec:  binary.BigEndian.Uint32(b[32:36]),
			DurationNsec: binary.BigEndian.Uint32(b[36:40]),
		}
		for c := b[40:]; len(c) > 0; c = c[16:] {
			g.Buckets = append(g.Buckets, BucketCounter{
				PacketCount: binary.BigEndian.Uint64(c[0:8]),
				ByteCount:   binary.BigEndian.Uint64(c[8:16]),
			})
		}
		v.Groups = append(v.Groups, g)
	}

	return v, nil
}
