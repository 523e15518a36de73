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

package openflow

import (
	"bytes"
	"encoding/binary"
	"net"
)

const (
	OFPXMC_NXM_0          = 0x0000
	OFPXMC_NXM_1          = 0x0001
	OFPXMC_OPENFLOW_BASIC = 0x8000
	OFPXMC_EXPERIMENTER   = 0xFFFF
)

// Ptr returns a pointer to a copy of v. It is handy to fill optional fields.
func Ptr[T any](v T) *T {
	return &v
}

type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Masked is an integer match value with an optional bit mask.
type Masked[T Unsigned] struct {
	Value   T
	Mask    T
	HasMask bool
}

// MaskedIP is an IPv4 or IPv6 address with an optional mask. A nil Mask
// means an exact match.
type MaskedIP struct {
	IP   net.IP
	Mask net.IPMask
}

// MaskedMAC is a hardware address with an optional mask. A nil Mask means
// an exact match.
type MaskedMAC struct {
	Addr net.HardwareAddr
	Mask net.HardwareAddr
}

// VLANMatch is the VLAN_VID match. Present without ID matches any tagged
// packet, and a zero value matches untagged packets only.
type VLANMatch struct {
	ID      uint16
	Present bool
}

// Match is a structured ofp_match. A nil field is wildcarded.
type Match struct {
	InPort       *uint32
	InPhyPort    *uint32
	Metadata     *Masked[uint64]
	EthDst       *MaskedMAC
	EthSrc       *MaskedMAC
	EthType      *uint16
	VLAN         *VLANMatch
	VLANPCP      *uint8
	IPDSCP       *uint8
	IPECN        *uint8
	IPProto      *uint8
	IPv4Src      *MaskedIP
	IPv4Dst      *MaskedIP
	TCPSrc       *uint16
	TCPDst       *uint16
	UDPSrc       *uint16
	UDPDst       *uint16
	SCTPSrc      *uint16
	SCTPDst      *uint16
	ICMPv4Type   *uint8
	ICMPv4Code   *uint8
	ARPOp        *uint16
	ARPSPA       *MaskedIP
	ARPTPA       *MaskedIP
	ARPSHA       *MaskedMAC
	ARPTHA       *MaskedMAC
	IPv6Src      *MaskedIP
	IPv6Dst      *MaskedIP
	IPv6FLabel   *Masked[uint32]
	ICMPv6Type   *uint8
	ICMPv6Code   *uint8
	IPv6NDTarget *MaskedIP
	IPv6NDSLL    *MaskedMAC
	IPv6NDTLL    *MaskedMAC
	MPLSLabel    *uint32
	MPLSTC       *uint8
	MPLSBOS      *uint8
	PBBISID      *Masked[uint32]
	TunnelID     *Masked[uint64]
	IPv6ExtHdr   *Masked[uint16]
	TCPFlags     *Masked[uint16]

	// Unsupported holds the entries that no registered deserializer
	// recognized. They are written back as is when the match is encoded.
	Unsupported []OXMField
}

// OXMField is a raw OXM TLV entry.
type OXMField struct {
	Class   uint16
	Field   uint8
	HasMask bool
	// Experimenter is only valid when Class is OFPXMC_EXPERIMENTER.
	Experimenter uint32
	Value        []byte
	Mask         []byte
}

// Key returns the match entry key that dispatches this entry.
func (r OXMField) Key(version uint8) Key {
	if r.Class == OFPXMC_EXPERIMENTER {
		return ExperimenterMatchEntryKey(version, r.Class, r.Field, r.Experimenter)
	}

	return MatchEntryKey(version, r.Class, r.Field)
}

// WriteTo appends the TLV encoding of this entry into w. The length field
// is one byte, so a longer payload is ErrInvalidMatchEntry.
func (r OXMField) WriteTo(w *bytes.Buffer) error {
	length := len(r.Value)
	if r.HasMask {
		length += len(r.Mask)
	}
	if r.Class == OFPXMC_EXPERIMENTER {
		length += 4
	}
	if length > 0xFF {
		return ErrInvalidMatchEntry
	}

	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], r.Class)
	hdr[2] = r.Field << 1
	if r.HasMask {
		hdr[2] |= 0x01
	}
	hdr[3] = uint8(length)
	w.Write(hdr[:])
	if r.Class == OFPXMC_EXPERIMENTER {
		var exp [4]byte
		binary.BigEndian.PutUint32(exp[:], r.Experimenter)
		w.Write(exp[:])
	}
	w.Write(r.Value)
	if r.HasMask {
		w.Write(r.Mask)
	}

	return nil
}

// ReadOXMField decodes the TLV entry at the beginning of data and returns
// the number of bytes it occupies.
func ReadOXMField(data []byte) (field OXMField, n int, err error) {
	if len(data) < 4 {
		return OXMField{}, 0, ErrInvalidPacketLength
	}

	field.Class = binary.BigEndian.Uint16(data[0:2])
	field.Field = data[2] >> 1
	field.HasMask = data[2]&0x01 == 1
	length := int(data[3])
	if len(data) < 4+length {
		return OXMField{}, 0, ErrInvalidPacketLength
	}
	payload := data[4 : 4+length]

	if field.Class == OFPXMC_EXPERIMENTER {
		if len(payload) < 4 {
			return OXMField{}, 0, ErrInvalidMatchEntry
		}
		field.Experimenter = binary.BigEndian.Uint32(payload[0:4])
		payload = payload[4:]
	}

	if field.HasMask {
		if len(payload)%2 != 0 {
			return OXMField{}, 0, ErrInvalidMatchEntry
		}
		half := len(payload) / 2
		field.Value = append([]byte(nil), payload[:half]...)
		field.Mask = append([]byte(nil), payload[half:]...)
	} else {
		field.Value = append([]byte(nil), payload...)
	}

	return field, 4 + length, nil
}
