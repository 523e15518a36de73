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
	"net"

	"github.com/superkkt/ofdriver/openflow"
)

// fieldCodec is the serializer and deserializer of a single OXM field. The
// closures bind it to the corresponding field of openflow.Match.
type fieldCodec struct {
	class        uint16
	field        uint8
	experimenter uint32
	width        int
	maskable     bool

	present func(m *openflow.Match) bool
	// mask is nil for an exact match.
	value func(m *openflow.Match) (value, mask []byte)
	set   func(m *openflow.Match, value, mask []byte)
}

func (r *fieldCodec) key() openflow.Key {
	if r.class == openflow.OFPXMC_EXPERIMENTER {
		return openflow.ExperimenterMatchEntryKey(Version, r.class, r.field, r.experimenter)
	}

	return openflow.MatchEntryKey(Version, r.class, r.field)
}

func (r *fieldCodec) Present(m *openflow.Match) bool {
	return r.present(m)
}

func (r *fieldCodec) Serialize(m *openflow.Match, w *bytes.Buffer) error {
	value, mask := r.value(m)
	if len(value) != r.width {
		return openflow.ErrInvalidMatchEntry
	}
	if mask != nil && (!r.maskable || len(mask) != r.width) {
		return openflow.ErrInvalidMatchEntry
	}

	return openflow.OXMField{
		Class:        r.class,
		Field:        r.field,
		HasMask:      mask != nil,
		Experimenter: r.experimenter,
		Value:        value,
		Mask:         mask,
	}.WriteTo(w)
}

func (r *fieldCodec) Deserialize(entry openflow.OXMField, m *openflow.Match) error {
	if len(entry.Value) != r.width {
		return openflow.ErrInvalidMatchEntry
	}
	if !entry.HasMask {
		r.set(m, entry.Value, nil)
		return nil
	}
	if !r.maskable || len(entry.Mask) != r.width {
		return openflow.ErrInvalidMatchEntry
	}
	r.set(m, entry.Value, entry.Mask)

	return nil
}

func putUint(v uint64, width int) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}

	return b
}

func getUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}

	return v
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append([]byte(nil), b...)
}

func exactField[T openflow.Unsigned](field uint8, width int, ref func(*openflow.Match) **T) *fieldCodec {
	return &fieldCodec{
		class: openflow.OFPXMC_OPENFLOW_BASIC,
		field: field,
		width: width,
		present: func(m *openflow.Match) bool {
			return *ref(m) != nil
		},
		value: func(m *openflow.Match) ([]byte, []byte) {
			return putUint(uint64(**ref(m)), width), nil
		},
		set: func(m *openflow.Match, value, _ []byte) {
			v := T(getUint(value))
			*ref(m) = &v
		},
	}
}

func maskedField[T openflow.Unsigned](field uint8, width int, ref func(*openflow.Match) **openflow.Masked[T]) *fieldCodec {
	return &fieldCodec{
		class:    openflow.OFPXMC_OPENFLOW_BASIC,
		field:    field,
		width:    width,
		maskable: true,
		present: func(m *openflow.Match) bool {
			return *ref(m) != nil
		},
		value: func(m *openflow.Match) ([]byte, []byte) {
			v := *ref(m)
			if !v.HasMask {
				return putUint(uint64(v.Value), width), nil
			}
			return putUint(uint64(v.Value), width), putUint(uint64(v.Mask), width)
		},
		set: func(m *openflow.Match, value, mask []byte) {
			v := &openflow.Masked[T]{Value: T(getUint(value))}
			if mask != nil {
				v.Mask = T(getUint(mask))
				v.HasMask = true
			}
			*ref(m) = v
		},
	}
}

func macField(field uint8, maskable bool, ref func(*openflow.Match) **openflow.MaskedMAC) *fieldCodec {
	return &fieldCodec{
		class:    openflow.OFPXMC_OPENFLOW_BASIC,
		field:    field,
		width:    6,
		maskable: maskable,
		present: func(m *openflow.Match) bool {
			return *ref(m) != nil
		},
		value: func(m *openflow.Match) ([]byte, []byte) {
			v := *ref(m)
			return clone(v.Addr), clone(v.Mask)
		},
		set: func(m *openflow.Match, value, mask []byte) {
			*ref(m) = &openflow.MaskedMAC{
				Addr: net.HardwareAddr(clone(value)),
				Mask: net.HardwareAddr(clone(mask)),
			}
		},
	}
}

func ipField(field uint8, width int, maskable bool, ref func(*openflow.Match) **openflow.MaskedIP) *fieldCodec {
	return &fieldCodec{
		class:    openflow.OFPXMC_OPENFLOW_BASIC,
		field:    field,
		width:    width,
		maskable: maskable,
		present: func(m *openflow.Match) bool {
			return *ref(m) != nil
		},
		value: func(m *openflow.Match) ([]byte, []byte) {
			v := *ref(m)
			var ip net.IP
			if width == net.IPv4len {
				ip = v.IP.To4()
			} else {
				ip = v.IP.To16()
			}
			mask := v.Mask
			if width == net.IPv4len && len(mask) == net.IPv6len {
				mask = mask[12:]
			}
			return clone(ip), clone(mask)
		},
		set: func(m *openflow.Match, value, mask []byte) {
			v := &openflow.MaskedIP{IP: net.IP(clone(value))}
			if mask != nil {
				v.Mask = net.IPMask(clone(mask))
			}
			*ref(m) = v
		},
	}
}

func vlanField() *fieldCodec {
	return &fieldCodec{
		class:    openflow.OFPXMC_OPENFLOW_BASIC,
		field:    OFPXMT_OFB_VLAN_VID,
		width:    2,
		maskable: true,
		present: func(m *openflow.Match) bool {
			return m.VLAN != nil
		},
		value: func(m *openflow.Match) ([]byte, []byte) {
			switch v := m.VLAN; {
			case v.Present && v.ID == 0:
				// Any tagged packet.
				return putUint(uint64(OFPVID_PRESENT), 2), putUint(uint64(OFPVID_PRESENT), 2)
			case v.Present:
				return putUint(uint64(v.ID&0x0FFF|OFPVID_PRESENT), 2), nil
			default:
				return putUint(uint64(OFPVID_NONE), 2), nil
			}
		},
		set: func(m *openflow.Match, value, _ []byte) {
			vid := uint16(getUint(value))
			if vid&OFPVID_PRESENT == 0 {
				m.VLAN = &openflow.VLANMatch{}
				return
			}
			m.VLAN = &openflow.VLANMatch{ID: vid & 0x0FFF, Present: true}
		},
	}
}

func tcpFlagsField() *fieldCodec {
	v := maskedField(ONF_OXM_TCP_FLAGS, 2, func(m *openflow.Match) **openflow.Masked[uint16] { return &m.TCPFlags })
	v.class = openflow.OFPXMC_EXPERIMENTER
	v.experimenter = ONF_EXPERIMENTER_ID

	return v
}

// matchFields returns the codecs of the supported OXM fields in the order of
// the field catalog.
func matchFields() []*fieldCodec {
	return []*fieldCodec{
		exactField(OFPXMT_OFB_IN_PORT, 4, func(m *openflow.Match) **uint32 { return &m.InPort }),
		exactField(OFPXMT_OFB_IN_PHY_PORT, 4, func(m *openflow.Match) **uint32 { return &m.InPhyPort }),
		maskedField(OFPXMT_OFB_METADATA, 8, func(m *openflow.Match) **openflow.Masked[uint64] { return &m.Metadata }),
		macField(OFPXMT_OFB_ETH_DST, true, func(m *openflow.Match) **openflow.MaskedMAC { return &m.EthDst }),
		macField(OFPXMT_OFB_ETH_SRC, true, func(m *openflow.Match) **openflow.MaskedMAC { return &m.EthSrc }),
		exactField(OFPXMT_OFB_ETH_TYPE, 2, func(m *openflow.Match) **uint16 { return &m.EthType }),
		vlanField(),
		exactField(OFPXMT_OFB_VLAN_PCP, 1, func(m *openflow.Match) **uint8 { return &m.VLANPCP }),
		exactField(OFPXMT_OFB_IP_DSCP, 1, func(m *openflow.Match) **uint8 { return &m.IPDSCP }),
		exactField(OFPXMT_OFB_IP_ECN, 1, func(m *openflow.Match) **uint8 { return &m.IPECN }),
		exactField(OFPXMT_OFB_IP_PROTO, 1, func(m *openflow.Match) **uint8 { return &m.IPProto }),
		ipField(OFPXMT_OFB_IPV4_SRC, net.IPv4len, true, func(m *openflow.Match) **openflow.MaskedIP { return &m.IPv4Src }),
		ipField(OFPXMT_OFB_IPV4_DST, net.IPv4len, true, func(m *openflow.Match) **openflow.MaskedIP { return &m.IPv4Dst }),
		exactField(OFPXMT_OFB_TCP_SRC, 2, func(m *openflow.Match) **uint16 { return &m.TCPSrc }),
		exactField(OFPXMT_OFB_TCP_DST, 2, func(m *openflow.Match) **uint16 { return &m.TCPDst }),
		exactField(OFPXMT_OFB_UDP_SRC, 2, func(m *openflow.Match) **uint16 { return &m.UDPSrc }),
		exactField(OFPXMT_OFB_UDP_DST, 2, func(m *openflow.Match) **uint16 { return &m.UDPDst }),
		exactField(OFPXMT_OFB_SCTP_SRC, 2, func(m *openflow.Match) **uint16 { return &m.SCTPSrc }),
		exactField(OFPXMT_OFB_SCTP_DST, 2, func(m *openflow.Match) **uint16 { return &m.SCTPDst }),
		exactField(OFPXMT_OFB_ICMPV4_TYPE, 1, func(m *openflow.Match) **uint8 { return &m.ICMPv4Type }),
		exactField(OFPXMT_OFB_ICMPV4_CODE, 1, func(m *openflow.Match) **uint8 { return &m.ICMPv4Code }),
		exactField(OFPXMT_OFB_ARP_OP, 2, func(m *openflow.Match) **uint16 { return &m.ARPOp }),
		ipField(OFPXMT_OFB_ARP_SPA, net.IPv4len, true, func(m *openflow.Match) **openflow.MaskedIP { return &m.ARPSPA }),
		ipField(OFPXMT_OFB_ARP_TPA, net.IPv4len, true, func(m *openflow.Match) **openflow.MaskedIP { return &m.ARPTPA }),
		macField(OFPXMT_OFB_ARP_SHA, true, func(m *openflow.Match) **openflow.MaskedMAC { return &m.ARPSHA }),
		macField(OFPXMT_OFB_ARP_THA, true, func(m *openflow.Match) **openflow.MaskedMAC { return &m.ARPTHA }),
		ipField(OFPXMT_OFB_IPV6_SRC, net.IPv6len, true, func(m *openflow.Match) **openflow.MaskedIP { return &m.IPv6Src }),
		ipField(OFPXMT_OFB_IPV6_DST, net.IPv6len, true, func(m *openflow.Match) **openflow.MaskedIP { return &m.IPv6Dst }),
		maskedField(OFPXMT_OFB_IPV6_FLABEL, 4, func(m *openflow.Match) **openflow.Masked[uint32] { return &m.IPv6FLabel }),
		exactField(OFPXMT_OFB_ICMPV6_TYPE, 1, func(m *openflow.Match) **uint8 { return &m.ICMPv6Type }),
		exactField(OFPXMT_OFB_ICMPV6_CODE, 1, func(m *openflow.Match) **uint8 { return &m.ICMPv6Code }),
		ipField(OFPXMT_OFB_IPV6_ND_TARGET, net.IPv6len, false, func(m *openflow.Match) **openflow.MaskedIP { return &m.IPv6NDTarget }),
		macField(OFPXMT_OFB_IPV6_ND_SLL, false, func(m *openflow.Match) **openflow.MaskedMAC { return &m.IPv6NDSLL }),
		macField(OFPXMT_OFB_IPV6_ND_TLL, false, func(m *openflow.Match) **openflow.MaskedMAC { return &m.IPv6NDTLL }),
		exactField(OFPXMT_OFB_MPLS_LABEL, 4, func(m *openflow.Match) **uint32 { return &m.MPLSLabel }),
		exactField(OFPXMT_OFB_MPLS_TC, 1, func(m *openflow.Match) **uint8 { return &m.MPLSTC }),
		exactField(OFPXMT_OFP_MPLS_BOS, 1, func(m *openflow.Match) **uint8 { return &m.MPLSBOS }),
		maskedField(OFPXMT_OFB_PBB_ISID, 3, func(m *openflow.Match) **openflow.Masked[uint32] { return &m.PBBISID }),
		maskedField(OFPXMT_OFB_TUNNEL_ID, 8, func(m *openflow.Match) **openflow.Masked[uint64] { return &m.TunnelID }),
		maskedField(OFPXMT_OFB_IPV6_EXTHDR, 2, func(m *openflow.Match) **openflow.Masked[uint16] { return &m.IPv6ExtHdr }),
		tcpFlagsField(),
	}
}
