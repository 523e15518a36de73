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

package network

import (
	"bytes"
	"net"

	"github.com/superkkt/ofdriver/openflow"
)

// normalizeMatch returns a copy of m in which the masked fields are written
// in a single form: the bits cleared by a mask are cleared in the value and
// a mask of all ones is dropped. Switches report masked fields in this form
// regardless of how they were installed.
func normalizeMatch(m openflow.Match) openflow.Match {
	m.Metadata = normalizeMasked(m.Metadata, ^uint64(0))
	m.IPv6FLabel = normalizeMasked(m.IPv6FLabel, 0xFFFFFFFF)
	m.PBBISID = normalizeMasked(m.PBBISID, 0xFFFFFF)
	m.TunnelID = normalizeMasked(m.TunnelID, ^uint64(0))
	m.IPv6ExtHdr = normalizeMasked(m.IPv6ExtHdr, 0xFFFF)
	m.TCPFlags = normalizeMasked(m.TCPFlags, 0xFFFF)

	m.EthDst = normalizeMAC(m.EthDst)
	m.EthSrc = normalizeMAC(m.EthSrc)
	m.ARPSHA = normalizeMAC(m.ARPSHA)
	m.ARPTHA = normalizeMAC(m.ARPTHA)

	m.IPv4Src = normalizeIP(m.IPv4Src, net.IPv4len)
	m.IPv4Dst = normalizeIP(m.IPv4Dst, net.IPv4len)
	m.ARPSPA = normalizeIP(m.ARPSPA, net.IPv4len)
	m.ARPTPA = normalizeIP(m.ARPTPA, net.IPv4len)
	m.IPv6Src = normalizeIP(m.IPv6Src, net.IPv6len)
	m.IPv6Dst = normalizeIP(m.IPv6Dst, net.IPv6len)

	return m
}

func normalizeMasked[T openflow.Unsigned](v *openflow.Masked[T], full T) *openflow.Masked[T] {
	if v == nil || !v.HasMask {
		return v
	}
	if v.Mask&full == full {
		return &openflow.Masked[T]{Value: v.Value}
	}

	return &openflow.Masked[T]{Value: v.Value & v.Mask, Mask: v.Mask, HasMask: true}
}

func isFullMask(mask []byte) bool {
	for _, v := range mask {
		if v != 0xFF {
			return false
		}
	}

	return true
}

func normalizeMAC(v *openflow.MaskedMAC) *openflow.MaskedMAC {
	if v == nil || v.Mask == nil || len(v.Mask) != len(v.Addr) {
		return v
	}
	if isFullMask(v.Mask) {
		return &openflow.MaskedMAC{Addr: v.Addr}
	}

	addr := make(net.HardwareAddr, len(v.Addr))
	for i := range v.Addr {
		addr[i] = v.Addr[i] & v.Mask[i]
	}

	return &openflow.MaskedMAC{Addr: addr, Mask: v.Mask}
}

func normalizeIP(v *openflow.MaskedIP, width int) *openflow.MaskedIP {
	if v == nil {
		return nil
	}

	ip := v.IP.To16()
	if width == net.IPv4len {
		ip = v.IP.To4()
	}
	if ip == nil {
		// Leave a malformed address to the encoder.
		return v
	}
	mask := v.Mask
	if width == net.IPv4len && len(mask) == net.IPv6len && bytes.Equal(mask[:12], net.CIDRMask(96, 128)[:12]) {
		mask = mask[12:]
	}
	if mask == nil || len(mask) != width {
		return &openflow.MaskedIP{IP: ip, Mask: mask}
	}
	if isFullMask(mask) {
		return &openflow.MaskedIP{IP: ip}
	}

	return &openflow.MaskedIP{IP: ip.Mask(mask), Mask: mask}
}
