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
)

const (
	OF10_VERSION = 0x01
	OF13_VERSION = 0x04
)

const (
	// Length of ofp_header.
	HeaderLength = 8
	// Alignment of ofp_match, instructions, actions and multipart bodies.
	Alignment = 8
)

// DefaultCookie is the cookie of a flow that does not carry one.
const DefaultCookie uint64 = 0

// Message is a decoded OpenFlow message. Values are built once and never
// modified after they are encoded or decoded.
type Message interface {
	Version() uint8
	Type() uint8
	TransactionID() uint32
}

// Header is ofp_header. Every concrete message embeds it.
type Header struct {
	version uint8
	msgType uint8
	length  uint16
	xid     uint32
}

func NewHeader(version, msgType uint8, xid uint32) Header {
	return Header{
		version: version,
		msgType: msgType,
		length:  HeaderLength,
		xid:     xid,
	}
}

// ParseHeader decodes ofp_header and makes sure that data holds the whole
// message declared by the length field.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderLength {
		return Header{}, ErrInvalidPacketLength
	}

	h := Header{
		version: data[0],
		msgType: data[1],
		length:  binary.BigEndian.Uint16(data[2:4]),
		xid:     binary.BigEndian.Uint32(data[4:8]),
	}
	if h.length < HeaderLength || len(data) < int(h.length) {
		return Header{}, ErrInvalidPacketLength
	}

	return h, nil
}

func (r Header) Version() uint8 {
	return r.version
}

func (r Header) Type() uint8 {
	return r.msgType
}

func (r Header) TransactionID() uint32 {
	return r.xid
}

// Length returns the length field of a decoded header.
func (r Header) Length() uint16 {
	return r.length
}

// Equal ignores the length field, which is only known after encoding.
func (r Header) Equal(h Header) bool {
	return r.version == h.version && r.msgType == h.msgType && r.xid == h.xid
}

// Frame writes ofp_header of msg into w, calls body to append the message
// body and then fills the length field.
func Frame(w *bytes.Buffer, msg Message, body func() error) error {
	start := w.Len()

	var h [HeaderLength]byte
	h[0] = msg.Version()
	h[1] = msg.Type()
	// h[2:4] is the length placeholder
	binary.BigEndian.PutUint32(h[4:8], msg.TransactionID())
	w.Write(h[:])

	if body != nil {
		if err := body(); err != nil {
			return err
		}
	}

	length := w.Len() - start
	if length > 0xFFFF {
		return ErrInvalidPacketLength
	}
	binary.BigEndian.PutUint16(w.Bytes()[start+2:start+4], uint16(length))

	return nil
}

// Padding returns the number of zero bytes needed to align length to a
// multiple of align.
func Padding(length, align int) int {
	return (align - (length % align)) % align
}

func WritePadding(w *bytes.Buffer, n int) {
	for i := 0; i < n; i++ {
		w.WriteByte(0)
	}
}

// Align pads w, which has grown by the bytes written since start, to the
// next multiple of Alignment.
func Align(w *bytes.Buffer, start int) {
	WritePadding(w, Padding(w.Len()-start, Alignment))
}
