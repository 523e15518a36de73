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

// Hello keeps the hello elements of OF1.3 as raw bytes.
type Hello struct {
	Header
	Elements []byte
}

type HelloCodec struct{}

func (HelloCodec) Serialize(msg Message, w *bytes.Buffer) error {
	v, ok := msg.(*Hello)
	if !ok {
		return ErrUnexpectedMessage
	}

	return Frame(w, v, func() error {
		w.Write(v.Elements)
		return nil
	})
}

func (HelloCodec) Deserialize(h Header, body []byte) (Message, error) {
	return &Hello{Header: h, Elements: copyData(body)}, nil
}

type Error struct {
	Header
	Class uint16
	Code  uint16
	Data  []byte
}

type ErrorCodec struct{}

func (ErrorCodec) Serialize(msg Message, w *bytes.Buffer) error {
	v, ok := msg.(*Error)
	if !ok {
		return ErrUnexpectedMessage
	}

	return Frame(w, v, func() error {
		var b [4]byte
		binary.BigEndian.PutUint16(b[0:2], v.Class)
		binary.BigEndian.PutUint16(b[2:4], v.Code)
		w.Write(b[:])
		w.Write(v.Data)
		return nil
	})
}

func (ErrorCodec) Deserialize(h Header, body []byte) (Message, error) {
	if len(body) < 4 {
		return nil, ErrInvalidPacketLength
	}

	return &Error{
		Header: h,
		Class:  binary.BigEndian.Uint16(body[0:2]),
		Code:   binary.BigEndian.Uint16(body[2:4]),
		Data:   copyData(body[4:]),
	}, nil
}

// Empty is a message that has no body, such as FEATURES_REQUEST and
// BARRIER_REQUEST.
type Empty struct {
	Header
}

type EmptyCodec struct{}

func (EmptyCodec) Serialize(msg Message, w *bytes.Buffer) error {
	v, ok := msg.(*Empty)
	if !ok {
		return ErrUnexpectedMessage
	}

	return Frame(w, v, nil)
}

func (EmptyCodec) Deserialize(h Header, body []byte) (Message, error) {
	if len(body) != 0 {
		return nil, ErrInvalidPacketLength
	}

	return &Empty{Header: h}, nil
}
