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
)

type EchoRequest struct {
	Header
	Data []byte
}

type EchoReply struct {
	Header
	Data []byte
}

func copyData(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}

	return append([]byte(nil), body...)
}

type EchoRequestCodec struct{}

func (EchoRequestCodec) Serialize(msg Message, w *bytes.Buffer) error {
	v, ok := msg.(*EchoRequest)
	if !ok {
		return ErrUnexpectedMessage
	}

	return Frame(w, v, func() error {
		w.Write(v.Data)
		return nil
	})
}

func (EchoRequestCodec) Deserialize(h Header, body []byte) (Message, error) {
	return &EchoRequest{Header: h, Data: copyData(body)}, nil
}

type EchoReplyCodec struct{}

func (EchoReplyCodec) Serialize(msg Message, w *bytes.Buffer) error {
	v, ok := msg.(*EchoReply)
	if !ok {
		return ErrUnexpectedMessage
	}

	return Frame(w, v, func() error {
		w.Write(v.Data)
		return nil
	})
}

func (EchoReplyCodec) Deserialize(h Header, body []byte) (Message, error) {
	return &EchoReply{Header: h, Data: copyData(body)}, nil
}
