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

	"github.com/pkg/errors"
)

// MessageSerializer writes a whole message, including its header, into w.
// Codecs are stateless and shared by concurrent callers.
type MessageSerializer interface {
	Serialize(msg Message, w *bytes.Buffer) error
}

// MessageDeserializer decodes the message body that follows the header h.
type MessageDeserializer interface {
	Deserialize(h Header, body []byte) (Message, error)
}

// MultipartBody is the body of a multipart request or reply.
type MultipartBody interface {
	MultipartType() uint16
}

type MultipartSerializer interface {
	Serialize(body MultipartBody, w *bytes.Buffer) error
}

type MultipartDeserializer interface {
	Deserialize(body []byte) (MultipartBody, error)
}

// MatchEntrySerializer encodes a single OXM field of a match.
type MatchEntrySerializer interface {
	// Present reports whether m sets the field that this serializer encodes.
	Present(m *Match) bool
	Serialize(m *Match, w *bytes.Buffer) error
}

// MatchEntryDeserializer stores the value of a single OXM entry into m.
type MatchEntryDeserializer interface {
	Deserialize(entry OXMField, m *Match) error
}

type InstructionSerializer interface {
	Serialize(ins Instruction, w *bytes.Buffer) error
}

// InstructionDeserializer decodes an instruction. data starts with the
// instruction's type and length fields.
type InstructionDeserializer interface {
	Deserialize(data []byte) (Instruction, error)
}

type ActionSerializer interface {
	Serialize(act Action, w *bytes.Buffer) error
}

// ActionDeserializer decodes an action. data starts with the action's type
// and length fields.
type ActionDeserializer interface {
	Deserialize(data []byte) (Action, error)
}

// Codec converts messages to and from the wire format by dispatching them to
// the codecs registered in its registry.
type Codec struct {
	registry *Registry
}

func NewCodec(r *Registry) *Codec {
	if r == nil {
		panic("nil codec registry")
	}

	return &Codec{registry: r}
}

func (r *Codec) Registry() *Registry {
	return r.registry
}

func (r *Codec) Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrUnexpectedMessage
	}

	key := MessageKey(msg.Version(), msg.Type())
	s, ok := r.registry.Serializers.Messages.Lookup(key)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedMessage, key.String())
	}

	buf := new(bytes.Buffer)
	if err := s.Serialize(msg, buf); err != nil {
		return nil, errors.Wrap(err, key.String())
	}

	return buf.Bytes(), nil
}

// Decode decodes the message at the beginning of packet. Bytes after the
// length declared in the header are ignored.
func (r *Codec) Decode(packet []byte) (Message, error) {
	h, err := ParseHeader(packet)
	if err != nil {
		return nil, err
	}

	key := MessageKey(h.Version(), h.Type())
	d, ok := r.registry.Deserializers.Messages.Lookup(key)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedMessage, key.String())
	}
	msg, err := d.Deserialize(h, packet[HeaderLength:h.Length()])
	if err != nil {
		return nil, errors.Wrap(err, key.String())
	}

	return msg, nil
}
