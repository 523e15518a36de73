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

	"github.com/pkg/errors"
)

type actionCodec interface {
	openflow.ActionSerializer
	openflow.ActionDeserializer
}

func encodeActions(reg *openflow.Registry, actions []openflow.Action, w *bytes.Buffer) error {
	for _, v := range actions {
		key := openflow.ActionKey(Version, v.Type)
		s, ok := reg.Serializers.Actions.Lookup(key)
		if !ok {
			if v.Raw != nil {
				w.Write(v.Raw)
				continue
			}
			return errors.Wrap(openflow.ErrMissingCodec, key.String())
		}
		if err := s.Serialize(v, w); err != nil {
			return errors.Wrap(err, key.String())
		}
	}

	return nil
}

// decodeActions decodes a list of actions. Actions without a registered
// deserializer are kept in Raw.
func decodeActions(reg *openflow.Registry, data []byte) ([]openflow.Action, error) {
	var result []openflow.Action

	for len(data) > 0 {
		typ, tlv, err := splitTLV(data)
		if err != nil {
			return nil, err
		}
		data = data[len(tlv):]

		key := openflow.ActionKey(Version, typ)
		d, ok := reg.Deserializers.Actions.Lookup(key)
		if !ok {
			logger.Debugf("keeping unsupported action as is: %v", key)
			result = append(result, openflow.Action{Type: typ, Raw: append([]byte(nil), tlv...)})
			continue
		}
		v, err := d.Deserialize(tlv)
		if err != nil {
			return nil, errors.Wrap(err, key.String())
		}
		result = append(result, v)
	}

	return result, nil
}

type outputCodec struct{}

func (outputCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	writeTL(w, OFPAT_OUTPUT, 16)
	var v [12]byte
	binary.BigEndian.PutUint32(v[0:4], act.Port)
	binary.BigEndian.PutUint16(v[4:6], act.MaxLen)
	// v[6:12] is padding
	w.Write(v[:])

	return nil
}

func (outputCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) != 16 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Action{
		Type:   OFPAT_OUTPUT,
		Port:   binary.BigEndian.Uint32(data[4:8]),
		MaxLen: binary.BigEndian.Uint16(data[8:10]),
	}, nil
}

// headerOnlyCodec handles the actions that carry nothing but padding.
type headerOnlyCodec struct {
	typ uint16
}

func (r headerOnlyCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	writeTL(w, r.typ, 8)
	openflow.WritePadding(w, 4)

	return nil
}

func (r headerOnlyCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) != 8 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Action{Type: r.typ}, nil
}

type ttlCodec struct {
	typ uint16
}

func (r ttlCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	writeTL(w, r.typ, 8)
	w.WriteByte(act.TTL)
	openflow.WritePadding(w, 3)

	return nil
}

func (r ttlCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) != 8 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Action{Type: r.typ, TTL: data[4]}, nil
}

// etherTypeCodec handles PUSH_VLAN, PUSH_MPLS, PUSH_PBB and POP_MPLS.
type etherTypeCodec struct {
	typ uint16
}

func (r etherTypeCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	writeTL(w, r.typ, 8)
	var v [4]byte
	binary.BigEndian.PutUint16(v[0:2], act.EtherType)
	// v[2:4] is padding
	w.Write(v[:])

	return nil
}

func (r etherTypeCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) != 8 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Action{Type: r.typ, EtherType: binary.BigEndian.Uint16(data[4:6])}, nil
}

type setQueueCodec struct{}

func (setQueueCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	writeTL(w, OFPAT_SET_QUEUE, 8)
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], act.QueueID)
	w.Write(v[:])

	return nil
}

func (setQueueCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) != 8 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Action{Type: OFPAT_SET_QUEUE, QueueID: binary.BigEndian.Uint32(data[4:8])}, nil
}

type groupCodec struct{}

func (groupCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	writeTL(w, OFPAT_GROUP, 8)
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], act.GroupID)
	w.Write(v[:])

	return nil
}

func (groupCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) != 8 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Action{Type: OFPAT_GROUP, GroupID: binary.BigEndian.Uint32(data[4:8])}, nil
}

// setFieldCodec writes the single field of Action.Field as an OXM entry
// padded to 8 bytes.
type setFieldCodec struct {
	match *MatchCodec
}

func (r *setFieldCodec) Serialize(act openflow.Action, w *bytes.Buffer) error {
	if act.Field == nil {
		return openflow.ErrInvalidMatchEntry
	}

	start := w.Len()
	writeTL(w, OFPAT_SET_FIELD, 0)
	if err := r.match.EncodeEntries(act.Field, w); err != nil {
		return err
	}
	if w.Len()-start == 4 {
		// No field is set.
		return openflow.ErrInvalidMatchEntry
	}
	openflow.Align(w, start)

	return patchLength(w, start)
}

func (r *setFieldCodec) Deserialize(data []byte) (openflow.Action, error) {
	if len(data) < 8 || len(data)%openflow.Alignment != 0 {
		return openflow.Action{}, openflow.ErrInvalidPacketLength
	}
	_, n, err := openflow.ReadOXMField(data[4:])
	if err != nil {
		return openflow.Action{}, err
	}
	field, err := r.match.DecodeEntries(data[4 : 4+n])
	if err != nil {
		return openflow.Action{}, err
	}

	return openflow.Action{Type: OFPAT_SET_FIELD, Field: &field}, nil
}

func actionCodecs(reg *openflow.Registry) map[uint16]actionCodec {
	return map[uint16]actionCodec{
		OFPAT_OUTPUT:       outputCodec{},
		OFPAT_COPY_TTL_OUT: headerOnlyCodec{typ: OFPAT_COPY_TTL_OUT},
		OFPAT_COPY_TTL_IN:  headerOnlyCodec{typ: OFPAT_COPY_TTL_IN},
		OFPAT_SET_MPLS_TTL: ttlCodec{typ: OFPAT_SET_MPLS_TTL},
		OFPAT_DEC_MPLS_TTL: headerOnlyCodec{typ: OFPAT_DEC_MPLS_TTL},
		OFPAT_PUSH_VLAN:    etherTypeCodec{typ: OFPAT_PUSH_VLAN},
		OFPAT_POP_VLAN:     headerOnlyCodec{typ: OFPAT_POP_VLAN},
		OFPAT_PUSH_MPLS:    etherTypeCodec{typ: OFPAT_PUSH_MPLS},
		OFPAT_POP_MPLS:     etherTypeCodec{typ: OFPAT_POP_MPLS},
		OFPAT_SET_QUEUE:    setQueueCodec{},
		OFPAT_GROUP:        groupCodec{},
		OFPAT_SET_NW_TTL:   ttlCodec{typ: OFPAT_SET_NW_TTL},
		OFPAT_DEC_NW_TTL:   headerOnlyCodec{typ: OFPAT_DEC_NW_TTL},
		OFPAT_SET_FIELD:    &setFieldCodec{match: NewMatchCodec(reg)},
		OFPAT_PUSH_PBB:     etherTypeCodec{typ: OFPAT_PUSH_PBB},
		OFPAT_POP_PBB:      headerOnlyCodec{typ: OFPAT_POP_PBB},
	}
}
