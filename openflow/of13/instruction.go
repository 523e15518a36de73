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

// writeTL writes the type and length fields shared by instructions and
// actions.
func writeTL(w *bytes.Buffer, typ, length uint16) {
	var v [4]byte
	binary.BigEndian.PutUint16(v[0:2], typ)
	binary.BigEndian.PutUint16(v[2:4], length)
	w.Write(v[:])
}

// patchLength fills the length field of the TLV that starts at start.
func patchLength(w *bytes.Buffer, start int) error {
	length := w.Len() - start
	if length > 0xFFFF {
		return openflow.ErrInvalidPacketLength
	}
	binary.BigEndian.PutUint16(w.Bytes()[start+2:start+4], uint16(length))

	return nil
}

// splitTLV returns the type and the whole TLV at the beginning of data.
func splitTLV(data []byte) (typ uint16, tlv []byte, err error) {
	if len(data) < 4 {
		return 0, nil, openflow.ErrInvalidPacketLength
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length < 4 || len(data) < length {
		return 0, nil, openflow.ErrInvalidPacketLength
	}

	return binary.BigEndian.Uint16(data[0:2]), data[:length], nil
}

func encodeInstructions(reg *openflow.Registry, ins []openflow.Instruction, w *bytes.Buffer) error {
	for _, v := range ins {
		key := openflow.InstructionKey(Version, v.Type)
		s, ok := reg.Serializers.Instructions.Lookup(key)
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

// decodeInstructions decodes a list of instructions. Instructions without a
// registered deserializer are kept in Raw, like the unsupported match
// entries.
func decodeInstructions(reg *openflow.Registry, data []byte) ([]openflow.Instruction, error) {
	var result []openflow.Instruction

	for len(data) > 0 {
		typ, tlv, err := splitTLV(data)
		if err != nil {
			return nil, err
		}
		data = data[len(tlv):]

		key := openflow.InstructionKey(Version, typ)
		d, ok := reg.Deserializers.Instructions.Lookup(key)
		if !ok {
			logger.Debugf("keeping unsupported instruction as is: %v", key)
			result = append(result, openflow.Instruction{Type: typ, Raw: append([]byte(nil), tlv...)})
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

type gotoTableCodec struct{}

func (gotoTableCodec) Serialize(ins openflow.Instruction, w *bytes.Buffer) error {
	writeTL(w, OFPIT_GOTO_TABLE, 8)
	w.WriteByte(ins.TableID)
	// 3 bytes padding
	openflow.WritePadding(w, 3)

	return nil
}

func (gotoTableCodec) Deserialize(data []byte) (openflow.Instruction, error) {
	if len(data) != 8 {
		return openflow.Instruction{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Instruction{Type: OFPIT_GOTO_TABLE, TableID: data[4]}, nil
}

type writeMetadataCodec struct{}

func (writeMetadataCodec) Serialize(ins openflow.Instruction, w *bytes.Buffer) error {
	writeTL(w, OFPIT_WRITE_METADATA, 24)
	var v [20]byte
	// v[0:4] is padding
	binary.BigEndian.PutUint64(v[4:12], ins.Metadata)
	binary.BigEndian.PutUint64(v[12:20], ins.MetadataMask)
	w.Write(v[:])

	return nil
}

func (writeMetadataCodec) Deserialize(data []byte) (openflow.Instruction, error) {
	if len(data) != 24 {
		return openflow.Instruction{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Instruction{
		Type:         OFPIT_WRITE_METADATA,
		Metadata:     binary.BigEndian.Uint64(data[8:16]),
		MetadataMask: binary.BigEndian.Uint64(data[16:24]),
	}, nil
}

// actionsCodec handles WRITE_ACTIONS, APPLY_ACTIONS and CLEAR_ACTIONS, which
// share the same layout.
type actionsCodec struct {
	typ      uint16
	registry *openflow.Registry
}

func (r *actionsCodec) Serialize(ins openflow.Instruction, w *bytes.Buffer) error {
	start := w.Len()
	writeTL(w, r.typ, 0)
	openflow.WritePadding(w, 4)
	if err := encodeActions(r.registry, ins.Actions, w); err != nil {
		return err
	}

	return patchLength(w, start)
}

func (r *actionsCodec) Deserialize(data []byte) (openflow.Instruction, error) {
	if len(data) < 8 {
		return openflow.Instruction{}, openflow.ErrInvalidPacketLength
	}
	actions, err := decodeActions(r.registry, data[8:])
	if err != nil {
		return openflow.Instruction{}, err
	}

	return openflow.Instruction{Type: r.typ, Actions: actions}, nil
}

type meterCodec struct{}

func (meterCodec) Serialize(ins openflow.Instruction, w *bytes.Buffer) error {
	writeTL(w, OFPIT_METER, 8)
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], ins.MeterID)
	w.Write(v[:])

	return nil
}

func (meterCodec) Deserialize(data []byte) (openflow.Instruction, error) {
	if len(data) != 8 {
		return openflow.Instruction{}, openflow.ErrInvalidPacketLength
	}

	return openflow.Instruction{Type: OFPIT_METER, MeterID: binary.BigEndian.Uint32(data[4:8])}, nil
}

type experimenterInstructionCodec struct{}

func (experimenterInstructionCodec) Serialize(ins openflow.Instruction, w *bytes.Buffer) error {
	length := 8 + len(ins.Data)
	if length > 0xFFFF {
		return openflow.ErrInvalidPacketLength
	}
	writeTL(w, OFPIT_EXPERIMENTER, uint16(length))
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], ins.Experimenter)
	w.Write(v[:])
	w.Write(ins.Data)

	return nil
}

func (experimenterInstructionCodec) Deserialize(data []byte) (openflow.Instruction, error) {
	if len(data) < 8 {
		return openflow.Instruction{}, openflow.ErrInvalidPacketLength
	}

	v := openflow.Instruction{Type: OFPIT_EXPERIMENTER, Experimenter: binary.BigEndian.Uint32(data[4:8])}
	if len(data) > 8 {
		v.Data = append([]byte(nil), data[8:]...)
	}

	return v, nil
}

// InjectInstructionCodecs registers the instruction and action codecs of
// OpenFlow 1.3.
func InjectInstructionCodecs(reg *openflow.Registry) {
	instructions := map[uint16]interface {
		openflow.InstructionSerializer
		openflow.InstructionDeserializer
	}{
		OFPIT_GOTO_TABLE:     gotoTableCodec{},
		OFPIT_WRITE_METADATA: writeMetadataCodec{},
		OFPIT_WRITE_ACTIONS:  &actionsCodec{typ: OFPIT_WRITE_ACTIONS, registry: reg},
		OFPIT_APPLY_ACTIONS:  &actionsCodec{typ: OFPIT_APPLY_ACTIONS, registry: reg},
		OFPIT_CLEAR_ACTIONS:  &actionsCodec{typ: OFPIT_CLEAR_ACTIONS, registry: reg},
		OFPIT_METER:          meterCodec{},
		OFPIT_EXPERIMENTER:   experimenterInstructionCodec{},
	}
	for typ, codec := range instructions {
		key := openflow.InstructionKey(Version, typ)
		reg.Serializers.Instructions.Register(key, codec)
		reg.Deserializers.Instructions.Register(key, codec)
	}

	for typ, codec := range actionCodecs(reg) {
		key := openflow.ActionKey(Version, typ)
		reg.Serializers.Actions.Register(key, codec)
		reg.Deserializers.Actions.Register(key, codec)
	}
}
