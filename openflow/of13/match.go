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

// MatchCodec encodes and decodes ofp_match using the match entry codecs of
// the registry.
type MatchCodec struct {
	registry *openflow.Registry
}

func NewMatchCodec(r *openflow.Registry) *MatchCodec {
	if r == nil {
		panic("nil codec registry")
	}

	return &MatchCodec{registry: r}
}

// Encode writes ofp_match, including the trailing padding, into w.
func (r *MatchCodec) Encode(m *openflow.Match, w *bytes.Buffer) error {
	start := w.Len()

	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], OFPMT_OXM)
	w.Write(hdr[:])
	if m != nil {
		if err := r.EncodeEntries(m, w); err != nil {
			return err
		}
	}

	// ofp_match.length does not include padding
	length := w.Len() - start
	if length > 0xFFFF {
		return openflow.ErrInvalidPacketLength
	}
	binary.BigEndian.PutUint16(w.Bytes()[start+2:start+4], uint16(length))
	openflow.Align(w, start)

	return nil
}

// EncodeEntries writes the OXM entries of m without the ofp_match header.
// Registered fields are written in key order, followed by the unsupported
// entries kept from decoding.
func (r *MatchCodec) EncodeEntries(m *openflow.Match, w *bytes.Buffer) error {
	table := r.registry.Serializers.MatchEntries
	for _, k := range table.Keys() {
		if k.Version != Version {
			continue
		}
		s, ok := table.Lookup(k)
		if !ok || !s.Present(m) {
			continue
		}
		if err := s.Serialize(m, w); err != nil {
			return errors.Wrap(err, k.String())
		}
	}
	for _, v := range m.Unsupported {
		if err := v.WriteTo(w); err != nil {
			return errors.Wrap(err, v.Key(Version).String())
		}
	}

	return nil
}

// Decode decodes ofp_match at the beginning of data. n is the number of
// bytes consumed, including padding.
func (r *MatchCodec) Decode(data []byte) (m openflow.Match, n int, err error) {
	if len(data) < 4 {
		return openflow.Match{}, 0, openflow.ErrInvalidPacketLength
	}
	if binary.BigEndian.Uint16(data[0:2]) != OFPMT_OXM {
		return openflow.Match{}, 0, openflow.ErrUnsupportedMatchType
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length < 4 || len(data) < length {
		return openflow.Match{}, 0, openflow.ErrInvalidPacketLength
	}
	n = length + openflow.Padding(length, openflow.Alignment)
	if len(data) < n {
		return openflow.Match{}, 0, openflow.ErrInvalidPacketLength
	}

	m, err = r.DecodeEntries(data[4:length])
	if err != nil {
		return openflow.Match{}, 0, err
	}

	return m, n, nil
}

// DecodeEntries decodes a sequence of OXM entries. An entry without a
// registered deserializer is kept in Match.Unsupported.
func (r *MatchCodec) DecodeEntries(data []byte) (openflow.Match, error) {
	var m openflow.Match

	table := r.registry.Deserializers.MatchEntries
	for len(data) > 0 {
		field, n, err := openflow.ReadOXMField(data)
		if err != nil {
			return openflow.Match{}, err
		}
		data = data[n:]

		key := field.Key(Version)
		d, ok := table.Lookup(key)
		if !ok {
			logger.Debugf("unsupported match entry: %v", key)
			m.Unsupported = append(m.Unsupported, field)
			continue
		}
		if err := d.Deserialize(field, &m); err != nil {
			return openflow.Match{}, errors.Wrap(err, key.String())
		}
	}

	return m, nil
}
