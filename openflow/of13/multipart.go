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

type MultipartRequest struct {
	openflow.Header
	Flags uint16
	Body  openflow.MultipartBody
}

func NewMultipartRequest(xid uint32, body openflow.MultipartBody) *MultipartRequest {
	return &MultipartRequest{
		Header: openflow.NewHeader(Version, OFPT_MULTIPART_REQUEST, xid),
		Body:   body,
	}
}

type MultipartReply struct {
	openflow.Header
	Flags uint16
	Body  openflow.MultipartBody
}

// More reports whether more replies follow this one.
func (r *MultipartReply) More() bool {
	return r.Flags&OFPMPF_REPLY_MORE != 0
}

// multipartCodec serializes and deserializes MULTIPART_REQUEST or
// MULTIPART_REPLY by dispatching the body to the body codec registered for
// its multipart type.
type multipartCodec struct {
	reply    bool
	registry *openflow.Registry
}

func (r *multipartCodec) bodyKey(mpType uint16) openflow.Key {
	if r.reply {
		return openflow.MultipartReplyKey(Version, mpType)
	}

	return openflow.MultipartRequestKey(Version, mpType)
}

func (r *multipartCodec) Serialize(msg openflow.Message, w *bytes.Buffer) error {
	var flags uint16
	var body openflow.MultipartBody

	switch v := msg.(type) {
	case *MultipartRequest:
		if r.reply {
			return openflow.ErrUnexpectedMessage
		}
		flags, body = v.Flags, v.Body
	case *MultipartReply:
		if !r.reply {
			return openflow.ErrUnexpectedMessage
		}
		flags, body = v.Flags, v.Body
	default:
		return openflow.ErrUnexpectedMessage
	}
	if body == nil {
		return openflow.ErrUnexpectedMessage
	}

	table := r.registry.Serializers.MultipartRequests
	if r.reply {
		table = r.registry.Serializers.MultipartReplies
	}
	key := r.bodyKey(body.MultipartType())
	s, ok := table.Lookup(key)
	if !ok {
		return errors.Wrap(openflow.ErrUnsupportedMessage, key.String())
	}

	return openflow.Frame(w, msg, func() error {
		var hdr [8]byte
		binary.BigEndian.PutUint16(hdr[0:2], body.MultipartType())
		binary.BigEndian.PutUint16(hdr[2:4], flags)
		// hdr[4:8] is padding
		w.Write(hdr[:])
		return s.Serialize(body, w)
	})
}

func (r *multipartCodec) Deserialize(h openflow.Header, body []byte) (openflow.Message, error) {
	if len(body) < 8 {
		return nil, openflow.ErrInvalidPacketLength
	}
	mpType := binary.BigEndian.Uint16(body[0:2])
	flags := binary.BigEndian.Uint16(body[2:4])

	table := r.registry.Deserializers.MultipartRequests
	if r.reply {
		table = r.registry.Deserializers.MultipartReplies
	}
	key := r.bodyKey(mpType)
	d, ok := table.Lookup(key)
	if !ok {
		return nil, errors.Wrap(openflow.ErrUnsupportedMessage, key.String())
	}
	v, err := d.Deserialize(body[8:])
	if err != nil {
		return nil, errors.Wrap(err, key.String())
	}

	if r.reply {
		return &MultipartReply{Header: h, Flags: flags, Body: v}, nil
	}
	return &MultipartRequest{Header: h, Flags: flags, Body: v}, nil
}

// emptyBody is the codec of the request bodies that have no field.
type emptyBody struct {
	new func() openflow.MultipartBody
	is  func(openflow.MultipartBody) bool
}

func emptyBodyOf[T any, P interface {
	*T
	openflow.MultipartBody
}]() emptyBody {
	return emptyBody{
		new: func() openflow.MultipartBody { return P(new(T)) },
		is: func(b openflow.MultipartBody) bool {
			_, ok := b.(P)
			return ok
		},
	}
}

func (r emptyBody) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	if !r.is(body) {
		return openflow.ErrUnexpectedMessage
	}

	return nil
}

func (r emptyBody) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) != 0 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return r.new(), nil
}

type DescRequest struct{}

func (r *DescRequest) MultipartType() uint16 { return OFPMP_DESC }

type TableStatsRequest struct{}

func (r *TableStatsRequest) MultipartType() uint16 { return OFPMP_TABLE }

type GroupDescRequest struct{}

func (r *GroupDescRequest) MultipartType() uint16 { return OFPMP_GROUP_DESC }

type GroupFeaturesRequest struct{}

func (r *GroupFeaturesRequest) MultipartType() uint16 { return OFPMP_GROUP_FEATURES }

type MeterFeaturesRequest struct{}

func (r *MeterFeaturesRequest) MultipartType() uint16 { return OFPMP_METER_FEATURES }

type PortDescRequest struct{}

func (r *PortDescRequest) MultipartType() uint16 { return OFPMP_PORT_DESC }

// idBody is the codec of the request bodies that consist of a 32-bit ID
// followed by 4 bytes of padding.
type idBody struct {
	get func(openflow.MultipartBody) (uint32, bool)
	new func(id uint32) openflow.MultipartBody
}

func (r idBody) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	id, ok := r.get(body)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], id)
	// b[4:8] is padding
	w.Write(b[:])

	return nil
}

func (r idBody) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) != 8 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return r.new(binary.BigEndian.Uint32(body[0:4])), nil
}

type PortStatsRequest struct {
	PortNo uint32
}

func (r *PortStatsRequest) MultipartType() uint16 { return OFPMP_PORT_STATS }

type GroupStatsRequest struct {
	GroupID uint32
}

func (r *GroupStatsRequest) MultipartType() uint16 { return OFPMP_GROUP }

type MeterStatsRequest struct {
	MeterID uint32
}

func (r *MeterStatsRequest) MultipartType() uint16 { return OFPMP_METER }

type MeterConfigRequest struct {
	MeterID uint32
}

func (r *MeterConfigRequest) MultipartType() uint16 { return OFPMP_METER_CONFIG }

type QueueStatsRequest struct {
	PortNo  uint32
	QueueID uint32
}

func (r *QueueStatsRequest) MultipartType() uint16 { return OFPMP_QUEUE }

type queueStatsRequestCodec struct{}

func (queueStatsRequestCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	v, ok := body.(*QueueStatsRequest)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], v.PortNo)
	binary.BigEndian.PutUint32(b[4:8], v.QueueID)
	w.Write(b[:])

	return nil
}

func (queueStatsRequestCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) != 8 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return &QueueStatsRequest{
		PortNo:  binary.BigEndian.Uint32(body[0:4]),
		QueueID: binary.BigEndian.Uint32(body[4:8]),
	}, nil
}

// Experimenter is the experimenter multipart body of both requests and
// replies.
type Experimenter struct {
	Experimenter uint32
	ExpType      uint32
	Data         []byte
}

func (r *Experimenter) MultipartType() uint16 { return OFPMP_EXPERIMENTER }

type experimenterCodec struct{}

func (experimenterCodec) Serialize(body openflow.MultipartBody, w *bytes.Buffer) error {
	v, ok := body.(*Experimenter)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}

	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], v.Experimenter)
	binary.BigEndian.PutUint32(b[4:8], v.ExpType)
	w.Write(b[:])
	w.Write(v.Data)

	return nil
}

func (experimenterCodec) Deserialize(body []byte) (openflow.MultipartBody, error) {
	if len(body) < 8 {
		return nil, openflow.ErrInvalidPacketLength
	}

	v := &Experimenter{
		Experimenter: binary.BigEndian.Uint32(body[0:4]),
		ExpType:      binary.BigEndian.Uint32(body[4:8]),
	}
	if len(body) > 8 {
		v.Data = append([]byte(nil), body[8:]...)
	}

	return v, nil
}
