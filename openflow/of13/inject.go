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
	"github.com/superkkt/ofdriver/openflow"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("of13")
)

type messageCodec interface {
	openflow.MessageSerializer
	openflow.MessageDeserializer
}

type multipartBodyCodec interface {
	openflow.MultipartSerializer
	openflow.MultipartDeserializer
}

// InjectMessageCodecs registers the OpenFlow 1.3 message codecs.
func InjectMessageCodecs(reg *openflow.Registry) {
	match := NewMatchCodec(reg)
	codecs := map[uint8]messageCodec{
		OFPT_HELLO:             openflow.HelloCodec{},
		OFPT_ERROR:             openflow.ErrorCodec{},
		OFPT_ECHO_REQUEST:      openflow.EchoRequestCodec{},
		OFPT_ECHO_REPLY:        openflow.EchoReplyCodec{},
		OFPT_FEATURES_REQUEST:  openflow.EmptyCodec{},
		OFPT_FEATURES_REPLY:    featuresReplyCodec{},
		OFPT_FLOW_REMOVED:      &flowRemovedCodec{match: match},
		OFPT_FLOW_MOD:          newFlowModCodec(reg),
		OFPT_MULTIPART_REQUEST: &multipartCodec{registry: reg},
		OFPT_MULTIPART_REPLY:   &multipartCodec{reply: true, registry: reg},
		OFPT_BARRIER_REQUEST:   openflow.EmptyCodec{},
		OFPT_BARRIER_REPLY:     openflow.EmptyCodec{},
	}
	for typ, codec := range codecs {
		key := openflow.MessageKey(Version, typ)
		reg.Serializers.Messages.Register(key, codec)
		reg.Deserializers.Messages.Register(key, codec)
	}
}

// InjectMatchEntryCodecs registers the codecs of the OXM fields.
func InjectMatchEntryCodecs(reg *openflow.Registry) {
	for _, v := range matchFields() {
		reg.Serializers.MatchEntries.Register(v.key(), v)
		reg.Deserializers.MatchEntries.Register(v.key(), v)
	}
}

// InjectMultipartCodecs registers the multipart request and reply body
// codecs.
func InjectMultipartCodecs(reg *openflow.Registry) {
	match := NewMatchCodec(reg)

	requests := map[uint16]multipartBodyCodec{
		OFPMP_DESC:      emptyBodyOf[DescRequest](),
		OFPMP_FLOW:      &flowRequestCodec{match: match},
		OFPMP_AGGREGATE: &flowRequestCodec{aggregate: true, match: match},
		OFPMP_TABLE:     emptyBodyOf[TableStatsRequest](),
		OFPMP_PORT_STATS: idBody{
			get: func(b openflow.MultipartBody) (uint32, bool) {
				v, ok := b.(*PortStatsRequest)
				if !ok {
					return 0, false
				}
				return v.PortNo, true
			},
			new: func(id uint32) openflow.MultipartBody { return &PortStatsRequest{PortNo: id} },
		},
		OFPMP_QUEUE: queueStatsRequestCodec{},
		OFPMP_GROUP: idBody{
			get: func(b openflow.MultipartBody) (uint32, bool) {
				v, ok := b.(*GroupStatsRequest)
				if !ok {
					return 0, false
				}
				return v.GroupID, true
			},
			new: func(id uint32) openflow.MultipartBody { return &GroupStatsRequest{GroupID: id} },
		},
		OFPMP_GROUP_DESC:     emptyBodyOf[GroupDescRequest](),
		OFPMP_GROUP_FEATURES: emptyBodyOf[GroupFeaturesRequest](),
		OFPMP_METER: idBody{
			get: func(b openflow.MultipartBody) (uint32, bool) {
				v, ok := b.(*MeterStatsRequest)
				if !ok {
					return 0, false
				}
				return v.MeterID, true
			},
			new: func(id uint32) openflow.MultipartBody { return &MeterStatsRequest{MeterID: id} },
		},
		OFPMP_METER_CONFIG: idBody{
			get: func(b openflow.MultipartBody) (uint32, bool) {
				v, ok := b.(*MeterConfigRequest)
				if !ok {
					return 0, false
				}
				return v.MeterID, true
			},
			new: func(id uint32) openflow.MultipartBody { return &MeterConfigRequest{MeterID: id} },
		},
		OFPMP_METER_FEATURES: emptyBodyOf[MeterFeaturesRequest](),
		OFPMP_PORT_DESC:      emptyBodyOf[PortDescRequest](),
		OFPMP_EXPERIMENTER:   experimenterCodec{},
	}
	for typ, codec := range requests {
		key := openflow.MultipartRequestKey(Version, typ)
		reg.Serializers.MultipartRequests.Register(key, codec)
		reg.Deserializers.MultipartRequests.Register(key, codec)
	}

	replies := map[uint16]multipartBodyCodec{
		OFPMP_DESC:         descReplyCodec{},
		OFPMP_FLOW:         &flowStatsReplyCodec{registry: reg, match: match},
		OFPMP_AGGREGATE:    aggregateStatsReplyCodec{},
		OFPMP_TABLE:        tableStatsReplyCodec(),
		OFPMP_PORT_STATS:   portStatsReplyCodec(),
		OFPMP_QUEUE:        queueStatsReplyCodec(),
		OFPMP_GROUP:        groupStatsReplyCodec{},
		OFPMP_PORT_DESC:    portDescReplyCodec(),
		OFPMP_EXPERIMENTER: experimenterCodec{},
	}
	for typ, codec := range replies {
		key := openflow.MultipartReplyKey(Version, typ)
		reg.Serializers.MultipartReplies.Register(key, codec)
		reg.Deserializers.MultipartReplies.Register(key, codec)
	}
}

// Inject registers every OpenFlow 1.3 codec and seals the registry, so that
// the legacy codecs can be reverted to this baseline later. Codecs of other
// versions should be registered before calling Inject.
func Inject(reg *openflow.Registry) {
	InjectMessageCodecs(reg)
	InjectMatchEntryCodecs(reg)
	InjectInstructionCodecs(reg)
	InjectMultipartCodecs(reg)
	reg.Seal()
}
