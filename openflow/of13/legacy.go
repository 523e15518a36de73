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

	"github.com/superkkt/ofdriver/openflow"
)

// legacyFlowModCodec is the FLOW_MOD serializer for switches that cannot
// set VLAN_VID on untagged packets without an explicit PUSH_VLAN. A flow
// that does not match on VLAN and sets VLAN_VID in its APPLY_ACTIONS is
// split into two FLOW_MODs: one for untagged packets that pushes a tag
// first, and one for tagged packets.
type legacyFlowModCodec struct {
	*flowModCodec
}

func (r *legacyFlowModCodec) Serialize(msg openflow.Message, w *bytes.Buffer) error {
	v, ok := msg.(*FlowMod)
	if !ok {
		return openflow.ErrUnexpectedMessage
	}
	if v.Match.VLAN != nil || !setsVLAN(v.Instructions) {
		return r.flowModCodec.Serialize(v, w)
	}

	untagged := *v
	untagged.Match.VLAN = &openflow.VLANMatch{}
	untagged.Instructions = pushVLAN(v.Instructions)
	if err := r.flowModCodec.Serialize(&untagged, w); err != nil {
		return err
	}

	tagged := *v
	tagged.Match.VLAN = &openflow.VLANMatch{Present: true}

	return r.flowModCodec.Serialize(&tagged, w)
}

func isSetVLAN(act openflow.Action) bool {
	return act.Type == OFPAT_SET_FIELD && act.Field != nil && act.Field.VLAN != nil
}

func setsVLAN(ins []openflow.Instruction) bool {
	for _, v := range ins {
		if v.Type != OFPIT_APPLY_ACTIONS {
			continue
		}
		for _, act := range v.Actions {
			if isSetVLAN(act) {
				return true
			}
		}
	}

	return false
}

// pushVLAN returns a copy of ins in which every VLAN_VID SET_FIELD of
// APPLY_ACTIONS is preceded by a PUSH_VLAN.
func pushVLAN(ins []openflow.Instruction) []openflow.Instruction {
	result := make([]openflow.Instruction, 0, len(ins))
	for _, v := range ins {
		if v.Type != OFPIT_APPLY_ACTIONS {
			result = append(result, v)
			continue
		}

		actions := make([]openflow.Action, 0, len(v.Actions)+1)
		for _, act := range v.Actions {
			if isSetVLAN(act) {
				actions = append(actions, openflow.Action{Type: OFPAT_PUSH_VLAN, EtherType: OFP_VLAN_ETHER_TYPE})
			}
			actions = append(actions, act)
		}
		v.Actions = actions
		result = append(result, v)
	}

	return result
}

// InjectLegacyCodecs replaces the FLOW_MOD serializer with the VLAN
// splitting one.
func InjectLegacyCodecs(reg *openflow.Registry) {
	key := openflow.MessageKey(Version, OFPT_FLOW_MOD)
	reg.Serializers.Messages.Register(key, &legacyFlowModCodec{newFlowModCodec(reg)})
}

// RevertLegacyCodecs restores the FLOW_MOD serializer registered by Inject.
func RevertLegacyCodecs(reg *openflow.Registry) {
	reg.Serializers.Messages.Unregister(openflow.MessageKey(Version, OFPT_FLOW_MOD))
}
