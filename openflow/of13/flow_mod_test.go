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
	"encoding/hex"
	"testing"

	"github.com/superkkt/ofdriver/openflow"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func setVLANAction(vid uint16) openflow.Action {
	return openflow.Action{
		Type:  OFPAT_SET_FIELD,
		Field: &openflow.Match{VLAN: &openflow.VLANMatch{ID: vid, Present: true}},
	}
}

func outputAction(port uint32) openflow.Action {
	return openflow.Action{Type: OFPAT_OUTPUT, Port: port, MaxLen: 0xffff}
}

func newTestFlowMod(xid uint32) *FlowMod {
	v := NewFlowMod(xid)
	v.Cookie = 0x1234
	v.TableID = 1
	v.Priority = 100
	v.IdleTimeout = 30
	v.Match = openflow.Match{
		InPort:  openflow.Ptr(uint32(3)),
		EthType: openflow.Ptr(uint16(0x0800)),
	}
	v.Instructions = []openflow.Instruction{
		{
			Type:    OFPIT_APPLY_ACTIONS,
			Actions: []openflow.Action{setVLANAction(100), outputAction(2)},
		},
		{Type: OFPIT_WRITE_METADATA, Metadata: 0xff, MetadataMask: 0xffff},
		{Type: OFPIT_GOTO_TABLE, TableID: 2},
	}

	return v
}

// decodeAll decodes every message in the packet.
func decodeAll(t *testing.T, codec *openflow.Codec, packet []byte) []openflow.Message {
	var result []openflow.Message
	for len(packet) > 0 {
		h, err := openflow.ParseHeader(packet)
		if err != nil {
			t.Fatalf("unexpected header error: %v", err)
		}
		msg, err := codec.Decode(packet)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		result = append(result, msg)
		packet = packet[h.Length():]
	}

	return result
}

func TestFlowModCodec(t *testing.T) {
	codec := openflow.NewCodec(newTestRegistry())
	flow := newTestFlowMod(7)

	packet, err := codec.Encode(flow)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	// header(8) + body(40) + match(24) + apply(8+16+16) + metadata(24) + goto(8)
	if len(packet) != 144 {
		t.Fatalf("unexpected packet length: expected=144, actual=%v", len(packet))
	}

	msgs := decodeAll(t, codec, packet)
	if len(msgs) != 1 {
		t.Fatalf("unexpected number of messages: %v", len(msgs))
	}
	if !cmp.Equal(msgs[0], openflow.Message(flow)) {
		t.Fatalf("unexpected decoded flow mod: diff=%v", cmp.Diff(openflow.Message(flow), msgs[0]))
	}
}

func TestFlowModKeepsUnknownInstructions(t *testing.T) {
	codec := openflow.NewCodec(newTestRegistry())

	unknownInstruction, _ := hex.DecodeString("0007000800000001")
	unknownAction, _ := hex.DecodeString("ffff0010000023200102030405060708")
	flow := newTestFlowMod(3)
	flow.Instructions = append(flow.Instructions,
		openflow.Instruction{
			Type:         OFPIT_EXPERIMENTER,
			Experimenter: 0x2320,
			Data:         []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		},
		openflow.Instruction{Type: 7, Raw: unknownInstruction},
		openflow.Instruction{
			Type:    OFPIT_WRITE_ACTIONS,
			Actions: []openflow.Action{{Type: OFPAT_EXPERIMENTER, Raw: unknownAction}},
		},
	)

	packet, err := codec.Encode(flow)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Contains(packet, unknownInstruction) || !bytes.Contains(packet, unknownAction) {
		t.Fatalf("unknown TLVs are not written back: %x", packet)
	}

	msgs := decodeAll(t, codec, packet)
	if len(msgs) != 1 {
		t.Fatalf("unexpected number of messages: %v", len(msgs))
	}
	if !cmp.Equal(msgs[0], openflow.Message(flow)) {
		t.Fatalf("unexpected decoded flow mod: diff=%v", cmp.Diff(openflow.Message(flow), msgs[0]))
	}

	// Re-encoding the decoded message gives the same bytes.
	again, err := codec.Encode(msgs[0])
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Equal(again, packet) {
		t.Fatalf("unexpected re-encoded packet: expected=%x, actual=%x", packet, again)
	}
}

func TestFlowModMissingInstructionCodec(t *testing.T) {
	codec := openflow.NewCodec(newTestRegistry())
	flow := newTestFlowMod(4)
	// Neither a codec nor the raw TLV.
	flow.Instructions = []openflow.Instruction{{Type: 7}}

	if _, err := codec.Encode(flow); errors.Cause(err) != openflow.ErrMissingCodec {
		t.Fatalf("unexpected encode error: %v", err)
	}
}

func TestLegacyFlowModSplit(t *testing.T) {
	reg := newTestRegistry()
	codec := openflow.NewCodec(reg)
	InjectLegacyCodecs(reg)

	flow := newTestFlowMod(9)
	flow.Match.VLAN = nil
	original := spew.Sdump(flow)

	packet, err := codec.Encode(flow)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if spew.Sdump(flow) != original {
		t.Fatalf("flow mod is modified by the legacy serializer: %v", spew.Sdump(flow))
	}

	msgs := decodeAll(t, codec, packet)
	if len(msgs) != 2 {
		t.Fatalf("unexpected number of messages: expected=2, actual=%v", len(msgs))
	}

	untagged := *flow
	untagged.Match.VLAN = &openflow.VLANMatch{}
	untagged.Instructions = []openflow.Instruction{
		{
			Type: OFPIT_APPLY_ACTIONS,
			Actions: []openflow.Action{
				{Type: OFPAT_PUSH_VLAN, EtherType: OFP_VLAN_ETHER_TYPE},
				setVLANAction(100),
				outputAction(2),
			},
		},
		flow.Instructions[1],
		flow.Instructions[2],
	}
	if !cmp.Equal(msgs[0], openflow.Message(&untagged)) {
		t.Fatalf("unexpected untagged flow mod: diff=%v", cmp.Diff(openflow.Message(&untagged), msgs[0]))
	}

	tagged := *flow
	tagged.Match.VLAN = &openflow.VLANMatch{Present: true}
	if !cmp.Equal(msgs[1], openflow.Message(&tagged)) {
		t.Fatalf("unexpected tagged flow mod: diff=%v", cmp.Diff(openflow.Message(&tagged), msgs[1]))
	}

	// Both share the transaction ID of the original.
	for _, v := range msgs {
		if v.TransactionID() != 9 {
			t.Fatalf("unexpected transaction ID: %v", v.TransactionID())
		}
	}
}

func TestLegacyFlowModPassThrough(t *testing.T) {
	reg := newTestRegistry()
	codec := openflow.NewCodec(reg)
	InjectLegacyCodecs(reg)

	vlanMatched := newTestFlowMod(1)
	vlanMatched.Match.VLAN = &openflow.VLANMatch{ID: 10, Present: true}

	writeActions := newTestFlowMod(2)
	writeActions.Instructions[0].Type = OFPIT_WRITE_ACTIONS

	noVLAN := newTestFlowMod(3)
	noVLAN.Instructions[0].Actions = []openflow.Action{outputAction(2)}

	for _, flow := range []*FlowMod{vlanMatched, writeActions, noVLAN} {
		packet, err := codec.Encode(flow)
		if err != nil {
			t.Fatalf("unexpected encode error: %v", err)
		}
		if msgs := decodeAll(t, codec, packet); len(msgs) != 1 {
			t.Fatalf("unexpected number of messages for %v: %v", spew.Sdump(flow), len(msgs))
		}
	}
}

func TestRevertLegacyCodecs(t *testing.T) {
	reg := newTestRegistry()
	codec := openflow.NewCodec(reg)
	flow := newTestFlowMod(1)

	InjectLegacyCodecs(reg)
	legacy, err := codec.Encode(flow)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	RevertLegacyCodecs(reg)
	standard, err := codec.Encode(flow)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	if len(decodeAll(t, codec, legacy)) != 2 || len(decodeAll(t, codec, standard)) != 1 {
		t.Fatalf("legacy serializer is not reverted")
	}
}

func TestFeaturesReplyCodec(t *testing.T) {
	p, _ := hex.DecodeString("0406002000000001000000000000000100000100fe00000000000047" + "00000000")
	expected := &FeaturesReply{
		Header:       openflow.NewHeader(Version, OFPT_FEATURES_REPLY, 1),
		DPID:         1,
		NumBuffers:   256,
		NumTables:    254,
		Capabilities: 0x47,
	}

	codec := openflow.NewCodec(newTestRegistry())
	msg, err := codec.Decode(p)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !cmp.Equal(msg, openflow.Message(expected)) {
		t.Fatalf("unexpected features reply: diff=%v", cmp.Diff(openflow.Message(expected), msg))
	}

	m, err := codec.Encode(expected)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Equal(m, p) {
		t.Fatalf("unexpected encoded features reply: expected=%x, actual=%x", p, m)
	}
}

func TestFlowRemovedCodec(t *testing.T) {
	expected := &FlowRemoved{
		Header:      openflow.NewHeader(Version, OFPT_FLOW_REMOVED, 3),
		Cookie:      0xabcd,
		Priority:    10,
		Reason:      OFPRR_DELETE,
		TableID:     4,
		DurationSec: 60,
		PacketCount: 1000,
		ByteCount:   64000,
		Match:       openflow.Match{IPProto: openflow.Ptr(uint8(6))},
	}

	codec := openflow.NewCodec(newTestRegistry())
	packet, err := codec.Encode(expected)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	msg, err := codec.Decode(packet)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !cmp.Equal(msg, openflow.Message(expected)) {
		t.Fatalf("unexpected flow removed: diff=%v", cmp.Diff(openflow.Message(expected), msg))
	}
}
