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

package of10

import (
	"bytes"
	"encoding/hex"
	"net"
	"testing"

	"github.com/superkkt/ofdriver/openflow"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestFeaturesReplyCodec(t *testing.T) {
	p, err := hex.DecodeString(
		"0106005000000002" +
			"0000000000000abc" + "00000100" + "02000000" + "000000c7" + "00000fff" +
			"0001" + "001122334455" + "65746830000000000000000000000000" +
			"00000000" + "00000001" + "000000c0" + "00000000" + "00000000" + "00000000",
	)
	if err != nil {
		panic("invalid sample packet")
	}
	expected := &FeaturesReply{
		Header:       openflow.NewHeader(Version, OFPT_FEATURES_REPLY, 2),
		DPID:         0xabc,
		NumBuffers:   256,
		NumTables:    2,
		Capabilities: 0xc7,
		Actions:      0xfff,
		Ports: []Port{
			{
				PortNo: 1,
				HWAddr: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
				Name:   "eth0",
				State:  1,
				Curr:   0xc0,
			},
		},
	}

	reg := openflow.NewRegistry()
	Inject(reg)
	codec := openflow.NewCodec(reg)

	msg, err := codec.Decode(p)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !cmp.Equal(msg, openflow.Message(expected)) {
		t.Fatalf("unexpected features reply: expected=%v, actual=%v", spew.Sdump(expected), spew.Sdump(msg))
	}

	m, err := codec.Encode(expected)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Equal(m, p) {
		t.Fatalf("unexpected encoded features reply: expected=%x, actual=%x", p, m)
	}
}

func TestFeaturesReplyInvalidLength(t *testing.T) {
	reg := openflow.NewRegistry()
	Inject(reg)
	codec := openflow.NewCodec(reg)

	// A partial port entry.
	p, _ := hex.DecodeString("0106002400000002" + "0000000000000abc" + "00000100" + "02000000" + "000000c7" + "00000fff" + "00010011")
	if _, err := codec.Decode(p); errors.Cause(err) != openflow.ErrInvalidPacketLength {
		t.Fatalf("unexpected error: expected=%v, actual=%v", openflow.ErrInvalidPacketLength, err)
	}
}

func TestUnsupportedMessage(t *testing.T) {
	reg := openflow.NewRegistry()
	Inject(reg)
	codec := openflow.NewCodec(reg)

	// OF1.0 FLOW_MOD has no codec.
	p, _ := hex.DecodeString("010e000800000001")
	if _, err := codec.Decode(p); errors.Cause(err) != openflow.ErrUnsupportedMessage {
		t.Fatalf("unexpected error: expected=%v, actual=%v", openflow.ErrUnsupportedMessage, err)
	}
	if _, err := codec.Encode(NewBarrierRequest(1)); err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
}
