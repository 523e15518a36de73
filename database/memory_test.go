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

package database

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/superkkt/ofdriver/network"
	"github.com/superkkt/ofdriver/openflow"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
)

func newTestNode() network.Node {
	return network.Node{
		ID: "openflow:1",
		FlowCapable: &network.FlowCapableNode{
			Tables: []network.Table{
				{
					ID: 0,
					Flows: []network.Flow{
						{
							ID:       "web",
							TableID:  openflow.Ptr(uint8(0)),
							Priority: openflow.Ptr(uint16(100)),
							Cookie:   openflow.Ptr(uint64(0x1234)),
							Match: openflow.Match{
								InPort:  openflow.Ptr(uint32(3)),
								EthType: openflow.Ptr(uint16(0x0800)),
								IPv4Dst: &openflow.MaskedIP{
									IP:   net.IPv4(10, 0, 0, 0).To4(),
									Mask: net.CIDRMask(8, 32),
								},
								EthSrc: &openflow.MaskedMAC{
									Addr: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
								},
							},
							Instructions: []openflow.Instruction{
								{
									Type: 4,
									Actions: []openflow.Action{
										{Type: 0, Port: 2, MaxLen: 0xffff},
									},
								},
								{Type: 1, TableID: 2},
							},
							IdleTimeout: 30,
							Flags:       1,
						},
					},
				},
			},
		},
	}
}

func TestNodeEncoding(t *testing.T) {
	node := newTestNode()

	first, err := encodeNode(node)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	second, err := encodeNode(newTestNode())
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same node is encoded differently")
	}

	decoded, err := decodeNode(first)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !cmp.Equal(node, decoded) {
		t.Fatalf("unexpected decoded node: %v", cmp.Diff(node, decoded))
	}

	if _, err := decodeNode([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected a decode error for the malformed data")
	}
}

func TestMemory(t *testing.T) {
	db := NewMemory()
	ctx := context.Background()
	path := network.NodePath("openflow:1")

	if _, ok, err := db.Read(ctx, network.Configured, path); err != nil || ok {
		t.Fatalf("unexpected read result of the empty store: ok=%v, err=%v", ok, err)
	}

	node := newTestNode()
	if err := db.Write(ctx, network.Configured, path, node); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	// The partitions are separated.
	if _, ok, _ := db.Read(ctx, network.Operational, path); ok {
		t.Fatalf("node is found in the other partition")
	}

	v, ok, err := db.Read(ctx, network.Configured, path)
	if err != nil || !ok {
		t.Fatalf("unexpected read result: ok=%v, err=%v", ok, err)
	}
	if !cmp.Equal(node, v) {
		t.Fatalf("unexpected node: %v", cmp.Diff(node, v))
	}

	// Modifying the read node does not change the stored one.
	v.FlowCapable.Tables[0].Flows = nil
	again, _, _ := db.Read(ctx, network.Configured, path)
	if len(again.FlowCapable.Tables[0].Flows) != 1 {
		t.Fatalf("stored node is shared with the caller: %v", spew.Sdump(again))
	}

	if err := db.Delete(ctx, network.Configured, path); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, ok, _ := db.Read(ctx, network.Configured, path); ok {
		t.Fatalf("deleted node is found")
	}
	// Deleting an absent node is not an error.
	if err := db.Delete(ctx, network.Configured, path); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
}

func TestMemoryErrors(t *testing.T) {
	db := NewMemory()
	path := network.NodePath("openflow:1")

	unknown := network.Partition(7)
	if _, _, err := db.Read(context.Background(), unknown, path); err != ErrUnknownPartition {
		t.Fatalf("unexpected read error: %v", err)
	}
	if err := db.Write(context.Background(), unknown, path, network.Node{}); err != ErrUnknownPartition {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := db.Delete(context.Background(), unknown, path); err != ErrUnknownPartition {
		t.Fatalf("unexpected delete error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := db.Read(ctx, network.Configured, path); err != context.Canceled {
		t.Fatalf("unexpected read error: %v", err)
	}
	if err := db.Write(ctx, network.Configured, path, network.Node{}); err != context.Canceled {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := db.Delete(ctx, network.Configured, path); err != context.Canceled {
		t.Fatalf("unexpected delete error: %v", err)
	}
}

func TestValidatePartition(t *testing.T) {
	for _, p := range []network.Partition{network.Configured, network.Operational} {
		if err := validatePartition(p); err != nil {
			t.Fatalf("unexpected error for %v: %v", p, err)
		}
	}
	if err := validatePartition(network.Partition(-1)); err != ErrUnknownPartition {
		t.Fatalf("unexpected error: %v", err)
	}
}
