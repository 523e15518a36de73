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

package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of10"
	"github.com/superkkt/ofdriver/openflow/of13"
	"github.com/superkkt/ofdriver/openflow/transceiver"

	"github.com/davecgh/go-spew/spew"
)

type testSwitch struct {
	t      *testing.T
	codec  *openflow.Codec
	stream *transceiver.Stream
}

func (r *testSwitch) send(msg openflow.Message) {
	p, err := r.codec.Encode(msg)
	if err != nil {
		r.t.Fatalf("unexpected encode error: %v", err)
	}
	if _, err := r.stream.Write(p); err != nil {
		r.t.Fatalf("unexpected write error: %v", err)
	}
}

func (r *testSwitch) receive() openflow.Message {
	p, err := r.stream.ReadPacket()
	if err != nil {
		r.t.Fatalf("unexpected read error: %v", err)
	}
	msg, err := r.codec.Decode(p)
	if err != nil {
		r.t.Fatalf("unexpected decode error: %v", err)
	}

	return msg
}

func (r *testSwitch) expect(msgType uint8) openflow.Message {
	msg := r.receive()
	if msg.Type() != msgType {
		r.t.Fatalf("unexpected message: expected type=%v, actual=%v", msgType, spew.Sdump(msg))
	}

	return msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: %v", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newTestController(store Store) *Controller {
	reg := openflow.NewRegistry()
	of10.Inject(reg)
	of13.Inject(reg)

	return NewController(openflow.NewCodec(reg), store)
}

func connect(t *testing.T, ctx context.Context, controller *Controller) *testSwitch {
	server, client := net.Pipe()
	controller.AddConnection(ctx, server)

	stream := transceiver.NewStream(client, streamBufferSize)
	stream.SetReadTimeout(5 * time.Second)
	stream.SetWriteTimeout(5 * time.Second)

	return &testSwitch{t: t, codec: controller.codec, stream: stream}
}

func TestSessionOF13(t *testing.T) {
	store := newFakeStore()
	controller := newTestController(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sw := connect(t, ctx, controller)
	sw.send(of13.NewHello(1))
	sw.expect(of13.OFPT_HELLO)
	req := sw.expect(of13.OFPT_FEATURES_REQUEST)
	sw.expect(of13.OFPT_BARRIER_REQUEST)

	sw.send(&of13.FeaturesReply{
		Header:     openflow.NewHeader(of13.Version, of13.OFPT_FEATURES_REPLY, req.TransactionID()),
		DPID:       0x20,
		NumBuffers: 256,
		NumTables:  254,
	})

	// The flow statistics are requested once the registry is filled.
	stats, ok := sw.expect(of13.OFPT_MULTIPART_REQUEST).(*of13.MultipartRequest)
	if !ok {
		t.Fatalf("unexpected multipart request: %v", spew.Sdump(stats))
	}
	if _, ok := stats.Body.(*of13.FlowStatsRequest); !ok {
		t.Fatalf("unexpected multipart body: %v", spew.Sdump(stats.Body))
	}
	device := controller.Device("openflow:32")
	if device == nil {
		t.Fatalf("device is not registered")
	}

	sw.send(&of13.MultipartReply{
		Header: openflow.NewHeader(of13.Version, of13.OFPT_MULTIPART_REPLY, stats.TransactionID()),
		Body: &of13.FlowStatsReply{
			Flows: []of13.FlowStats{
				{TableID: 0, Priority: 10, Match: openflow.Match{EthType: openflow.Ptr(uint16(0x88cc))}},
			},
		},
	})
	waitFor(t, "operational node", func() bool {
		_, ok := store.node(Operational, NodePath("openflow:32"))
		return ok
	})
	if device.Registry().Len() != 1 {
		t.Fatalf("unexpected registry length: %v", device.Registry().Len())
	}

	cancel()
	waitFor(t, "device removal", func() bool { return controller.Device("openflow:32") == nil })
	if !device.IsClosed() {
		t.Fatalf("device is not closed after the disconnection")
	}
}

func TestSessionOF10(t *testing.T) {
	controller := newTestController(newFakeStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sw := connect(t, ctx, controller)
	sw.send(of10.NewHello(1))
	sw.expect(of10.OFPT_HELLO)
	req := sw.expect(of10.OFPT_FEATURES_REQUEST)
	sw.expect(of10.OFPT_BARRIER_REQUEST)

	sw.send(&of10.FeaturesReply{
		Header:     openflow.NewHeader(openflow.OF10_VERSION, of10.OFPT_FEATURES_REPLY, req.TransactionID()),
		DPID:       0x30,
		NumBuffers: 256,
		NumTables:  1,
	})
	waitFor(t, "device registration", func() bool { return controller.Device("openflow:48") != nil })
	if controller.Device("openflow:48").Registry() != nil {
		t.Fatalf("OpenFlow 1.0 device has a flow registry")
	}
}
