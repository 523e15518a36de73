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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of13"
	"github.com/superkkt/ofdriver/openflow/transceiver"

	"github.com/davecgh/go-spew/spew"
)

type fakeWriter struct {
	mutex    sync.Mutex
	version  uint8
	xid      uint32
	messages []openflow.Message
}

func (r *fakeWriter) Version() uint8 {
	return r.version
}

func (r *fakeWriter) NewTransactionID() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.xid++
	return r.xid
}

func (r *fakeWriter) Write(msg openflow.Message) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeWriter) sent() []openflow.Message {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]openflow.Message(nil), r.messages...)
}

func newTestDevice(version uint8) (*Device, *fakeWriter, *fakeStore) {
	w := &fakeWriter{version: version}
	store := newFakeStore()

	return newDevice(w, transceiver.Features{DPID: 0x10, NumTables: 4}, store, newTestKeyFactory()), w, store
}

func flowStats(more bool, flows ...of13.FlowStats) *of13.MultipartReply {
	v := &of13.MultipartReply{
		Header: openflow.NewHeader(of13.Version, of13.OFPT_MULTIPART_REPLY, 1),
		Body:   &of13.FlowStatsReply{Flows: flows},
	}
	if more {
		v.Flags = of13.OFPMPF_REPLY_MORE
	}

	return v
}

func TestNodeID(t *testing.T) {
	if v := NodeID(0x10); v != "openflow:16" {
		t.Fatalf("unexpected node ID: %v", v)
	}
	if v := NodePath(NodeID(1)); v != "/nodes/node/openflow:1" {
		t.Fatalf("unexpected node path: %v", v)
	}
}

func TestInstallFlow(t *testing.T) {
	device, w, store := newTestDevice(openflow.OF13_VERSION)
	ctx := context.Background()

	flow := Flow{
		ID:       "web",
		TableID:  openflow.Ptr(uint8(1)),
		Priority: openflow.Ptr(uint16(100)),
		Match:    openflow.Match{InPort: openflow.Ptr(uint32(3))},
	}
	id, err := device.InstallFlow(ctx, flow)
	if err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}
	if id != "web" {
		t.Fatalf("unexpected flow ID: %v", id)
	}

	sent := w.sent()
	if len(sent) != 1 {
		t.Fatalf("unexpected number of sent messages: %v", len(sent))
	}
	msg, ok := sent[0].(*of13.FlowMod)
	if !ok {
		t.Fatalf("unexpected message: %v", spew.Sdump(sent[0]))
	}
	if msg.Command != of13.OFPFC_ADD || msg.TableID != 1 || msg.Priority != 100 || msg.Flags&of13.OFPFF_SEND_FLOW_REM == 0 {
		t.Fatalf("unexpected FLOW_MOD: %v", spew.Sdump(msg))
	}

	node, ok := store.node(Configured, NodePath(device.ID()))
	if !ok || node.FlowCapable == nil || len(node.FlowCapable.Tables) != 1 {
		t.Fatalf("unexpected configured node: %v", spew.Sdump(node))
	}
	table := node.FlowCapable.Tables[0]
	if table.ID != 1 || len(table.Flows) != 1 || table.Flows[0].ID != "web" {
		t.Fatalf("unexpected configured table: %v", spew.Sdump(table))
	}

	// Same flow while the first one is in progress.
	id, err = device.InstallFlow(ctx, flow)
	if err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}
	if id != "web" || len(w.sent()) != 1 {
		t.Fatalf("flow in progress is sent again: id=%v, sent=%v", id, len(w.sent()))
	}

	// Flow without an ID and with the default table and priority.
	id, err = device.InstallFlow(ctx, Flow{Match: openflow.Match{EthType: openflow.Ptr(uint16(0x0806))}})
	if err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}
	if table, _ := parseAlienID(t, id); table != 0 {
		t.Fatalf("unexpected alien ID: %v", id)
	}
	if len(w.sent()) != 2 {
		t.Fatalf("unexpected number of sent messages: %v", len(w.sent()))
	}
	if msg := w.sent()[1].(*of13.FlowMod); msg.Priority != of13.OFP_DEFAULT_PRIORITY || msg.TableID != 0 {
		t.Fatalf("unexpected FLOW_MOD: %v", spew.Sdump(msg))
	}
	if device.Registry().Len() != 2 {
		t.Fatalf("unexpected registry length: %v", device.Registry().Len())
	}
}

// copyingStore hands out deep copies of the stored nodes, like a store
// backed by a database does, and yields between a read and the next call.
type copyingStore struct {
	*fakeStore
}

func (r copyingStore) Read(ctx context.Context, p Partition, path string) (Node, bool, error) {
	node, ok, err := r.fakeStore.Read(ctx, p, path)
	if err != nil || !ok || node.FlowCapable == nil {
		return node, ok, err
	}

	tables := make([]Table, len(node.FlowCapable.Tables))
	for i, v := range node.FlowCapable.Tables {
		tables[i] = Table{ID: v.ID, Flows: append([]Flow(nil), v.Flows...)}
	}
	node.FlowCapable = &FlowCapableNode{Tables: tables}
	time.Sleep(time.Millisecond)

	return node, ok, nil
}

func TestInstallFlowConcurrently(t *testing.T) {
	w := &fakeWriter{version: openflow.OF13_VERSION}
	store := newFakeStore()
	device := newDevice(w, transceiver.Features{DPID: 0x10, NumTables: 4}, copyingStore{store}, newTestKeyFactory())

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := device.InstallFlow(context.Background(), Flow{
				ID:       fmt.Sprintf("flow-%v", i),
				TableID:  openflow.Ptr(uint8(0)),
				Priority: openflow.Ptr(uint16(100 + i)),
				Match:    openflow.Match{InPort: openflow.Ptr(uint32(i + 1))},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected install error: %v", err)
		}
	}

	node, ok := store.node(Configured, NodePath(device.ID()))
	if !ok || node.FlowCapable == nil || len(node.FlowCapable.Tables) != 1 {
		t.Fatalf("unexpected configured node: %v", spew.Sdump(node))
	}
	found := make(map[string]bool)
	for _, v := range node.FlowCapable.Tables[0].Flows {
		found[v.ID] = true
	}
	for i := 0; i < n; i++ {
		if id := fmt.Sprintf("flow-%v", i); !found[id] {
			t.Fatalf("flow %v is lost from the configured node: %v of %v flows stored", id, len(found), n)
		}
	}
	if len(w.sent()) != n {
		t.Fatalf("unexpected number of sent messages: %v", len(w.sent()))
	}
}

func TestOnFlowStats(t *testing.T) {
	device, _, store := newTestDevice(openflow.OF13_VERSION)
	ctx := context.Background()

	id, err := device.InstallFlow(ctx, Flow{
		ID:       "web",
		TableID:  openflow.Ptr(uint8(1)),
		Priority: openflow.Ptr(uint16(100)),
		Match:    openflow.Match{InPort: openflow.Ptr(uint32(3))},
	})
	if err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}

	known := of13.FlowStats{TableID: 1, Priority: 100, Match: openflow.Match{InPort: openflow.Ptr(uint32(3))}}
	alien := of13.FlowStats{TableID: 2, Priority: 7, Cookie: 0xab}
	if err := device.OnFlowStats(ctx, flowStats(true, known)); err != nil {
		t.Fatalf("unexpected flow stats error: %v", err)
	}
	if _, ok := store.node(Operational, NodePath(device.ID())); ok {
		t.Fatalf("operational node is written before the last reply")
	}
	if err := device.OnFlowStats(ctx, flowStats(false, alien)); err != nil {
		t.Fatalf("unexpected flow stats error: %v", err)
	}

	node, ok := store.node(Operational, NodePath(device.ID()))
	if !ok || node.ID != device.ID() {
		t.Fatalf("unexpected operational node: %v", spew.Sdump(node))
	}
	tables := node.FlowCapable.Tables
	if len(tables) != 2 || tables[0].ID != 1 || tables[1].ID != 2 {
		t.Fatalf("unexpected operational tables: %v", spew.Sdump(tables))
	}
	if tables[0].Flows[0].ID != id {
		t.Fatalf("registered flow ID is not reused: %v", tables[0].Flows[0].ID)
	}
	if table, _ := parseAlienID(t, tables[1].Flows[0].ID); table != 2 {
		t.Fatalf("unexpected alien ID: %v", tables[1].Flows[0].ID)
	}
	if *tables[1].Flows[0].Cookie != 0xab {
		t.Fatalf("unexpected cookie: %v", spew.Sdump(tables[1].Flows[0]))
	}
}

func TestOnFlowStatsUnexpectedBody(t *testing.T) {
	device, _, _ := newTestDevice(openflow.OF13_VERSION)

	reply := &of13.MultipartReply{Body: &of13.AggregateStatsReply{}}
	if err := device.OnFlowStats(context.Background(), reply); err == nil {
		t.Fatalf("expected an error for the aggregate reply")
	}
}

func TestRemoveFlow(t *testing.T) {
	device, w, store := newTestDevice(openflow.OF13_VERSION)
	ctx := context.Background()

	flow := Flow{
		ID:       "web",
		TableID:  openflow.Ptr(uint8(1)),
		Priority: openflow.Ptr(uint16(100)),
		Match:    openflow.Match{InPort: openflow.Ptr(uint32(3))},
	}
	if _, err := device.InstallFlow(ctx, flow); err != nil {
		t.Fatalf("unexpected install error: %v", err)
	}
	if err := device.RemoveFlow(ctx, flow); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}

	sent := w.sent()
	if msg := sent[len(sent)-1].(*of13.FlowMod); msg.Command != of13.OFPFC_DELETE_STRICT {
		t.Fatalf("unexpected FLOW_MOD: %v", spew.Sdump(msg))
	}
	node, _ := store.node(Configured, NodePath(device.ID()))
	if len(node.FlowCapable.Tables[0].Flows) != 0 {
		t.Fatalf("removed flow remains in the configured node: %v", spew.Sdump(node))
	}

	key := mustKey(t, device.keys, withDefaults(flow))
	if _, ok := device.Registry().RetrieveDescriptor(key); !ok {
		t.Fatalf("descriptor is purged before the flow statistics")
	}
	if err := device.OnFlowStats(ctx, flowStats(false)); err != nil {
		t.Fatalf("unexpected flow stats error: %v", err)
	}
	if _, ok := device.Registry().RetrieveDescriptor(key); ok {
		t.Fatalf("descriptor is not purged after the flow statistics")
	}
}

func TestOnFlowRemoved(t *testing.T) {
	device, _, _ := newTestDevice(openflow.OF13_VERSION)
	ctx := context.Background()

	if err := device.OnFlowStats(ctx, flowStats(false, of13.FlowStats{TableID: 0, Priority: 5})); err != nil {
		t.Fatalf("unexpected flow stats error: %v", err)
	}
	if device.Registry().Len() != 1 {
		t.Fatalf("unexpected registry length: %v", device.Registry().Len())
	}

	removed := &of13.FlowRemoved{
		Header:   openflow.NewHeader(of13.Version, of13.OFPT_FLOW_REMOVED, 0),
		Priority: 5,
		Reason:   of13.OFPRR_IDLE_TIMEOUT,
	}
	if err := device.OnFlowRemoved(removed); err != nil {
		t.Fatalf("unexpected flow removed error: %v", err)
	}
	if err := device.OnFlowStats(ctx, flowStats(false)); err != nil {
		t.Fatalf("unexpected flow stats error: %v", err)
	}
	if device.Registry().Len() != 0 {
		t.Fatalf("removed flow is not purged: %v", spew.Sdump(device.Registry().AllFlowDescriptors()))
	}
}

func TestRequestFlowStats(t *testing.T) {
	device, w, _ := newTestDevice(openflow.OF13_VERSION)

	if err := device.RequestFlowStats(); err != nil {
		t.Fatalf("unexpected request error: %v", err)
	}
	sent := w.sent()
	if len(sent) != 1 {
		t.Fatalf("unexpected number of sent messages: %v", len(sent))
	}
	req, ok := sent[0].(*of13.MultipartRequest)
	if !ok {
		t.Fatalf("unexpected message: %v", spew.Sdump(sent[0]))
	}
	body, ok := req.Body.(*of13.FlowStatsRequest)
	if !ok || body.TableID != of13.OFPTT_ALL || body.OutPort != of13.OFPP_ANY || body.OutGroup != of13.OFPG_ANY {
		t.Fatalf("unexpected flow stats request: %v", spew.Sdump(req))
	}
}

func TestDeviceNotFlowCapable(t *testing.T) {
	device, w, _ := newTestDevice(openflow.OF10_VERSION)
	ctx := context.Background()

	if device.Registry() != nil {
		t.Fatalf("OpenFlow 1.0 device has a flow registry")
	}
	if _, err := device.InstallFlow(ctx, Flow{}); err != ErrNotFlowCapable {
		t.Fatalf("unexpected install error: %v", err)
	}
	if err := device.RemoveFlow(ctx, Flow{}); err != ErrNotFlowCapable {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if err := device.RequestFlowStats(); err != ErrNotFlowCapable {
		t.Fatalf("unexpected request error: %v", err)
	}
	if err := device.OnFlowStats(ctx, flowStats(false)); err != ErrNotFlowCapable {
		t.Fatalf("unexpected flow stats error: %v", err)
	}
	if len(w.sent()) != 0 {
		t.Fatalf("unexpected sent messages: %v", spew.Sdump(w.sent()))
	}
}

func TestDeviceClose(t *testing.T) {
	device, w, _ := newTestDevice(openflow.OF13_VERSION)

	if err := device.OnFlowStats(context.Background(), flowStats(false, of13.FlowStats{Priority: 1})); err != nil {
		t.Fatalf("unexpected flow stats error: %v", err)
	}
	device.Close()
	device.Close()

	if !device.IsClosed() {
		t.Fatalf("device is not closed")
	}
	if err := device.SendMessage(of13.NewBarrierRequest(w.NewTransactionID())); err != ErrClosedDevice {
		t.Fatalf("unexpected send error: %v", err)
	}
	if device.Registry().State() != RegistryClosed || device.Registry().Len() != 0 {
		t.Fatalf("registry is not closed: state=%v, length=%v", device.Registry().State(), device.Registry().Len())
	}
}

func TestControllerAddDevice(t *testing.T) {
	reg := openflow.NewRegistry()
	of13.Inject(reg)
	store := newFakeStore()
	controller := NewController(openflow.NewCodec(reg), store)

	w := &fakeWriter{version: openflow.OF13_VERSION}
	device := newDevice(w, transceiver.Features{DPID: 1}, store, controller.keys)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := controller.AddDevice(ctx, device); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	if err := controller.AddDevice(ctx, device); err != ErrDuplicatedDevice {
		t.Fatalf("unexpected duplicated add error: %v", err)
	}
	if controller.Device("openflow:1") != device || len(controller.Devices()) != 1 {
		t.Fatalf("device is not registered")
	}

	// The flow statistics are requested after the registry is filled.
	deadline := time.Now().Add(5 * time.Second)
	for len(w.sent()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("flow statistics are not requested")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := w.sent()[0].(*of13.MultipartRequest); !ok {
		t.Fatalf("unexpected message: %v", spew.Sdump(w.sent()[0]))
	}
	if device.Registry().State() != RegistryPopulated {
		t.Fatalf("unexpected registry state: %v", device.Registry().State())
	}

	controller.RemoveDevice(device)
	if controller.Device("openflow:1") != nil || !device.IsClosed() {
		t.Fatalf("device is not removed")
	}
}

func TestControllerFillFailure(t *testing.T) {
	reg := openflow.NewRegistry()
	of13.Inject(reg)
	store := newFakeStore()
	store.err = errors.New("timeout")
	controller := NewController(openflow.NewCodec(reg), store)

	w := &fakeWriter{version: openflow.OF13_VERSION}
	device := newDevice(w, transceiver.Features{DPID: 2}, store, controller.keys)
	if err := controller.AddDevice(context.Background(), device); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if len(w.sent()) != 0 {
		t.Fatalf("flow statistics are requested after the failed fill")
	}
	if device.Registry().State() != RegistryEmpty {
		t.Fatalf("unexpected registry state: %v", device.Registry().State())
	}
}
