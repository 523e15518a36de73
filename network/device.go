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
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of13"
	"github.com/superkkt/ofdriver/openflow/transceiver"

	"github.com/pkg/errors"
)

var (
	ErrClosedDevice   = errors.New("already closed device")
	ErrNotFlowCapable = errors.New("flow registry is not supported on this device")
)

const (
	// Time to wait for the flow statistics to report an installed flow.
	flowCacheExpiration = 30 * time.Second
)

// NodeID returns the node ID of the device whose datapath ID is dpid.
func NodeID(dpid uint64) string {
	return "openflow:" + strconv.FormatUint(dpid, 10)
}

type Device struct {
	mutex    sync.RWMutex
	id       string
	writer   transceiver.Writer
	features transceiver.Features
	store    Store
	keys     *KeyFactory
	registry *DeviceFlowRegistry
	cache    *flowCache
	// Serializes the read-modify-write of the configured node.
	configMutex sync.Mutex
	// Flows of the multipart FLOW replies received so far.
	pending []Flow
	closed  bool
}

func newDevice(w transceiver.Writer, features transceiver.Features, store Store, keys *KeyFactory) *Device {
	if w == nil {
		panic("Writer is nil")
	}

	id := NodeID(features.DPID)
	v := &Device{
		id:       id,
		writer:   w,
		features: features,
		store:    store,
		keys:     keys,
		cache:    newFlowCache(flowCacheExpiration),
	}
	if w.Version() == openflow.OF13_VERSION {
		v.registry = NewDeviceFlowRegistry(id, store, keys)
	}

	return v
}

func (r *Device) String() string {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	size := 0
	if r.registry != nil {
		size = r.registry.Len()
	}

	return fmt.Sprintf("Device ID=%v, Version=%v, Features=%+v, # of flows=%v, Connected=%v", r.id, r.writer.Version(), r.features, size, !r.closed)
}

func (r *Device) ID() string {
	return r.id
}

func (r *Device) Version() uint8 {
	return r.writer.Version()
}

func (r *Device) Features() transceiver.Features {
	return r.features
}

// Registry returns the flow registry of the device. It is nil if the device
// does not speak OpenFlow 1.3.
func (r *Device) Registry() *DeviceFlowRegistry {
	return r.registry
}

func (r *Device) IsClosed() bool {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.closed
}

func (r *Device) SendMessage(msg openflow.Message) error {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if msg == nil {
		panic("Message is nil")
	}
	if r.closed {
		return ErrClosedDevice
	}

	return r.writer.Write(msg)
}

// RequestFlowStats asks the device for all of its flows.
func (r *Device) RequestFlowStats() error {
	if r.registry == nil {
		return ErrNotFlowCapable
	}

	return r.SendMessage(of13.NewMultipartRequest(r.writer.NewTransactionID(), of13.NewFlowStatsRequest()))
}

// OnFlowStats registers the flows reported by the device. Flows unknown to
// the registry get alien IDs. After the last reply of a request, the flows
// are written to the operational partition and the marked flows are purged.
func (r *Device) OnFlowStats(ctx context.Context, reply *of13.MultipartReply) error {
	if r.registry == nil {
		return ErrNotFlowCapable
	}
	stats, ok := reply.Body.(*of13.FlowStatsReply)
	if !ok {
		return fmt.Errorf("unexpected multipart body: %T", reply.Body)
	}

	flows := make([]Flow, 0, len(stats.Flows))
	for _, s := range stats.Flows {
		flow := Flow{
			TableID:      openflow.Ptr(s.TableID),
			Priority:     openflow.Ptr(s.Priority),
			Cookie:       openflow.Ptr(s.Cookie),
			Match:        s.Match,
			Instructions: s.Instructions,
			IdleTimeout:  s.IdleTimeout,
			HardTimeout:  s.HardTimeout,
			Flags:        s.Flags,
		}
		key, err := r.keys.Create(flow)
		if err != nil {
			logger.Errorf("failed to create the flow registry key: device=%v, err=%v", r.id, err)
			continue
		}
		flow.ID = r.registry.StoreIfNecessary(key)
		r.cache.Remove(key)
		flows = append(flows, flow)
	}

	r.mutex.Lock()
	r.pending = append(r.pending, flows...)
	if reply.More() {
		r.mutex.Unlock()
		return nil
	}
	flows = r.pending
	r.pending = nil
	r.mutex.Unlock()

	node := Node{ID: r.id, FlowCapable: &FlowCapableNode{Tables: groupByTable(flows)}}
	if err := r.store.Write(ctx, Operational, NodePath(r.id), node); err != nil {
		return errors.Wrap(err, "failed to write the operational node")
	}
	r.registry.ProcessMarks()

	return nil
}

func groupByTable(flows []Flow) []Table {
	tables := make(map[uint8][]Flow)
	for _, v := range flows {
		tables[*v.TableID] = append(tables[*v.TableID], v)
	}

	result := make([]Table, 0, len(tables))
	for id, v := range tables {
		result = append(result, Table{ID: id, Flows: v})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}

// OnFlowRemoved marks the removed flow, which is purged from the registry
// after the next flow statistics.
func (r *Device) OnFlowRemoved(msg *of13.FlowRemoved) error {
	if r.registry == nil {
		return ErrNotFlowCapable
	}

	key, err := r.keys.Create(Flow{
		TableID:  openflow.Ptr(msg.TableID),
		Priority: openflow.Ptr(msg.Priority),
		Cookie:   openflow.Ptr(msg.Cookie),
		Match:    msg.Match,
	})
	if err != nil {
		return err
	}
	r.registry.AddMark(key)
	r.cache.Remove(key)
	logger.Debugf("marked the removed flow: device=%v, key=%v, reason=%v", r.id, key, msg.Reason)

	return nil
}

func withDefaults(flow Flow) Flow {
	if flow.TableID == nil {
		flow.TableID = openflow.Ptr[uint8](0)
	}
	if flow.Priority == nil {
		flow.Priority = openflow.Ptr(of13.OFP_DEFAULT_PRIORITY)
	}
	if flow.Cookie == nil {
		flow.Cookie = openflow.Ptr(openflow.DefaultCookie)
	}

	return flow
}

func (r *Device) newFlowMod(flow Flow, command uint8) *of13.FlowMod {
	msg := of13.NewFlowMod(r.writer.NewTransactionID())
	msg.Command = command
	msg.TableID = *flow.TableID
	msg.Priority = *flow.Priority
	msg.Cookie = *flow.Cookie
	msg.IdleTimeout = flow.IdleTimeout
	msg.HardTimeout = flow.HardTimeout
	msg.Flags = flow.Flags | of13.OFPFF_SEND_FLOW_REM
	msg.Match = flow.Match
	msg.Instructions = flow.Instructions

	return msg
}

// InstallFlow sends flow to the device, registers it and writes it to the
// configured partition. The absent table ID, priority and cookie take their
// default values. It returns the flow ID, which is an alien ID if flow has
// no ID.
func (r *Device) InstallFlow(ctx context.Context, flow Flow) (string, error) {
	if r.registry == nil {
		return "", ErrNotFlowCapable
	}

	flow = withDefaults(flow)
	// With the legacy FLOW_MOD serializers a VLAN match is split into two
	// flows on the wire. The device reports those split flows, whose keys
	// differ from this one, so they are registered under alien IDs and the
	// in-progress entry of this key only expires by the cache TTL.
	key, err := r.keys.Create(flow)
	if err != nil {
		return "", err
	}
	if r.cache.InProgress(key) {
		logger.Debugf("skipping the flow installation in progress: device=%v, key=%v", r.id, key)
		if d, ok := r.registry.RetrieveDescriptor(key); ok {
			return d.FlowID(), nil
		}
	}

	if err := r.SendMessage(r.newFlowMod(flow, of13.OFPFC_ADD)); err != nil {
		return "", errors.Wrap(err, "failed to send FLOW_MOD")
	}
	r.cache.Add(key)

	if flow.ID == "" {
		flow.ID = r.registry.StoreIfNecessary(key)
	} else {
		r.registry.StoreDescriptor(key, NewFlowDescriptor(*flow.TableID, flow.ID))
	}

	if err := r.updateConfigured(ctx, func(t *Table) {
		for i, v := range t.Flows {
			if v.ID == flow.ID {
				t.Flows[i] = flow
				return
			}
		}
		t.Flows = append(t.Flows, flow)
	}, *flow.TableID); err != nil {
		return "", err
	}

	return flow.ID, nil
}

// RemoveFlow deletes flow from the device and from the configured partition.
// Its descriptor is purged after the next flow statistics.
func (r *Device) RemoveFlow(ctx context.Context, flow Flow) error {
	if r.registry == nil {
		return ErrNotFlowCapable
	}

	flow = withDefaults(flow)
	key, err := r.keys.Create(flow)
	if err != nil {
		return err
	}
	if err := r.SendMessage(r.newFlowMod(flow, of13.OFPFC_DELETE_STRICT)); err != nil {
		return errors.Wrap(err, "failed to send FLOW_MOD")
	}
	r.registry.AddMark(key)
	r.cache.Remove(key)

	d, ok := r.registry.RetrieveDescriptor(key)
	if !ok {
		return nil
	}

	return r.updateConfigured(ctx, func(t *Table) {
		flows := t.Flows[:0]
		for _, v := range t.Flows {
			if v.ID != d.FlowID() {
				flows = append(flows, v)
			}
		}
		t.Flows = flows
	}, d.TableID())
}

// updateConfigured applies fn to the table tableID of the configured node of
// the device and writes the node back.
func (r *Device) updateConfigured(ctx context.Context, fn func(*Table), tableID uint8) error {
	r.configMutex.Lock()
	defer r.configMutex.Unlock()

	path := NodePath(r.id)
	node, ok, err := r.store.Read(ctx, Configured, path)
	if err != nil {
		return errors.Wrap(err, "failed to read the configured node")
	}
	if !ok {
		node = Node{ID: r.id}
	}
	if node.FlowCapable == nil {
		node.FlowCapable = &FlowCapableNode{}
	}

	tables := node.FlowCapable.Tables
	idx := -1
	for i, v := range tables {
		if v.ID == tableID {
			idx = i
			break
		}
	}
	if idx < 0 {
		tables = append(tables, Table{ID: tableID})
		sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
		for i, v := range tables {
			if v.ID == tableID {
				idx = i
				break
			}
		}
	}
	fn(&tables[idx])
	node.FlowCapable.Tables = tables

	if err := r.store.Write(ctx, Configured, path, node); err != nil {
		return errors.Wrap(err, "failed to write the configured node")
	}

	return nil
}

func (r *Device) Close() {
	// Write lock
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.pending = nil
	r.cache.RemoveAll()
	if r.registry != nil {
		r.registry.Close()
	}
}
