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
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type RegistryState int32

const (
	// RegistryEmpty is the state of a registry of a just connected device.
	RegistryEmpty RegistryState = iota
	// RegistryPopulated is the state after a successful fill or store.
	RegistryPopulated
	// RegistryClosed is the state after the device is disconnected.
	RegistryClosed
)

func (r RegistryState) String() string {
	switch r {
	case RegistryEmpty:
		return "Empty"
	case RegistryPopulated:
		return "Populated"
	case RegistryClosed:
		return "Closed"
	default:
		return fmt.Sprintf("RegistryState(%d)", int32(r))
	}
}

// FlowDescriptor is the table and the flow ID of a registered flow.
type FlowDescriptor struct {
	tableID uint8
	flowID  string
}

func NewFlowDescriptor(tableID uint8, flowID string) FlowDescriptor {
	return FlowDescriptor{tableID: tableID, flowID: flowID}
}

func (r FlowDescriptor) TableID() uint8 {
	return r.tableID
}

func (r FlowDescriptor) FlowID() string {
	return r.flowID
}

func (r FlowDescriptor) String() string {
	return fmt.Sprintf("FlowDescriptor(table=%v, id=%v)", r.tableID, r.flowID)
}

// Shared by all the devices. IDs of a table are strictly increasing, but
// nothing is promised about the order across tables.
var alienCounter atomic.Uint64

// newAlienFlowID returns an ID for a flow that the controller did not
// author.
func newAlienFlowID(tableID uint8) string {
	alienFlowIDs.Inc()
	return fmt.Sprintf("#UF$TABLE*%d-%d", tableID, alienCounter.Add(1))
}

// DeviceFlowRegistry maps the flow registry keys of a device to their flow
// descriptors. It is safe for concurrent use.
type DeviceFlowRegistry struct {
	nodeID string
	store  Store
	keys   *KeyFactory

	// FlowRegistryKey -> FlowDescriptor
	flows sync.Map
	// FlowRegistryKey -> struct{}
	marks sync.Map
	size  atomic.Int64
	state atomic.Int32
}

func NewDeviceFlowRegistry(nodeID string, store Store, keys *KeyFactory) *DeviceFlowRegistry {
	if store == nil {
		panic("nil store")
	}
	if keys == nil {
		panic("nil key factory")
	}

	return &DeviceFlowRegistry{
		nodeID: nodeID,
		store:  store,
		keys:   keys,
	}
}

func (r *DeviceFlowRegistry) NodeID() string {
	return r.nodeID
}

func (r *DeviceFlowRegistry) State() RegistryState {
	return RegistryState(r.state.Load())
}

func (r *DeviceFlowRegistry) populated() {
	r.state.CompareAndSwap(int32(RegistryEmpty), int32(RegistryPopulated))
}

func (r *DeviceFlowRegistry) updateGauge() {
	if r.State() == RegistryClosed {
		return
	}
	registeredFlows.WithLabelValues(r.nodeID).Set(float64(r.size.Load()))
}

// Fill reconciles the registry with the flows of the device kept in the
// configured partition and then in the operational partition. It returns
// immediately, and the returned channel yields the result once and is then
// closed. The flows folded before a failure remain in the registry, so Fill
// can simply be called again.
func (r *DeviceFlowRegistry) Fill(ctx context.Context) <-chan error {
	c := make(chan error, 1)
	go func() {
		defer close(c)
		c <- r.fill(ctx)
	}()

	return c
}

func (r *DeviceFlowRegistry) fill(ctx context.Context) error {
	path := NodePath(r.nodeID)
	for _, p := range []Partition{Configured, Operational} {
		node, ok, err := r.store.Read(ctx, p, path)
		if err != nil {
			fillFailures.Inc()
			return errors.Wrapf(err, "failed to read the %v node: path=%v", p, path)
		}
		if !ok {
			logger.Debugf("no %v node to reconcile: path=%v", p, path)
			continue
		}
		r.fold(p, node)
	}
	r.populated()
	logger.Debugf("flow registry is filled: node=%v, size=%v", r.nodeID, r.Len())

	return nil
}

func (r *DeviceFlowRegistry) fold(p Partition, node Node) {
	skip := func(format string, args ...interface{}) {
		skippedFlows.WithLabelValues(p.String()).Inc()
		logger.Debugf("skipping the %v flow of node %v: %v", p, r.nodeID, fmt.Sprintf(format, args...))
	}

	if node.FlowCapable == nil {
		skip("absent flow capable augmentation")
		return
	}
	if len(node.FlowCapable.Tables) == 0 {
		skip("empty table list")
		return
	}

	for _, table := range node.FlowCapable.Tables {
		for _, flow := range table.Flows {
			if r.State() == RegistryClosed {
				return
			}
			if flow.ID == "" {
				skip("missing flow ID in table %v", table.ID)
				continue
			}
			key, err := r.keys.Create(flow)
			if err != nil {
				skip("flow %v: %v", flow.ID, err)
				continue
			}
			if _, loaded := r.flows.LoadOrStore(key, NewFlowDescriptor(key.TableID(), flow.ID)); !loaded {
				r.size.Add(1)
			}
		}
	}
	r.updateGauge()
}

// StoreIfNecessary returns the flow ID registered for key. If key is not
// registered yet, a new alien flow ID is registered and returned.
func (r *DeviceFlowRegistry) StoreIfNecessary(key FlowRegistryKey) string {
	if v, ok := r.flows.Load(key); ok {
		return v.(FlowDescriptor).FlowID()
	}

	d := NewFlowDescriptor(key.TableID(), newAlienFlowID(key.TableID()))
	v, loaded := r.flows.LoadOrStore(key, d)
	if !loaded {
		r.size.Add(1)
		r.populated()
		r.updateGauge()
		logger.Debugf("registered an alien flow: node=%v, key=%v, id=%v", r.nodeID, key, d.FlowID())
	}

	return v.(FlowDescriptor).FlowID()
}

// Store is the same as StoreIfNecessary.
func (r *DeviceFlowRegistry) Store(key FlowRegistryKey) string {
	return r.StoreIfNecessary(key)
}

// StoreDescriptor registers d for key, replacing the existing descriptor.
func (r *DeviceFlowRegistry) StoreDescriptor(key FlowRegistryKey, d FlowDescriptor) {
	if _, loaded := r.flows.Swap(key, d); !loaded {
		r.size.Add(1)
		r.updateGauge()
	}
	r.populated()
}

func (r *DeviceFlowRegistry) RetrieveDescriptor(key FlowRegistryKey) (FlowDescriptor, bool) {
	v, ok := r.flows.Load(key)
	if !ok {
		return FlowDescriptor{}, false
	}

	return v.(FlowDescriptor), true
}

// AddMark marks key to be removed by the next ProcessMarks.
func (r *DeviceFlowRegistry) AddMark(key FlowRegistryKey) {
	r.marks.Store(key, struct{}{})
}

// ProcessMarks removes the marked keys and returns the number of the removed
// descriptors.
func (r *DeviceFlowRegistry) ProcessMarks() int {
	removed := 0
	r.marks.Range(func(k, _ interface{}) bool {
		r.marks.Delete(k)
		if _, loaded := r.flows.LoadAndDelete(k); loaded {
			r.size.Add(-1)
			removed++
		}
		return true
	})
	if removed > 0 {
		purgedFlows.Add(float64(removed))
		r.updateGauge()
		logger.Debugf("purged %v marked flow(s) of node %v", removed, r.nodeID)
	}

	return removed
}

// AllFlowDescriptors returns a copy of the registry.
func (r *DeviceFlowRegistry) AllFlowDescriptors() map[FlowRegistryKey]FlowDescriptor {
	result := make(map[FlowRegistryKey]FlowDescriptor)
	r.flows.Range(func(k, v interface{}) bool {
		result[k.(FlowRegistryKey)] = v.(FlowDescriptor)
		return true
	})

	return result
}

// ForEach calls fn for every registered flow. fn is called on a snapshot,
// so it may modify the registry.
func (r *DeviceFlowRegistry) ForEach(fn func(FlowRegistryKey, FlowDescriptor)) {
	for k, v := range r.AllFlowDescriptors() {
		fn(k, v)
	}
}

func (r *DeviceFlowRegistry) Len() int {
	return int(r.size.Load())
}

// Close removes every descriptor and mark.
func (r *DeviceFlowRegistry) Close() {
	r.state.Store(int32(RegistryClosed))
	r.flows.Range(func(k, _ interface{}) bool {
		if _, loaded := r.flows.LoadAndDelete(k); loaded {
			r.size.Add(-1)
		}
		return true
	})
	r.marks.Range(func(k, _ interface{}) bool {
		r.marks.Delete(k)
		return true
	})
	registeredFlows.DeleteLabelValues(r.nodeID)
}
