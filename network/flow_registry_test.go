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
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/superkkt/ofdriver/openflow"

	"github.com/davecgh/go-spew/spew"
)

type fakeStore struct {
	mutex sync.Mutex
	nodes map[Partition]map[string]Node
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes: map[Partition]map[string]Node{
			Configured:  make(map[string]Node),
			Operational: make(map[string]Node),
		},
	}
}

func (r *fakeStore) Read(ctx context.Context, p Partition, path string) (Node, bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.err != nil {
		return Node{}, false, r.err
	}
	v, ok := r.nodes[p][path]
	return v, ok, nil
}

func (r *fakeStore) Write(ctx context.Context, p Partition, path string, node Node) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.err != nil {
		return r.err
	}
	r.nodes[p][path] = node
	return nil
}

func (r *fakeStore) Delete(ctx context.Context, p Partition, path string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.nodes[p], path)
	return nil
}

func (r *fakeStore) node(p Partition, path string) (Node, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, ok := r.nodes[p][path]
	return v, ok
}

var alienPattern = regexp.MustCompile(`^#UF\$TABLE\*(\d+)-(\d+)$`)

// parseAlienID returns the table ID and the counter of an alien flow ID.
func parseAlienID(t *testing.T, id string) (uint64, uint64) {
	m := alienPattern.FindStringSubmatch(id)
	if m == nil {
		t.Fatalf("unexpected alien flow ID: %v", id)
	}
	table, _ := strconv.ParseUint(m[1], 10, 8)
	counter, _ := strconv.ParseUint(m[2], 10, 64)

	return table, counter
}

func mustKey(t *testing.T, keys *KeyFactory, flow Flow) FlowRegistryKey {
	k, err := keys.Create(flow)
	if err != nil {
		t.Fatalf("unexpected key error: %v", err)
	}

	return k
}

func TestStoreIfNecessary(t *testing.T) {
	keys := newTestKeyFactory()
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), keys)
	if registry.State() != RegistryEmpty {
		t.Fatalf("unexpected initial state: %v", registry.State())
	}

	key := mustKey(t, keys, newTestFlow("", 3, 10, openflow.Match{IPProto: openflow.Ptr(uint8(6))}))
	id := registry.StoreIfNecessary(key)
	if table, _ := parseAlienID(t, id); table != 3 {
		t.Fatalf("unexpected table of the alien ID: %v", id)
	}
	if again := registry.Store(key); again != id {
		t.Fatalf("alien ID is changed: %v != %v", again, id)
	}
	if registry.Len() != 1 {
		t.Fatalf("unexpected registry length: expected=1, actual=%v", registry.Len())
	}
	if registry.State() != RegistryPopulated {
		t.Fatalf("unexpected state: %v", registry.State())
	}

	d, ok := registry.RetrieveDescriptor(key)
	if !ok || d.FlowID() != id || d.TableID() != 3 {
		t.Fatalf("unexpected descriptor: %v", spew.Sdump(d))
	}
}

func TestAlienFlowIDsIncrease(t *testing.T) {
	keys := newTestKeyFactory()
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), keys)

	var last uint64
	for i := 0; i < 20; i++ {
		key := mustKey(t, keys, newTestFlow("", 7, uint16(i), openflow.Match{}))
		_, counter := parseAlienID(t, registry.StoreIfNecessary(key))
		if counter <= last {
			t.Fatalf("alien ID counter is not increasing: last=%v, current=%v", last, counter)
		}
		last = counter
	}
}

func TestStoreDescriptorOverwrites(t *testing.T) {
	keys := newTestKeyFactory()
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), keys)
	key := mustKey(t, keys, newTestFlow("", 0, 1, openflow.Match{}))

	alien := registry.StoreIfNecessary(key)
	registry.StoreDescriptor(key, NewFlowDescriptor(0, "flow-1"))
	if d, _ := registry.RetrieveDescriptor(key); d.FlowID() != "flow-1" {
		t.Fatalf("descriptor is not replaced: %v", spew.Sdump(d))
	}
	if registry.StoreIfNecessary(key) != "flow-1" {
		t.Fatalf("registered flow ID is replaced by alien ID %v", alien)
	}
	if registry.Len() != 1 {
		t.Fatalf("unexpected registry length: expected=1, actual=%v", registry.Len())
	}
}

func TestMarks(t *testing.T) {
	keys := newTestKeyFactory()
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), keys)
	first := mustKey(t, keys, newTestFlow("", 0, 1, openflow.Match{}))
	second := mustKey(t, keys, newTestFlow("", 0, 2, openflow.Match{}))
	unknown := mustKey(t, keys, newTestFlow("", 0, 3, openflow.Match{}))

	registry.StoreIfNecessary(first)
	registry.StoreIfNecessary(second)
	registry.AddMark(first)
	registry.AddMark(first)
	registry.AddMark(unknown)

	// Marked flows stay until the marks are processed.
	if _, ok := registry.RetrieveDescriptor(first); !ok {
		t.Fatalf("marked flow is removed before processing the marks")
	}
	if n := registry.ProcessMarks(); n != 1 {
		t.Fatalf("unexpected number of purged flows: expected=1, actual=%v", n)
	}
	if _, ok := registry.RetrieveDescriptor(first); ok {
		t.Fatalf("marked flow is not removed")
	}
	if _, ok := registry.RetrieveDescriptor(second); !ok {
		t.Fatalf("unmarked flow is removed")
	}
	if n := registry.ProcessMarks(); n != 0 {
		t.Fatalf("marks are not cleared: %v", n)
	}
	if registry.Len() != 1 {
		t.Fatalf("unexpected registry length: expected=1, actual=%v", registry.Len())
	}
}

func TestFill(t *testing.T) {
	keys := newTestKeyFactory()
	store := newFakeStore()
	path := NodePath("openflow:1")

	match := openflow.Match{EthType: openflow.Ptr(uint16(0x0806))}
	store.nodes[Configured][path] = Node{
		ID: "openflow:1",
		FlowCapable: &FlowCapableNode{
			Tables: []Table{
				{
					ID: 0,
					Flows: []Flow{
						newTestFlow("arp", 0, 100, match),
						// Missing flow ID.
						newTestFlow("", 0, 200, match),
						// Missing priority.
						{ID: "broken", TableID: openflow.Ptr(uint8(0))},
					},
				},
			},
		},
	}
	store.nodes[Operational][path] = Node{
		ID: "openflow:1",
		FlowCapable: &FlowCapableNode{
			Tables: []Table{
				{
					ID: 0,
					Flows: []Flow{
						// Same flow with the alien ID reported before.
						newTestFlow("#UF$TABLE*0-1", 0, 100, match),
						newTestFlow("#UF$TABLE*1-2", 1, 5, openflow.Match{}),
					},
				},
			},
		},
	}

	registry := NewDeviceFlowRegistry("openflow:1", store, keys)
	select {
	case err := <-registry.Fill(context.Background()):
		if err != nil {
			t.Fatalf("unexpected fill error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("fill is not finished")
	}

	if registry.State() != RegistryPopulated {
		t.Fatalf("unexpected state: %v", registry.State())
	}
	expected := map[string]string{
		"arp":           "arp",
		"#UF$TABLE*1-2": "#UF$TABLE*1-2",
	}
	actual := make(map[string]string)
	registry.ForEach(func(k FlowRegistryKey, d FlowDescriptor) {
		actual[d.FlowID()] = d.FlowID()
		if k.TableID() != d.TableID() {
			t.Errorf("unexpected table ID of %v: key=%v, descriptor=%v", d.FlowID(), k.TableID(), d.TableID())
		}
	})
	if len(actual) != len(expected) || actual["arp"] == "" || actual["#UF$TABLE*1-2"] == "" {
		t.Fatalf("unexpected registry: %v", spew.Sdump(actual))
	}
	if registry.Len() != 2 {
		t.Fatalf("unexpected registry length: expected=2, actual=%v", registry.Len())
	}
}

func TestFillWithoutNodes(t *testing.T) {
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), newTestKeyFactory())
	if err := <-registry.Fill(context.Background()); err != nil {
		t.Fatalf("unexpected fill error: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("unexpected registry length: %v", registry.Len())
	}
}

func TestFillMalformedNode(t *testing.T) {
	store := newFakeStore()
	store.nodes[Configured][NodePath("openflow:1")] = Node{ID: "openflow:1"}
	store.nodes[Operational][NodePath("openflow:1")] = Node{ID: "openflow:1", FlowCapable: &FlowCapableNode{}}

	registry := NewDeviceFlowRegistry("openflow:1", store, newTestKeyFactory())
	if err := <-registry.Fill(context.Background()); err != nil {
		t.Fatalf("unexpected fill error: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("unexpected registry length: %v", registry.Len())
	}
}

func TestFillFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")

	registry := NewDeviceFlowRegistry("openflow:1", store, newTestKeyFactory())
	c := registry.Fill(context.Background())
	if err := <-c; err == nil {
		t.Fatalf("expected a fill error")
	}
	// The channel is closed after the result.
	if _, ok := <-c; ok {
		t.Fatalf("fill channel is not closed")
	}
	if registry.State() != RegistryEmpty {
		t.Fatalf("unexpected state: %v", registry.State())
	}
}

func TestRegistryClose(t *testing.T) {
	keys := newTestKeyFactory()
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), keys)
	key := mustKey(t, keys, newTestFlow("", 0, 1, openflow.Match{}))
	registry.StoreIfNecessary(key)
	registry.AddMark(key)

	registry.Close()
	if registry.State() != RegistryClosed {
		t.Fatalf("unexpected state: %v", registry.State())
	}
	if registry.Len() != 0 || len(registry.AllFlowDescriptors()) != 0 {
		t.Fatalf("registry is not cleared: %v", spew.Sdump(registry.AllFlowDescriptors()))
	}
	if n := registry.ProcessMarks(); n != 0 {
		t.Fatalf("marks are not cleared: %v", n)
	}
}

func TestStoreIfNecessaryConcurrently(t *testing.T) {
	keys := newTestKeyFactory()
	registry := NewDeviceFlowRegistry("openflow:1", newFakeStore(), keys)
	key := mustKey(t, keys, newTestFlow("", 0, 1, openflow.Match{}))

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = registry.StoreIfNecessary(key)
		}(i)
	}
	wg.Wait()

	for _, v := range ids {
		if v != ids[0] {
			t.Fatalf("unexpected different flow IDs for the same key: %v", spew.Sdump(ids))
		}
	}
	if registry.Len() != 1 {
		t.Fatalf("unexpected registry length: expected=1, actual=%v", registry.Len())
	}
}
