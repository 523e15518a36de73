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

package openflow

import (
	"sort"
	"sync"
	"sync/atomic"
)

type snapshot[C any] struct {
	codecs map[Key]C
	// Sorted keys of codecs.
	keys []Key
}

func newSnapshot[C any](m map[Key]C) *snapshot[C] {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	return &snapshot[C]{codecs: m, keys: keys}
}

func (r *snapshot[C]) clone() map[Key]C {
	m := make(map[Key]C, len(r.codecs)+1)
	for k, v := range r.codecs {
		m[k] = v
	}

	return m
}

// Table maps codec keys to codecs. Lookups read an immutable snapshot
// without locking, and every update publishes a new snapshot, so that a
// lookup racing with Register, Unregister or Revert sees either the old or
// the new binding of a key.
type Table[C any] struct {
	mutex    sync.Mutex
	current  atomic.Pointer[snapshot[C]]
	defaults map[Key]C
}

func NewTable[C any]() *Table[C] {
	t := new(Table[C])
	t.current.Store(newSnapshot(make(map[Key]C)))

	return t
}

// Register binds codec to key. An existing binding is overwritten.
func (r *Table[C]) Register(key Key, codec C) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	m := r.current.Load().clone()
	m[key] = codec
	r.current.Store(newSnapshot(m))
}

func (r *Table[C]) Lookup(key Key) (codec C, ok bool) {
	codec, ok = r.current.Load().codecs[key]
	return codec, ok
}

// Unregister removes the binding of key. If a default codec has been sealed
// for key, the default is restored instead.
func (r *Table[C]) Unregister(key Key) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	m := r.current.Load().clone()
	if v, ok := r.defaults[key]; ok {
		m[key] = v
	} else {
		delete(m, key)
	}
	r.current.Store(newSnapshot(m))
}

// Seal records the current bindings as the defaults that Unregister and
// Revert fall back to.
func (r *Table[C]) Seal() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.defaults = r.current.Load().clone()
}

// Revert restores the sealed defaults, dropping every binding made after
// the last Seal.
func (r *Table[C]) Revert() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	m := make(map[Key]C, len(r.defaults))
	for k, v := range r.defaults {
		m[k] = v
	}
	r.current.Store(newSnapshot(m))
}

// Keys returns the bound keys in ascending order. The caller must not
// modify the returned slice.
func (r *Table[C]) Keys() []Key {
	return r.current.Load().keys
}

func (r *Table[C]) Len() int {
	return len(r.current.Load().codecs)
}

type SerializerRegistry struct {
	Messages          *Table[MessageSerializer]
	MultipartRequests *Table[MultipartSerializer]
	MultipartReplies  *Table[MultipartSerializer]
	MatchEntries      *Table[MatchEntrySerializer]
	Instructions      *Table[InstructionSerializer]
	Actions           *Table[ActionSerializer]
}

func NewSerializerRegistry() *SerializerRegistry {
	return &SerializerRegistry{
		Messages:          NewTable[MessageSerializer](),
		MultipartRequests: NewTable[MultipartSerializer](),
		MultipartReplies:  NewTable[MultipartSerializer](),
		MatchEntries:      NewTable[MatchEntrySerializer](),
		Instructions:      NewTable[InstructionSerializer](),
		Actions:           NewTable[ActionSerializer](),
	}
}

func (r *SerializerRegistry) Seal() {
	r.Messages.Seal()
	r.MultipartRequests.Seal()
	r.MultipartReplies.Seal()
	r.MatchEntries.Seal()
	r.Instructions.Seal()
	r.Actions.Seal()
}

func (r *SerializerRegistry) Revert() {
	r.Messages.Revert()
	r.MultipartRequests.Revert()
	r.MultipartReplies.Revert()
	r.MatchEntries.Revert()
	r.Instructions.Revert()
	r.Actions.Revert()
}

type DeserializerRegistry struct {
	Messages          *Table[MessageDeserializer]
	MultipartRequests *Table[MultipartDeserializer]
	MultipartReplies  *Table[MultipartDeserializer]
	MatchEntries      *Table[MatchEntryDeserializer]
	Instructions      *Table[InstructionDeserializer]
	Actions           *Table[ActionDeserializer]
}

func NewDeserializerRegistry() *DeserializerRegistry {
	return &DeserializerRegistry{
		Messages:          NewTable[MessageDeserializer](),
		MultipartRequests: NewTable[MultipartDeserializer](),
		MultipartReplies:  NewTable[MultipartDeserializer](),
		MatchEntries:      NewTable[MatchEntryDeserializer](),
		Instructions:      NewTable[InstructionDeserializer](),
		Actions:           NewTable[ActionDeserializer](),
	}
}

func (r *DeserializerRegistry) Seal() {
	r.Messages.Seal()
	r.MultipartRequests.Seal()
	r.MultipartReplies.Seal()
	r.MatchEntries.Seal()
	r.Instructions.Seal()
	r.Actions.Seal()
}

func (r *DeserializerRegistry) Revert() {
	r.Messages.Revert()
	r.MultipartRequests.Revert()
	r.MultipartReplies.Revert()
	r.MatchEntries.Revert()
	r.Instructions.Revert()
	r.Actions.Revert()
}

// Registry is the pair of serializer and deserializer registries that every
// codec call site receives.
type Registry struct {
	Serializers   *SerializerRegistry
	Deserializers *DeserializerRegistry
}

func NewRegistry() *Registry {
	return &Registry{
		Serializers:   NewSerializerRegistry(),
		Deserializers: NewDeserializerRegistry(),
	}
}

func (r *Registry) Seal() {
	r.Serializers.Seal()
	r.Deserializers.Seal()
}

func (r *Registry) Revert() {
	r.Serializers.Revert()
	r.Deserializers.Revert()
}
