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
	"context"
	"sync"

	"github.com/superkkt/ofdriver/network"
)

// Memory is a network.Store that keeps the nodes in memory. Nodes are
// stored encoded, so the callers never share them.
type Memory struct {
	mutex sync.RWMutex
	nodes map[network.Partition]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		nodes: map[network.Partition]map[string][]byte{
			network.Configured:  make(map[string][]byte),
			network.Operational: make(map[string][]byte),
		},
	}
}

func (r *Memory) partition(p network.Partition) (map[string][]byte, error) {
	v, ok := r.nodes[p]
	if !ok {
		return nil, ErrUnknownPartition
	}

	return v, nil
}

func (r *Memory) Read(ctx context.Context, p network.Partition, path string) (node network.Node, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return network.Node{}, false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	nodes, err := r.partition(p)
	if err != nil {
		return network.Node{}, false, err
	}
	data, ok := nodes[path]
	if !ok {
		return network.Node{}, false, nil
	}
	node, err = decodeNode(data)
	if err != nil {
		return network.Node{}, false, err
	}

	return node, true, nil
}

func (r *Memory) Write(ctx context.Context, p network.Partition, path string, node network.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeNode(node)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	nodes, err := r.partition(p)
	if err != nil {
		return err
	}
	nodes[path] = data

	return nil
}

func (r *Memory) Delete(ctx context.Context, p network.Partition, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	nodes, err := r.partition(p)
	if err != nil {
		return err
	}
	delete(nodes, path)

	return nil
}
