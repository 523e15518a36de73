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
	"sync"
)

// cancellers keeps the cancel functions of the sessions by node ID, so that
// a stale session can be disconnected when the same device connects again.
type cancellers struct {
	mu    sync.Mutex
	elems map[string]context.CancelFunc
}

func newCancellers() *cancellers {
	return &cancellers{elems: make(map[string]context.CancelFunc)}
}

func (r *cancellers) push(nodeID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.elems[nodeID] = cancel
}

func (r *cancellers) pop(nodeID string) (cancel context.CancelFunc, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok = r.elems[nodeID]
	if !ok {
		return nil, false
	}
	delete(r.elems, nodeID)

	return cancel, true
}
