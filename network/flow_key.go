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
	"bytes"
	"fmt"

	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of13"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

var (
	ErrMissingTableID  = errors.New("tableId must not be null")
	ErrMissingPriority = errors.New("priority must not be null")
)

// FlowRegistryKey identifies a flow of a device by its table, priority,
// cookie and match. Two flows that only differ in the other fields, such as
// the instructions, have the same key.
type FlowRegistryKey struct {
	tableID  uint8
	priority uint16
	cookie   uint64
	// OXM encoding of the normalized match.
	match string
}

func (r FlowRegistryKey) TableID() uint8 {
	return r.tableID
}

func (r FlowRegistryKey) Priority() uint16 {
	return r.priority
}

func (r FlowRegistryKey) Cookie() uint64 {
	return r.cookie
}

// Hash returns a 64-bit hash of the key, which is handy to log and to
// shard keys.
func (r FlowRegistryKey) Hash() uint64 {
	d := xxhash.New()
	fmt.Fprintf(d, "%d/%d/%d/", r.tableID, r.priority, r.cookie)
	d.WriteString(r.match)

	return d.Sum64()
}

func (r FlowRegistryKey) String() string {
	return fmt.Sprintf("FlowRegistryKey(table=%v, priority=%v, cookie=%v, hash=%x)", r.tableID, r.priority, r.cookie, r.Hash())
}

// KeyFactory creates the registry keys of flows. It is safe for concurrent
// use.
type KeyFactory struct {
	match *of13.MatchCodec
}

func NewKeyFactory(reg *openflow.Registry) *KeyFactory {
	return &KeyFactory{match: of13.NewMatchCodec(reg)}
}

func (r *KeyFactory) Create(flow Flow) (FlowRegistryKey, error) {
	if flow.TableID == nil {
		return FlowRegistryKey{}, ErrMissingTableID
	}
	if flow.Priority == nil {
		return FlowRegistryKey{}, ErrMissingPriority
	}
	cookie := openflow.DefaultCookie
	if flow.Cookie != nil {
		cookie = *flow.Cookie
	}

	match := normalizeMatch(flow.Match)
	buf := new(bytes.Buffer)
	if err := r.match.EncodeEntries(&match, buf); err != nil {
		return FlowRegistryKey{}, errors.Wrap(err, "failed to encode the flow match")
	}

	return FlowRegistryKey{
		tableID:  *flow.TableID,
		priority: *flow.Priority,
		cookie:   cookie,
		match:    buf.String(),
	}, nil
}
