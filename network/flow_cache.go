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
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// flowCache remembers the flows that have been sent to a device but not yet
// reported back by the flow statistics, so that the same FLOW_MOD is not
// sent again while the first one is in progress.
type flowCache struct {
	cache *ttlcache.Cache[FlowRegistryKey, time.Time]
}

func newFlowCache(expiration time.Duration) *flowCache {
	return &flowCache{
		cache: ttlcache.New[FlowRegistryKey, time.Time](
			ttlcache.WithTTL[FlowRegistryKey, time.Time](expiration),
			ttlcache.WithCapacity[FlowRegistryKey, time.Time](8192),
			ttlcache.WithDisableTouchOnHit[FlowRegistryKey, time.Time](),
		),
	}
}

func (r *flowCache) Add(key FlowRegistryKey) {
	t := time.Now()
	// Update if the key already exists.
	r.cache.Set(key, t, ttlcache.DefaultTTL)
	logger.Debugf("added a new flow cache: key=%v, timestamp=%v", key, t)
}

func (r *flowCache) InProgress(key FlowRegistryKey) bool {
	// Get does not return an expired item.
	return r.cache.Get(key) != nil
}

func (r *flowCache) Remove(key FlowRegistryKey) {
	r.cache.Delete(key)
}

func (r *flowCache) RemoveAll() {
	r.cache.DeleteAll()
	logger.Debug("removed all the flow caches")
}
