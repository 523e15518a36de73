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
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/superkkt/ofdriver/openflow"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("network")
)

var (
	ErrDuplicatedDevice = errors.New("duplicated device DPID (aux. connection is not supported yet)")
)

type Controller struct {
	mutex      sync.Mutex
	codec      *openflow.Codec
	store      Store
	keys       *KeyFactory
	devices    map[string]*Device
	cancellers *cancellers
}

func NewController(codec *openflow.Codec, store Store) *Controller {
	if codec == nil {
		panic("nil codec")
	}
	if store == nil {
		panic("nil store")
	}

	return &Controller{
		codec:      codec,
		store:      store,
		keys:       NewKeyFactory(codec.Registry()),
		devices:    make(map[string]*Device),
		cancellers: newCancellers(),
	}
}

func (r *Controller) AddConnection(ctx context.Context, c net.Conn) {
	session := newSession(c, r)
	go session.Run(ctx)
}

// AddDevice registers d and starts to reconcile its flow registry with the
// store. The flow statistics of the device are requested once the
// reconciliation is done, so that the reported flows reuse the stored IDs.
func (r *Controller) AddDevice(ctx context.Context, d *Device) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.devices[d.ID()]; ok {
		return ErrDuplicatedDevice
	}
	r.devices[d.ID()] = d
	connectedDevices.Inc()

	registry := d.Registry()
	if registry == nil {
		logger.Infof("flow registry is disabled on the OpenFlow %v device: %v", d.Version(), d.ID())
		return nil
	}
	go func() {
		if err := <-registry.Fill(ctx); err != nil {
			logger.Errorf("failed to fill the flow registry: device=%v, err=%v", d.ID(), err)
			return
		}
		if err := d.RequestFlowStats(); err != nil {
			logger.Errorf("failed to request the flow statistics: device=%v, err=%v", d.ID(), err)
		}
	}()

	return nil
}

// RemoveDevice unregisters and closes d.
func (r *Controller) RemoveDevice(d *Device) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if v, ok := r.devices[d.ID()]; ok && v == d {
		delete(r.devices, d.ID())
		connectedDevices.Dec()
	}
	d.Close()
}

func (r *Controller) Device(id string) *Device {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.devices[id]
}

func (r *Controller) Devices() []*Device {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	result := make([]*Device, 0, len(r.devices))
	for _, v := range r.devices {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })

	return result
}

func (r *Controller) String() string {
	var b strings.Builder
	for _, v := range r.Devices() {
		fmt.Fprintf(&b, "%v\n", v)
	}

	return b.String()
}
