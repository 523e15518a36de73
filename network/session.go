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
	"net"

	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of10"
	"github.com/superkkt/ofdriver/openflow/of13"
	"github.com/superkkt/ofdriver/openflow/transceiver"
)

var (
	errNotNegotiated = errors.New("invalid command on non-negotiated session")
)

const (
	// Size of the stream buffer that can hold the largest OpenFlow packet.
	streamBufferSize = 0xFFFF + 1
)

// session handles a connection of a switch. It negotiates the protocol
// version, identifies the device and feeds the flow registry of the device
// with the flow statistics and the removed flows.
type session struct {
	ctx         context.Context
	negotiated  bool
	device      *Device
	transceiver *transceiver.Transceiver
	controller  *Controller
	// A cancel function to disconnect this session.
	canceller context.CancelFunc
}

func newSession(conn net.Conn, controller *Controller) *session {
	if conn == nil {
		panic("Conn is nil")
	}
	if controller == nil {
		panic("Controller is nil")
	}

	stream := transceiver.NewStream(conn, streamBufferSize)
	v := &session{controller: controller}
	v.transceiver = transceiver.NewTransceiver(stream, controller.codec, v)

	return v
}

func sendHello(w transceiver.Writer) error {
	switch w.Version() {
	case openflow.OF10_VERSION:
		return w.Write(of10.NewHello(w.NewTransactionID()))
	case openflow.OF13_VERSION:
		return w.Write(of13.NewHello(w.NewTransactionID()))
	default:
		return openflow.ErrUnsupportedVersion
	}
}

func sendFeaturesRequest(w transceiver.Writer) error {
	switch w.Version() {
	case openflow.OF10_VERSION:
		return w.Write(of10.NewFeaturesRequest(w.NewTransactionID()))
	case openflow.OF13_VERSION:
		return w.Write(of13.NewFeaturesRequest(w.NewTransactionID()))
	default:
		return openflow.ErrUnsupportedVersion
	}
}

func sendBarrierRequest(w transceiver.Writer) error {
	switch w.Version() {
	case openflow.OF10_VERSION:
		return w.Write(of10.NewBarrierRequest(w.NewTransactionID()))
	case openflow.OF13_VERSION:
		return w.Write(of13.NewBarrierRequest(w.NewTransactionID()))
	default:
		return openflow.ErrUnsupportedVersion
	}
}

func (r *session) OnHello(w transceiver.Writer, v *openflow.Hello) error {
	logger.Debugf("HELLO (ver=%v) is received", v.Version())

	// Ignore duplicated HELLO messages
	if r.negotiated {
		return nil
	}
	r.negotiated = true

	if err := sendHello(w); err != nil {
		return err
	}
	if err := sendFeaturesRequest(w); err != nil {
		return err
	}

	return sendBarrierRequest(w)
}

func (r *session) OnError(w transceiver.Writer, v *openflow.Error) error {
	// Is this the CHECK_OVERLAP error?
	if v.Class == 3 && v.Code == 1 {
		logger.Debug("FLOW_MOD is overlapped")
		return nil
	}

	logger.Errorf("ERROR (class=%v, code=%v, data=%v)", v.Class, v.Code, v.Data)
	if !r.negotiated {
		return errNotNegotiated
	}

	return nil
}

func (r *session) OnFeaturesReply(w transceiver.Writer, v transceiver.Features) error {
	logger.Debugf("FEATURES_REPLY (DPID=%v, NumBufs=%v, NumTables=%v)", v.DPID, v.NumBuffers, v.NumTables)

	if !r.negotiated {
		return errNotNegotiated
	}
	// Is this a reply for our additional request?
	if r.device != nil {
		return nil
	}

	device := newDevice(w, v, r.controller.store, r.controller.keys)
	if err := r.controller.AddDevice(r.ctx, device); err != nil {
		if errors.Is(err, ErrDuplicatedDevice) {
			// Disconnect the previous session. A switch sometimes makes a new
			// connection while the previous one is still alive.
			if cancel, ok := r.controller.cancellers.pop(device.ID()); ok {
				cancel()
			}
		}
		return err
	}
	r.device = device
	r.controller.cancellers.push(device.ID(), r.canceller)
	logger.Infof("connected device: %v", device)

	return nil
}

func (r *session) OnFlowRemoved(w transceiver.Writer, v *of13.FlowRemoved) error {
	logger.Debugf("FLOW_REMOVED is received (cookie=%v)", v.Cookie)

	if r.device == nil {
		return errNotNegotiated
	}
	if err := r.device.OnFlowRemoved(v); err != nil {
		// A broken flow should not disconnect the switch.
		logger.Errorf("failed to handle FLOW_REMOVED: %v", err)
	}

	return nil
}

func (r *session) OnMultipartReply(w transceiver.Writer, v *of13.MultipartReply) error {
	if r.device == nil {
		return errNotNegotiated
	}

	switch v.Body.(type) {
	case *of13.FlowStatsReply:
		if err := r.device.OnFlowStats(r.ctx, v); err != nil {
			logger.Errorf("failed to handle the flow statistics: device=%v, err=%v", r.device.ID(), err)
		}
	default:
		logger.Debugf("ignoring the multipart reply: type=%T", v.Body)
	}

	return nil
}

func (r *session) Run(ctx context.Context) {
	sessionCtx, canceller := context.WithCancel(ctx)
	defer canceller()
	// This canceller will be used to disconnect this session when it is necessary.
	r.canceller = canceller
	r.ctx = sessionCtx

	if err := r.transceiver.Run(sessionCtx); err != nil {
		logger.Errorf("openflow transceiver is unexpectedly closed: %v", err)
	}

	r.transceiver.Close()
	if r.device != nil {
		logger.Infof("disconnected device (ID=%v)", r.device.ID())
		r.controller.cancellers.pop(r.device.ID())
		r.controller.RemoveDevice(r.device)
	}
}
