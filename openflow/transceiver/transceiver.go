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

package transceiver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of10"
	"github.com/superkkt/ofdriver/openflow/of13"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("transceiver")
)

const (
	// Allowed idle time before we send an echo request to a switch.
	maxIdleTime = 10 * time.Second
	// I/O timeouts (These timeouts should be less than maxIdleTime).
	readTimeout  = 1 * time.Second
	writeTimeout = readTimeout * 2
)

type Writer interface {
	// Version returns the negotiated protocol version. It is zero before
	// the negotiation.
	Version() uint8
	// NewTransactionID returns a new transaction ID starting from 1.
	NewTransactionID() uint32
	Write(msg openflow.Message) error
}

// Features is the version independent content of FEATURES_REPLY.
type Features struct {
	DPID       uint64
	NumBuffers uint32
	NumTables  uint8
}

type Handler interface {
	OnHello(Writer, *openflow.Hello) error
	OnError(Writer, *openflow.Error) error
	OnFeaturesReply(Writer, Features) error
	OnFlowRemoved(Writer, *of13.FlowRemoved) error
	OnMultipartReply(Writer, *of13.MultipartReply) error
}

type Transceiver struct {
	stream   *Stream
	codec    *openflow.Codec
	observer Handler
	version  atomic.Uint32
	xid      atomic.Uint32

	// Only the reader goroutine touches pingCounter.
	pingCounter uint
	closeOnce   sync.Once
}

func NewTransceiver(stream *Stream, codec *openflow.Codec, handler Handler) *Transceiver {
	if stream == nil {
		panic("stream is nil")
	}
	if codec == nil {
		panic("codec is nil")
	}
	if handler == nil {
		panic("handler is nil")
	}

	return &Transceiver{
		stream:   stream,
		codec:    codec,
		observer: handler,
	}
}

func (r *Transceiver) Version() uint8 {
	return uint8(r.version.Load())
}

func (r *Transceiver) NewTransactionID() uint32 {
	// Transaction ID will be started from 1, not 0.
	return r.xid.Add(1)
}

func isTimeout(err error) bool {
	type Timeout interface {
		Timeout() bool
	}

	if v, ok := errors.Cause(err).(Timeout); ok {
		return v.Timeout()
	}

	return false
}

func (r *Transceiver) newEchoRequest(data []byte) (openflow.Message, error) {
	switch r.Version() {
	case openflow.OF10_VERSION:
		return of10.NewEchoRequest(r.NewTransactionID(), data), nil
	case openflow.OF13_VERSION:
		return of13.NewEchoRequest(r.NewTransactionID(), data), nil
	default:
		return nil, openflow.ErrUnsupportedVersion
	}
}

func (r *Transceiver) sendEchoRequest() error {
	if r.pingCounter > 2 {
		return errors.New("device does not respond to our echo request")
	}

	// We use current timestamp to check network latency between our controller and a switch.
	timestamp, err := time.Now().GobEncode()
	if err != nil {
		return err
	}
	echo, err := r.newEchoRequest(timestamp)
	if err != nil {
		return err
	}
	if err := r.Write(echo); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REQUEST message")
	}
	r.pingCounter++

	return nil
}

func (r *Transceiver) Run(ctx context.Context) error {
	defer logger.Info("transceiver is closed")
	r.stream.SetReadTimeout(readTimeout)
	r.stream.SetWriteTimeout(writeTimeout)

	readerCtx, cancelReader := context.WithCancel(ctx)
	defer cancelReader()
	reader := r.runReader(readerCtx)

	// Negotiate the protocol version
	packet, err := r.negotiate(ctx, reader)
	if err != nil {
		return errors.Wrap(err, "failed to negotiate the protocol version")
	}

	for {
		if err := r.dispatch(packet); err != nil {
			return err
		}

		// Read the next packet
		var ok bool
		select {
		case <-ctx.Done():
			logger.Info("context done")
			return nil
		case packet, ok = <-reader:
			if !ok {
				logger.Info("the reader channel is closed")
				return nil
			}
		}
	}
}

func (r *Transceiver) negotiate(ctx context.Context, reader <-chan []byte) (packet []byte, err error) {
	select {
	case <-ctx.Done():
		return nil, errors.New("context done")
	case <-time.After(30 * time.Second):
		return nil, errors.New("inactive for too long")
	case packet, ok := <-reader:
		if !ok {
			return nil, errors.New("the reader channel is closed")
		}
		// The first message should be HELLO.
		if packet[1] != of13.OFPT_HELLO {
			return nil, errors.New("missing HELLO message")
		}

		if packet[0] < openflow.OF13_VERSION {
			r.version.Store(openflow.OF10_VERSION)
			logger.Info("negotiated to openflow version 1.0")
		} else {
			r.version.Store(openflow.OF13_VERSION)
			logger.Info("negotiated to openflow version 1.3")
		}

		// Return the initial packet to dispatch it.
		return packet, nil
	}
}

func (r *Transceiver) runReader(ctx context.Context) <-chan []byte {
	c := make(chan []byte, 4096)
	go func() {
		// The channel c will be closed when this goroutine returns in order to notice the connection has been closed.
		defer close(c)
		defer logger.Info("transceiver reader is closed")

		lastActivated := time.Now()
		for {
			select {
			case <-ctx.Done():
				logger.Info("context done")
				return
			default:
			}

			packet, err := r.stream.ReadPacket()
			if err != nil {
				if !isTimeout(err) {
					logger.Errorf("failed to read the next packet: %v", err)
					return
				}
				// Send a ping request if the switch has been idle for too long.
				if r.Version() != 0 && time.Now().After(lastActivated.Add(maxIdleTime)) {
					if err := r.sendEchoRequest(); err != nil {
						logger.Errorf("failed to send an echo request: %v", err)
						return
					}
				}
				continue
			}
			lastActivated = time.Now()

			ok, err := r.handleEcho(packet)
			if err != nil {
				logger.Errorf("failed to handle the echo request or response: %v", err)
				return
			}
			if ok {
				continue
			}

			select {
			case c <- packet:
			case <-ctx.Done():
				return
			}
		}
	}()

	return c
}

// handleEcho answers ECHO_REQUEST and consumes ECHO_REPLY. The type codes
// of both messages are the same in OpenFlow 1.0 and 1.3.
func (r *Transceiver) handleEcho(packet []byte) (handled bool, err error) {
	if r.Version() == 0 {
		return false, nil
	}

	switch packet[1] {
	case of13.OFPT_ECHO_REQUEST, of13.OFPT_ECHO_REPLY:
	default:
		return false, nil
	}

	msg, err := r.codec.Decode(packet)
	if err != nil {
		return true, err
	}
	switch v := msg.(type) {
	case *openflow.EchoRequest:
		return true, r.handleEchoRequest(v)
	case *openflow.EchoReply:
		r.handleEchoReply(v)
		return true, nil
	default:
		return true, fmt.Errorf("unexpected echo message: %T", msg)
	}
}

func (r *Transceiver) handleEchoRequest(v *openflow.EchoRequest) error {
	logger.Debug("received an ECHO_REQUEST packet")

	// Copy transaction ID and data from the incoming echo request message
	reply := &openflow.EchoReply{
		Header: openflow.NewHeader(v.Version(), of13.OFPT_ECHO_REPLY, v.TransactionID()),
		Data:   v.Data,
	}
	if err := r.Write(reply); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REPLY message")
	}
	logger.Debug("sent an ECHO_REPLY packet")

	return nil
}

func (r *Transceiver) handleEchoReply(v *openflow.EchoReply) {
	logger.Debug("received an ECHO_REPLY packet")

	if len(v.Data) == 0 {
		// Some switches send an echo reply without our data. Ignore it
		// instead of disconnecting the switch.
		logger.Debug("unexpected ECHO_REPLY data")
		return
	}
	timestamp := time.Time{}
	if err := timestamp.GobDecode(v.Data); err != nil {
		logger.Debug("unexpected timestamp data in the ECHO_REPLY packet")
		return
	}

	logger.Debugf("transceiver latency: %v", time.Since(timestamp))
	r.pingCounter = 0
}

func (r *Transceiver) dispatch(packet []byte) error {
	if uint32(packet[0]) != r.version.Load() {
		return fmt.Errorf("mis-matched OpenFlow version: negotiated=%v, packet=%v", r.Version(), packet[0])
	}

	msg, err := r.codec.Decode(packet)
	if err != nil {
		if errors.Cause(err) == openflow.ErrUnsupportedMessage {
			// Unsupported message. Do nothing.
			logger.Debugf("skipping the unsupported message: %v", err)
			return nil
		}
		return errors.Wrap(err, "failed to decode the packet")
	}

	switch v := msg.(type) {
	case *openflow.Hello:
		return r.observer.OnHello(r, v)
	case *openflow.Error:
		return r.observer.OnError(r, v)
	case *of10.FeaturesReply:
		return r.observer.OnFeaturesReply(r, Features{DPID: v.DPID, NumBuffers: v.NumBuffers, NumTables: v.NumTables})
	case *of13.FeaturesReply:
		return r.observer.OnFeaturesReply(r, Features{DPID: v.DPID, NumBuffers: v.NumBuffers, NumTables: v.NumTables})
	case *of13.FlowRemoved:
		return r.observer.OnFlowRemoved(r, v)
	case *of13.MultipartReply:
		return r.observer.OnMultipartReply(r, v)
	default:
		logger.Debugf("ignoring the message: type=%T", msg)
		return nil
	}
}

func (r *Transceiver) Write(msg openflow.Message) error {
	packet, err := r.codec.Encode(msg)
	if err != nil {
		return err
	}

	if _, err := r.stream.Write(packet); err != nil {
		return err
	}

	return nil
}

func (r *Transceiver) Close() error {
	var err error
	r.closeOnce.Do(func() { err = r.stream.Close() })

	return err
}
