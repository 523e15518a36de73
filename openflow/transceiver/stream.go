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
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/superkkt/ofdriver/openflow"
)

// Stream frames OpenFlow packets on top of a byte stream.
type Stream struct {
	channel io.ReadWriteCloser

	reader struct {
		mutex   sync.Mutex
		rd      *bufio.Reader
		timeout time.Duration
	}

	writer struct {
		mutex   sync.Mutex
		timeout time.Duration
	}
}

type deadline interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// NewStream returns a new framed stream on channel. bufSize should be large
// enough to hold the largest packet, which is 64KB for OpenFlow.
func NewStream(channel io.ReadWriteCloser, bufSize int) *Stream {
	if channel == nil {
		panic("nil stream channel")
	}

	c := new(Stream)
	c.channel = channel
	c.reader.rd = bufio.NewReaderSize(channel, bufSize)

	return c
}

func (r *Stream) RemoteAddr() string {
	type addr interface {
		RemoteAddr() net.Addr
	}

	v, ok := r.channel.(addr)
	if !ok {
		return "unknown"
	}

	return v.RemoteAddr().String()
}

func (r *Stream) SetReadTimeout(t time.Duration) {
	r.reader.mutex.Lock()
	defer r.reader.mutex.Unlock()

	r.reader.timeout = t
}

func (r *Stream) SetWriteTimeout(t time.Duration) {
	r.writer.mutex.Lock()
	defer r.writer.mutex.Unlock()

	r.writer.timeout = t
}

// ReadPacket reads the next whole OpenFlow packet, including its header.
func (r *Stream) ReadPacket() ([]byte, error) {
	r.reader.mutex.Lock()
	defer r.reader.mutex.Unlock()

	if d, ok := r.channel.(deadline); ok {
		if r.reader.timeout > 0 {
			d.SetReadDeadline(time.Now().Add(r.reader.timeout))
		} else {
			d.SetReadDeadline(time.Time{})
		}
	}

	// Peek ofp_header first so that a timeout leaves the partial packet in
	// the buffer for the next call.
	header, err := r.reader.rd.Peek(openflow.HeaderLength)
	if err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(header[2:4]))
	if length < openflow.HeaderLength {
		return nil, openflow.ErrInvalidPacketLength
	}
	if _, err := r.reader.rd.Peek(length); err != nil {
		return nil, err
	}

	p := make([]byte, length)
	if _, err := io.ReadFull(r.reader.rd, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *Stream) Write(p []byte) (n int, err error) {
	r.writer.mutex.Lock()
	defer r.writer.mutex.Unlock()

	if d, ok := r.channel.(deadline); ok {
		if r.writer.timeout > 0 {
			d.SetWriteDeadline(time.Now().Add(r.writer.timeout))
		} else {
			d.SetWriteDeadline(time.Time{})
		}
	}

	return r.channel.Write(p)
}

func (r *Stream) Close() error {
	return r.channel.Close()
}
