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

// Instruction is a flow instruction. Type is the wire type code of the
// negotiated version and decides which of the other fields are used.
type Instruction struct {
	Type uint16
	// GOTO_TABLE
	TableID uint8
	// WRITE_METADATA
	Metadata     uint64
	MetadataMask uint64
	// WRITE_ACTIONS and APPLY_ACTIONS
	Actions []Action
	// METER
	MeterID uint32
	// EXPERIMENTER
	Experimenter uint32
	Data         []byte
	// Raw is the whole TLV of an instruction that no registered
	// deserializer recognized. It is written back as is.
	Raw []byte
}

// Action is a flow action. Type is the wire type code of the negotiated
// version and decides which of the other fields are used.
type Action struct {
	Type uint16
	// OUTPUT
	Port   uint32
	MaxLen uint16
	// SET_MPLS_TTL and SET_NW_TTL
	TTL uint8
	// PUSH_VLAN, PUSH_MPLS, PUSH_PBB and POP_MPLS
	EtherType uint16
	// SET_QUEUE
	QueueID uint32
	// GROUP
	GroupID uint32
	// SET_FIELD carries exactly one field.
	Field *Match
	// EXPERIMENTER
	Experimenter uint32
	Data         []byte
	// Raw is the whole TLV of an action that no registered deserializer
	// recognized. It is written back as is.
	Raw []byte
}
