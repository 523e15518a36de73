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
	"fmt"

	"github.com/superkkt/ofdriver/openflow"
)

// Partition is a logical partition of the store.
type Partition int

const (
	// Configured holds the flows that the controller intends to install.
	Configured Partition = iota
	// Operational holds the flows that the switches actually report.
	Operational
)

func (r Partition) String() string {
	switch r {
	case Configured:
		return "configured"
	case Operational:
		return "operational"
	default:
		return fmt.Sprintf("Partition(%d)", int(r))
	}
}

// Flow is a flow as it is kept in the store. TableID and Priority are
// optional in the stored data, but a flow without them cannot be keyed.
type Flow struct {
	ID           string
	TableID      *uint8
	Priority     *uint16
	Cookie       *uint64
	Match        openflow.Match
	Instructions []openflow.Instruction
	Name         string
	IdleTimeout  uint16
	HardTimeout  uint16
	Flags        uint16
}

type Table struct {
	ID    uint8
	Flows []Flow
}

// FlowCapableNode is the flow capable augmentation of a node.
type FlowCapableNode struct {
	Tables []Table
}

type Node struct {
	ID          string
	FlowCapable *FlowCapableNode
}

// NodePath returns the store path of the node whose ID is id.
func NodePath(id string) string {
	return "/nodes/node/" + id
}
