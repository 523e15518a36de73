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
	"github.com/superkkt/ofdriver/network"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var encMode cbor.EncMode

func init() {
	var err error
	// Canonical encoding makes the same node always produce the same bytes.
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func encodeNode(node network.Node) ([]byte, error) {
	v, err := encMode.Marshal(node)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode the node")
	}

	return v, nil
}

func decodeNode(data []byte) (network.Node, error) {
	var node network.Node
	if err := cbor.Unmarshal(data, &node); err != nil {
		return network.Node{}, errors.Wrap(err, "failed to decode the node")
	}

	return node, nil
}
