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

import (
	"fmt"
)

// Kind is the family of a codec key.
type Kind uint8

const (
	KindMessage Kind = iota
	KindMultipartRequest
	KindMultipartReply
	KindMatchEntry
	KindInstruction
	KindAction
)

func (r Kind) String() string {
	switch r {
	case KindMessage:
		return "message"
	case KindMultipartRequest:
		return "multipart-request"
	case KindMultipartReply:
		return "multipart-reply"
	case KindMatchEntry:
		return "match-entry"
	case KindInstruction:
		return "instruction"
	case KindAction:
		return "action"
	default:
		return fmt.Sprintf("kind(%d)", uint8(r))
	}
}

// Key is a dispatch key of the codec registries. It is a comparable value
// so that it can be used as a map key as is.
type Key struct {
	Version uint8
	Kind    Kind
	// Code is the message type, multipart type, instruction type, action
	// type or OXM field code depending on Kind.
	Code uint16
	// Class is the OXM class. It is only meaningful for match entry keys.
	Class           uint16
	Experimenter    uint32
	HasExperimenter bool
}

func MessageKey(version, msgType uint8) Key {
	return Key{Version: version, Kind: KindMessage, Code: uint16(msgType)}
}

func MultipartRequestKey(version uint8, mpType uint16) Key {
	return Key{Version: version, Kind: KindMultipartRequest, Code: mpType}
}

func MultipartReplyKey(version uint8, mpType uint16) Key {
	return Key{Version: version, Kind: KindMultipartReply, Code: mpType}
}

func MatchEntryKey(version uint8, class uint16, field uint8) Key {
	return Key{Version: version, Kind: KindMatchEntry, Class: class, Code: uint16(field)}
}

// ExperimenterMatchEntryKey returns a match entry key qualified by the
// experimenter ID, which vendor extensions use to share a single OXM class.
func ExperimenterMatchEntryKey(version uint8, class uint16, field uint8, experimenter uint32) Key {
	return Key{
		Version:         version,
		Kind:            KindMatchEntry,
		Class:           class,
		Code:            uint16(field),
		Experimenter:    experimenter,
		HasExperimenter: true,
	}
}

func InstructionKey(version uint8, insType uint16) Key {
	return Key{Version: version, Kind: KindInstruction, Code: insType}
}

func ActionKey(version uint8, actType uint16) Key {
	return Key{Version: version, Kind: KindAction, Code: actType}
}

func (r Key) less(k Key) bool {
	if r.Version != k.Version {
		return r.Version < k.Version
	}
	if r.Kind != k.Kind {
		return r.Kind < k.Kind
	}
	if r.Class != k.Class {
		return r.Class < k.Class
	}
	if r.HasExperimenter != k.HasExperimenter {
		return !r.HasExperimenter
	}
	if r.Experimenter != k.Experimenter {
		return r.Experimenter < k.Experimenter
	}

	return r.Code < k.Code
}

func (r Key) String() string {
	switch {
	case r.Kind == KindMatchEntry && r.HasExperimenter:
		return fmt.Sprintf("%v(ver=%#x, class=%#x, field=%v, experimenter=%#x)", r.Kind, r.Version, r.Class, r.Code, r.Experimenter)
	case r.Kind == KindMatchEntry:
		return fmt.Sprintf("%v(ver=%#x, class=%#x, field=%v)", r.Kind, r.Version, r.Class, r.Code)
	default:
		return fmt.Sprintf("%v(ver=%#x, type=%v)", r.Kind, r.Version, r.Code)
	}
}
