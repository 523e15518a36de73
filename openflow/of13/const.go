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

package of13

import (
	"github.com/superkkt/ofdriver/openflow"
)

const Version = openflow.OF13_VERSION

const (
	/* Immutable messages. */
	OFPT_HELLO        uint8 = iota /* Symmetric message */
	OFPT_ERROR                     /* Symmetric message */
	OFPT_ECHO_REQUEST              /* Symmetric message */
	OFPT_ECHO_REPLY                /* Symmetric message */
	OFPT_EXPERIMENTER              /* Symmetric message */
	/* Switch configuration messages. */
	OFPT_FEATURES_REQUEST   /* Controller/switch message */
	OFPT_FEATURES_REPLY     /* Controller/switch message */
	OFPT_GET_CONFIG_REQUEST /* Controller/switch message */
	OFPT_GET_CONFIG_REPLY   /* Controller/switch message */
	OFPT_SET_CONFIG         /* Controller/switch message */
	/* Asynchronous messages. */
	OFPT_PACKET_IN    /* Async message */
	OFPT_FLOW_REMOVED /* Async message */
	OFPT_PORT_STATUS  /* Async message */
	/* Controller command messages. */
	OFPT_PACKET_OUT /* Controller/switch message */
	OFPT_FLOW_MOD   /* Controller/switch message */
	OFPT_GROUP_MOD  /* Controller/switch message */
	OFPT_PORT_MOD   /* Controller/switch message */
	OFPT_TABLE_MOD  /* Controller/switch message */
	/* Multipart messages. */
	OFPT_MULTIPART_REQUEST /* Controller/switch message */
	OFPT_MULTIPART_REPLY   /* Controller/switch message */
	/* Barrier messages. */
	OFPT_BARRIER_REQUEST /* Controller/switch message */
	OFPT_BARRIER_REPLY   /* Controller/switch message */
)

const (
	/* Description of this OpenFlow switch. */
	OFPMP_DESC uint16 = 0
	/* Individual flow statistics. */
	OFPMP_FLOW uint16 = 1
	/* Aggregate flow statistics. */
	OFPMP_AGGREGATE uint16 = 2
	/* Flow table statistics. */
	OFPMP_TABLE uint16 = 3
	/* Port statistics. */
	OFPMP_PORT_STATS uint16 = 4
	/* Queue statistics for a port. */
	OFPMP_QUEUE uint16 = 5
	/* Group counter statistics. */
	OFPMP_GROUP uint16 = 6
	/* Group description. */
	OFPMP_GROUP_DESC uint16 = 7
	/* Group features. */
	OFPMP_GROUP_FEATURES uint16 = 8
	/* Meter statistics. */
	OFPMP_METER uint16 = 9
	/* Meter configuration. */
	OFPMP_METER_CONFIG uint16 = 10
	/* Meter features. */
	OFPMP_METER_FEATURES uint16 = 11
	/* Table features. */
	OFPMP_TABLE_FEATURES uint16 = 12
	/* Port description. */
	OFPMP_PORT_DESC uint16 = 13
	/* Experimenter extension. */
	OFPMP_EXPERIMENTER uint16 = 0xffff
)

const (
	OFPMPF_REQ_MORE   uint16 = 1 << 0 /* More requests to follow. */
	OFPMPF_REPLY_MORE uint16 = 1 << 0 /* More replies to follow. */
)

const (
	OFPMT_STANDARD uint16 = 0 /* Deprecated. */
	OFPMT_OXM      uint16 = 1 /* OpenFlow Extensible Match */
)

const (
	OFPXMT_OFB_IN_PORT        uint8 = iota /* Switch input port. */
	OFPXMT_OFB_IN_PHY_PORT                 /* Switch physical input port. */
	OFPXMT_OFB_METADATA                    /* Metadata passed between tables. */
	OFPXMT_OFB_ETH_DST                     /* Ethernet destination address. */
	OFPXMT_OFB_ETH_SRC                     /* Ethernet source address. */
	OFPXMT_OFB_ETH_TYPE                    /* Ethernet frame type. */
	OFPXMT_OFB_VLAN_VID                    /* VLAN id. */
	OFPXMT_OFB_VLAN_PCP                    /* VLAN priority. */
	OFPXMT_OFB_IP_DSCP                     /* IP DSCP (6 bits in ToS field). */
	OFPXMT_OFB_IP_ECN                      /* IP ECN (2 bits in ToS field). */
	OFPXMT_OFB_IP_PROTO                    /* IP protocol. */
	OFPXMT_OFB_IPV4_SRC                    /* IPv4 source address. */
	OFPXMT_OFB_IPV4_DST                    /* IPv4 destination address. */
	OFPXMT_OFB_TCP_SRC                     /* TCP source port. */
	OFPXMT_OFB_TCP_DST                     /* TCP destination port. */
	OFPXMT_OFB_UDP_SRC                     /* UDP source port. */
	OFPXMT_OFB_UDP_DST                     /* UDP destination port. */
	OFPXMT_OFB_SCTP_SRC                    /* SCTP source port. */
	OFPXMT_OFB_SCTP_DST                    /* SCTP destination port. */
	OFPXMT_OFB_ICMPV4_TYPE                 /* ICMP type. */
	OFPXMT_OFB_ICMPV4_CODE                 /* ICMP code. */
	OFPXMT_OFB_ARP_OP                      /* ARP opcode. */
	OFPXMT_OFB_ARP_SPA                     /* ARP source IPv4 address. */
	OFPXMT_OFB_ARP_TPA                     /* ARP target IPv4 address. */
	OFPXMT_OFB_ARP_SHA                     /* ARP source hardware address. */
	OFPXMT_OFB_ARP_THA                     /* ARP target hardware address. */
	OFPXMT_OFB_IPV6_SRC                    /* IPv6 source address. */
	OFPXMT_OFB_IPV6_DST                    /* IPv6 destination address. */
	OFPXMT_OFB_IPV6_FLABEL                 /* IPv6 Flow Label */
	OFPXMT_OFB_ICMPV6_TYPE                 /* ICMPv6 type. */
	OFPXMT_OFB_ICMPV6_CODE                 /* ICMPv6 code. */
	OFPXMT_OFB_IPV6_ND_TARGET              /* Target address for ND. */
	OFPXMT_OFB_IPV6_ND_SLL                 /* Source link-layer for ND. */
	OFPXMT_OFB_IPV6_ND_TLL                 /* Target link-layer for ND. */
	OFPXMT_OFB_MPLS_LABEL                  /* MPLS label. */
	OFPXMT_OFB_MPLS_TC                     /* MPLS TC. */
	OFPXMT_OFP_MPLS_BOS                    /* MPLS BoS bit. */
	OFPXMT_OFB_PBB_ISID                    /* PBB I-SID. */
	OFPXMT_OFB_TUNNEL_ID                   /* Logical Port Metadata. */
	OFPXMT_OFB_IPV6_EXTHDR                 /* IPv6 Extension Header pseudo-field */
)

const (
	// ONF extension of TCP flags for OpenFlow 1.3.
	ONF_EXPERIMENTER_ID  uint32 = 0x4F4E4600
	ONF_OXM_TCP_FLAGS    uint8  = 42
	OFPVID_PRESENT       uint16 = 0x1000 /* Bit that indicate that a VLAN id is set */
	OFPVID_NONE          uint16 = 0x0000 /* No VLAN id was set. */
	OFP_VLAN_ETHER_TYPE  uint16 = 0x8100
	OFP_DEFAULT_PRIORITY uint16 = 0x8000
	OFP_NO_BUFFER        uint32 = 0xffffffff
)

const (
	OFPIT_GOTO_TABLE     uint16 = 1      /* Setup the next table in the lookup pipeline */
	OFPIT_WRITE_METADATA uint16 = 2      /* Setup the metadata field for use later in pipeline */
	OFPIT_WRITE_ACTIONS  uint16 = 3      /* Write the action(s) onto the datapath action set */
	OFPIT_APPLY_ACTIONS  uint16 = 4      /* Applies the action(s) immediately */
	OFPIT_CLEAR_ACTIONS  uint16 = 5      /* Clears all actions from the datapath action set */
	OFPIT_METER          uint16 = 6      /* Apply meter (rate limiter) */
	OFPIT_EXPERIMENTER   uint16 = 0xFFFF /* Experimenter instruction */
)

const (
	OFPAT_OUTPUT       uint16 = 0  /* Output to switch port. */
	OFPAT_COPY_TTL_OUT uint16 = 11 /* Copy TTL "outwards" */
	OFPAT_COPY_TTL_IN  uint16 = 12 /* Copy TTL "inwards" */
	OFPAT_SET_MPLS_TTL uint16 = 15 /* MPLS TTL */
	OFPAT_DEC_MPLS_TTL uint16 = 16 /* Decrement MPLS TTL */
	OFPAT_PUSH_VLAN    uint16 = 17 /* Push a new VLAN tag */
	OFPAT_POP_VLAN     uint16 = 18 /* Pop the outer VLAN tag */
	OFPAT_PUSH_MPLS    uint16 = 19 /* Push a new MPLS tag */
	OFPAT_POP_MPLS     uint16 = 20 /* Pop the outer MPLS tag */
	OFPAT_SET_QUEUE    uint16 = 21 /* Set queue id when outputting to a port */
	OFPAT_GROUP        uint16 = 22 /* Apply group. */
	OFPAT_SET_NW_TTL   uint16 = 23 /* IP TTL. */
	OFPAT_DEC_NW_TTL   uint16 = 24 /* Decrement IP TTL. */
	OFPAT_SET_FIELD    uint16 = 25 /* Set a header field using OXM TLV format. */
	OFPAT_PUSH_PBB     uint16 = 26 /* Push a new PBB service tag (I-TAG) */
	OFPAT_POP_PBB      uint16 = 27 /* Pop the outer PBB service tag (I-TAG) */
	OFPAT_EXPERIMENTER uint16 = 0xffff
)

const (
	OFPFC_ADD           uint8 = iota /* New flow. */
	OFPFC_MODIFY                     /* Modify all matching flows. */
	OFPFC_MODIFY_STRICT              /* Modify entry strictly matching wildcards and priority. */
	OFPFC_DELETE                     /* Delete all matching flows. */
	OFPFC_DELETE_STRICT              /* Delete entry strictly matching wildcards and priority. */
)

const (
	OFPFF_SEND_FLOW_REM uint16 = 1 << 0 /* Send flow removed message when flow expires or is deleted. */
	OFPFF_CHECK_OVERLAP uint16 = 1 << 1 /* Check for overlapping entries first. */
	OFPFF_RESET_COUNTS  uint16 = 1 << 2 /* Reset flow packet and byte counts. */
	OFPFF_NO_PKT_COUNTS uint16 = 1 << 3 /* Don't keep track of packet count. */
	OFPFF_NO_BYT_COUNTS uint16 = 1 << 4 /* Don't keep track of byte count. */
)

const (
	OFPRR_IDLE_TIMEOUT uint8 = iota /* Flow idle time exceeded idle_timeout. */
	OFPRR_HARD_TIMEOUT              /* Time exceeded hard_timeout. */
	OFPRR_DELETE                    /* Evicted by a DELETE flow mod. */
	OFPRR_GROUP_DELETE              /* Group was removed. */
)

const (
	OFPP_MAX        uint32 = 0xffffff00
	OFPP_IN_PORT    uint32 = 0xfffffff8
	OFPP_TABLE      uint32 = 0xfffffff9
	OFPP_NORMAL     uint32 = 0xfffffffa
	OFPP_FLOOD      uint32 = 0xfffffffb
	OFPP_ALL        uint32 = 0xfffffffc
	OFPP_CONTROLLER uint32 = 0xfffffffd
	OFPP_LOCAL      uint32 = 0xfffffffe
	OFPP_ANY        uint32 = 0xffffffff
)

const (
	OFPTT_MAX uint8  = 0xfe
	OFPTT_ALL uint8  = 0xff
	OFPG_ANY  uint32 = 0xffffffff
	OFPQ_ALL  uint32 = 0xffffffff
	OFPM_ALL  uint32 = 0xffffffff
)
