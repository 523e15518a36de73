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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	alienFlowIDs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ofdriver",
		Subsystem: "flow_registry",
		Name:      "alien_ids_total",
		Help:      "Number of the alien flow IDs allocated for the flows that the controller did not author.",
	})
	fillFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ofdriver",
		Subsystem: "flow_registry",
		Name:      "fill_failures_total",
		Help:      "Number of the failed reconciliations against the store.",
	})
	skippedFlows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ofdriver",
		Subsystem: "flow_registry",
		Name:      "skipped_flows_total",
		Help:      "Number of the malformed stored flows skipped during reconciliation.",
	}, []string{"partition"})
	purgedFlows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ofdriver",
		Subsystem: "flow_registry",
		Name:      "purged_flows_total",
		Help:      "Number of the marked flows removed from the registries.",
	})
	registeredFlows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ofdriver",
		Subsystem: "flow_registry",
		Name:      "descriptors",
		Help:      "Number of the flow descriptors per node.",
	}, []string{"node"})
	connectedDevices = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ofdriver",
		Subsystem: "controller",
		Name:      "devices",
		Help:      "Number of the connected devices.",
	})
)

// RegisterMetrics registers the collectors of this package into reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		alienFlowIDs,
		fillFailures,
		skippedFlows,
		purgedFlows,
		registeredFlows,
		connectedDevices,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
