// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import "net"

// An Egress represents the outbound route toward a destination.
type Egress struct {
	Interface string // outbound interface name
	Index     int    // outbound interface index
	LinkMTU   int    // MTU of the outbound interface
	RouteMTU  int    // MTU metric of the route, zero if none
	Gateway   net.IP // next-hop gateway, nil if on-link
	Src       net.IP // preferred source address, nil if unknown
}

// MTU returns the largest packet size that can leave the host toward
// the destination.
func (e *Egress) MTU() int {
	if e.RouteMTU > 0 && e.RouteMTU < e.LinkMTU {
		return e.RouteMTU
	}
	return e.LinkMTU
}

// EgressMTU returns the MTU of the outbound route toward dst.
// No packet larger than that can leave the host, so it is a natural
// upper bound for a search.
func EgressMTU(dst net.IP) (int, error) {
	e, err := LookupEgress(dst)
	if err != nil {
		return 0, err
	}
	return e.MTU(), nil
}
