// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pmtud

import (
	"net"

	"github.com/vishvananda/netlink"
)

// LookupEgress asks the kernel routing table for the route toward dst.
func LookupEgress(dst net.IP) (*Egress, error) {
	routes, err := netlink.RouteGet(dst)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, &net.AddrError{Err: "no route", Addr: dst.String()}
	}
	rt := routes[0]
	link, err := netlink.LinkByIndex(rt.LinkIndex)
	if err != nil {
		return nil, err
	}
	attrs := link.Attrs()
	return &Egress{
		Interface: attrs.Name,
		Index:     attrs.Index,
		LinkMTU:   attrs.MTU,
		RouteMTU:  rt.MTU,
		Gateway:   rt.Gw,
		Src:       rt.Src,
	}, nil
}
