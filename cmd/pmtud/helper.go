// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"net"
	"strings"
	"time"

	"github.com/mikioh/ipaddr"
)

// parseDsts returns up to max destination addresses described by s.
// S is a host name, an IP address, an IP address prefix, or a
// comma-separated list of them.
func parseDsts(s string, ipv4only, ipv6only bool, max int) ([]net.IP, error) {
	var ps []ipaddr.Prefix
	for _, s := range strings.Split(s, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(s); err == nil {
			ps = append(ps, *ipaddr.NewPrefix(n))
			continue
		}
		if ip := net.ParseIP(s); ip != nil {
			ps = append(ps, *newPrefix(ip))
			continue
		}
		ips, err := net.LookupIP(s)
		if err != nil {
			return nil, err
		}
		for _, ip := range ips {
			ps = append(ps, *newPrefix(ip))
		}
	}
	if len(ps) == 0 {
		return nil, &net.AddrError{Err: "failed to resolve", Addr: s}
	}

	var ips []net.IP
	c := ipaddr.NewCursor(ps)
	for pos := c.First(); pos != nil && len(ips) < max; pos = c.Next() {
		if ipv4only && pos.IP.To4() == nil || ipv6only && pos.IP.To4() != nil {
			continue
		}
		ip := make(net.IP, len(pos.IP))
		copy(ip, pos.IP)
		ips = append(ips, ip)
	}
	if len(ips) == 0 {
		return nil, &net.AddrError{Err: "no address of requested family", Addr: s}
	}
	return ips, nil
}

func newPrefix(ip net.IP) *ipaddr.Prefix {
	var p ipaddr.Prefix
	if ip4 := ip.To4(); ip4 != nil {
		p.IP = ip4
		p.Mask = net.CIDRMask(ipaddr.IPv4PrefixLen, ipaddr.IPv4PrefixLen)
	} else {
		p.IP = ip
		p.Mask = net.CIDRMask(ipaddr.IPv6PrefixLen, ipaddr.IPv6PrefixLen)
	}
	return &p
}

func revLookup(address string) string {
	type racer struct {
		names []string
		error
	}
	lane := make(chan racer, 1)
	go func() {
		names, err := net.LookupAddr(address)
		lane <- racer{names, err}
	}()
	t := time.NewTimer(500 * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return ""
	case r := <-lane:
		if r.error != nil || len(r.names) == 0 {
			return ""
		}
		return strings.TrimSuffix(r.names[0], ".")
	}
}

func parseSrc(s string) (net.IP, error) {
	if s == "" {
		return nil, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, &net.AddrError{Err: "invalid source address", Addr: s}
	}
	return ip, nil
}
