// Copyright 2014 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"context"
	"net"
	"runtime"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const defaultHops = 64

// A conn represents a probe endpoint that never lets the local stack
// fragment outgoing probes.
type conn struct {
	protocol  int            // protocol number
	rawSocket bool           // true if c is a raw socket
	ip        net.IP         // local address of c
	c         net.PacketConn // either net.IPConn or datagram-oriented ICMP endpoint
	r4        *ipv4.RawConn  // header-included IPv4 endpoint, nil unless ip4:icmp
	p6        *ipv6.PacketConn
}

func (c *conn) close() error {
	return c.c.Close()
}

// readFrom reads an ICMP message. The IPv4 header is returned only
// when c is a header-included IPv4 endpoint.
func (c *conn) readFrom(b []byte) (*ipv4.Header, []byte, net.Addr, error) {
	if c.r4 != nil {
		h, p, _, err := c.r4.ReadFrom(b)
		if err != nil {
			return nil, nil, nil, err
		}
		return h, p, &net.IPAddr{IP: h.Src}, nil
	}
	n, peer, err := c.c.ReadFrom(b)
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, b[:n], peer, nil
}

// writeTo transmits ICMP message b to dst in a single datagram with
// the DF bit set or, for IPv6, with fragmentation disabled.
func (c *conn) writeTo(b []byte, dst net.IP) error {
	if c.r4 != nil {
		h := &ipv4.Header{
			Version:  ipv4.Version,
			Len:      ipv4.HeaderLen,
			TotalLen: ipv4.HeaderLen + len(b),
			Flags:    ipv4.DontFragment,
			TTL:      defaultHops,
			Protocol: ianaProtocolICMP,
			Dst:      dst,
		}
		if !c.ip.IsUnspecified() {
			h.Src = c.ip
		}
		return c.r4.WriteTo(h, b, nil)
	}
	var err error
	if c.rawSocket {
		_, err = c.c.WriteTo(b, &net.IPAddr{IP: dst})
	} else {
		_, err = c.c.WriteTo(b, &net.UDPAddr{IP: dst})
	}
	return err
}

func newConn(network, address string) (*conn, error) {
	switch network {
	case "ip4:icmp", "ip4:1":
		return newRawIPv4Conn(address)
	case "ip6:ipv6-icmp", "ip6:58":
		return newRawIPv6Conn(address)
	case "udp4", "udp6":
		return newDatagramConn(network, address)
	default:
		return nil, net.UnknownNetworkError(network)
	}
}

func newRawIPv4Conn(address string) (*conn, error) {
	lc := net.ListenConfig{Control: controlDontFragment}
	c, err := lc.ListenPacket(context.Background(), "ip4:icmp", address)
	if err != nil {
		return nil, err
	}
	r, err := ipv4.NewRawConn(c)
	if err != nil {
		c.Close()
		return nil, err
	}
	if runtime.GOOS == "linux" {
		var f ipv4.ICMPFilter
		f.SetAll(true)
		f.Accept(ipv4.ICMPTypeEchoReply)
		f.Accept(ipv4.ICMPTypeDestinationUnreachable)
		r.SetICMPFilter(&f)
	}
	return &conn{
		protocol:  ianaProtocolICMP,
		rawSocket: true,
		ip:        c.LocalAddr().(*net.IPAddr).IP,
		c:         c,
		r4:        r,
	}, nil
}

func newRawIPv6Conn(address string) (*conn, error) {
	lc := net.ListenConfig{Control: controlDontFragment}
	c, err := lc.ListenPacket(context.Background(), "ip6:ipv6-icmp", address)
	if err != nil {
		return nil, err
	}
	p := ipv6.NewPacketConn(c)
	var f ipv6.ICMPFilter
	f.SetAll(true)
	f.Accept(ipv6.ICMPTypeEchoReply)
	f.Accept(ipv6.ICMPTypePacketTooBig)
	p.SetICMPFilter(&f)
	return &conn{
		protocol:  ianaProtocolIPv6ICMP,
		rawSocket: true,
		ip:        c.LocalAddr().(*net.IPAddr).IP,
		c:         c,
		p6:        p,
	}, nil
}

func newDatagramConn(network, address string) (*conn, error) {
	c, err := listenDatagram(network, address)
	if err != nil {
		return nil, err
	}
	conn := conn{c: c, protocol: ianaProtocolICMP}
	if network == "udp6" {
		conn.protocol = ianaProtocolIPv6ICMP
		conn.p6 = ipv6.NewPacketConn(c)
	}
	if la, ok := c.LocalAddr().(*net.UDPAddr); ok {
		conn.ip = la.IP
	}
	return &conn, nil
}
