// Copyright 2014 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// See golang.org/x/net/internal/iana.
	ianaProtocolICMP     = 1
	ianaProtocolIPv6ICMP = 58

	icmpEchoHeaderLen  = 8
	icmpCodeFragNeeded = 4 // fragmentation needed and DF set
)

var errNotICMPError = errors.New("non-icmp error message")

// overhead returns the number of IP and ICMP echo header bytes in a
// probe toward ip.
func overhead(ip net.IP) int {
	if ip.To4() != nil {
		return ipv4.HeaderLen + icmpEchoHeaderLen
	}
	return ipv6.HeaderLen + icmpEchoHeaderLen
}

// isTooBig reports whether m is an explicit signal that a datagram
// exceeded the MTU of a link.
func isTooBig(m *icmp.Message) bool {
	switch m.Type {
	case ipv4.ICMPTypeDestinationUnreachable:
		return m.Code == icmpCodeFragNeeded
	case ipv6.ICMPTypePacketTooBig:
		return true
	}
	return false
}

// nextHopMTU returns the MTU advertised in too-big message m, whose
// wire format is b. It returns zero when no value is available.
func nextHopMTU(m *icmp.Message, b []byte) int {
	switch body := m.Body.(type) {
	case *icmp.PacketTooBig:
		return body.MTU
	case *icmp.DstUnreach:
		// RFC 1191 places the next-hop MTU in the low-order 16 bits
		// of the unused header field.
		if m.Code == icmpCodeFragNeeded && len(b) >= icmpEchoHeaderLen {
			return int(binary.BigEndian.Uint16(b[6:8]))
		}
	}
	return 0
}

// parseICMPError returns the header and payload of the original
// datagram quoted in ICMP error message m.
func parseICMPError(m *icmp.Message) (interface{}, []byte, error) {
	var b []byte
	switch body := m.Body.(type) {
	case *icmp.DstUnreach:
		b = body.Data
	case *icmp.PacketTooBig:
		b = body.Data
	case *icmp.TimeExceeded:
		b = body.Data
	case *icmp.ParamProb:
		b = body.Data
	}
	if len(b) == 0 {
		return nil, nil, errNotICMPError
	}

	var iph interface{}
	switch m.Type.Protocol() {
	case ianaProtocolICMP:
		h, err := icmp.ParseIPv4Header(b) // cannot use ipv4.ParseHeader for this purpose
		if err != nil {
			return nil, nil, err
		}
		if len(b) < ipv4.HeaderLen+len(h.Options)+icmpEchoHeaderLen {
			return nil, nil, fmt.Errorf("ICMP error message too short: %v, %d", m.Type, m.Code)
		}
		b = b[ipv4.HeaderLen+len(h.Options):]
		iph = h
	case ianaProtocolIPv6ICMP:
		h, err := ipv6.ParseHeader(b)
		if err != nil {
			return nil, nil, err
		}
		if len(b) < ipv6.HeaderLen+icmpEchoHeaderLen {
			return nil, nil, fmt.Errorf("ICMP error message too short: %v, %d", m.Type, m.Code)
		}
		b = b[ipv6.HeaderLen:]
		iph = h
	default:
		return nil, nil, errNotICMPError
	}
	return iph, b, nil
}

// origEcho returns the destination and the echo request quoted in ICMP
// error message m.
func origEcho(m *icmp.Message) (net.IP, *icmp.Echo, error) {
	iph, b, err := parseICMPError(m)
	if err != nil {
		return nil, nil, err
	}
	var dst net.IP
	switch h := iph.(type) {
	case *ipv4.Header:
		if h.Protocol != ianaProtocolICMP {
			return nil, nil, errNotICMPError
		}
		dst = h.Dst
	case *ipv6.Header:
		if h.NextHeader != ianaProtocolIPv6ICMP {
			return nil, nil, errNotICMPError
		}
		dst = h.Dst
	}
	om, err := icmp.ParseMessage(m.Type.Protocol(), b)
	if err != nil {
		return nil, nil, err
	}
	if om.Type != ipv4.ICMPTypeEcho && om.Type != ipv6.ICMPTypeEchoRequest {
		return nil, nil, errNotICMPError
	}
	echo, ok := om.Body.(*icmp.Echo)
	if !ok {
		return nil, nil, errNotICMPError
	}
	return dst, echo, nil
}

// reachable reports whether peer is the address of dst.
func reachable(dst net.IP, peer net.Addr) bool {
	switch peer := peer.(type) {
	case *net.IPAddr:
		return dst.Equal(peer.IP)
	case *net.UDPAddr:
		return dst.Equal(peer.IP)
	default:
		return false
	}
}

func peerIP(peer net.Addr) net.IP {
	switch peer := peer.(type) {
	case *net.IPAddr:
		return peer.IP
	case *net.UDPAddr:
		return peer.IP
	}
	return nil
}
