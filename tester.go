// Copyright 2014 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// probeFill pads probe payloads so that they are easy to spot in
// packet captures.
const probeFill = 'M'

// A Tester represents a path MTU prober.
// It implements Prober. Probes through a Tester are serialized, so a
// Tester may be shared by goroutines but never has more than one probe
// in flight.
type Tester struct {
	mu  sync.Mutex
	c   *conn
	id  int // ICMP echo identifier
	seq int // last ICMP echo sequence number
	buf []byte
}

// IPv4RawConn returns the ipv4.RawConn of the probe network
// connection.
// It returns nil when t is not created as a privileged tester using
// IPv4.
func (t *Tester) IPv4RawConn() *ipv4.RawConn {
	return t.c.r4
}

// IPv6PacketConn returns the ipv6.PacketConn of the probe network
// connection.
// It returns nil when t is not created as a tester using IPv6.
func (t *Tester) IPv6PacketConn() *ipv6.PacketConn {
	return t.c.p6
}

// ID returns the ICMP echo identifier used by t.
func (t *Tester) ID() int { return t.id }

// Close closes the probe network connection.
func (t *Tester) Close() error {
	return t.c.close()
}

// Probe transmits a single ICMP echo request of exactly size bytes,
// IP header included, to dst and waits up to timeout for a correlated
// echo reply or too-big signal.
func (t *Tester) Probe(ctx context.Context, dst net.IP, size int, timeout time.Duration) (*Report, error) {
	if err := t.checkFamily(dst); err != nil {
		return nil, &TransportError{Op: "probe", Size: size, Err: err}
	}
	n := size - overhead(dst)
	if n < 0 {
		return nil, &TransportError{Op: "probe", Size: size, Err: fmt.Errorf("size below %d-byte header overhead", overhead(dst))}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq = t.seq%0xffff + 1
	echo := icmp.Echo{ID: t.id, Seq: t.seq, Data: bytes.Repeat([]byte{probeFill}, n)}
	m := icmp.Message{Code: 0, Body: &echo}
	if dst.To4() != nil {
		m.Type = ipv4.ICMPTypeEcho
	} else {
		m.Type = ipv6.ICMPTypeEchoRequest
	}
	wb, err := m.Marshal(nil)
	if err != nil {
		return nil, &TransportError{Op: "marshal", Size: size, Err: err}
	}

	rt := roundTrip{
		c:       t.c,
		dst:     dst,
		cookie:  icmpCookie(t.c.protocol, echo.ID, echo.Seq),
		dataLen: n,
		size:    size,
	}
	if len(t.buf) < size+ipv4.HeaderLen {
		t.buf = make([]byte, size+ipv4.HeaderLen)
	}
	return rt.run(ctx, wb, t.buf, timeout)
}

func (t *Tester) checkFamily(dst net.IP) error {
	switch {
	case dst.To4() != nil && t.c.protocol == ianaProtocolICMP:
		return nil
	case dst.To16() != nil && dst.To4() == nil && t.c.protocol == ianaProtocolIPv6ICMP:
		return nil
	}
	return &net.AddrError{Err: "address family mismatch", Addr: dst.String()}
}

// NewTester makes a probe network connection that listens for
// incoming ICMP packets addressed to address.
// Network must specify a probe network.
// It must be "ip4:icmp", "ip4:1", "ip6:ipv6-icmp" or "ip6:58" for
// privileged raw sockets, or "udp4" or "udp6" for non-privileged
// datagram-oriented ICMP endpoints, which are available on Linux only.
//
// Examples:
//
//	NewTester("ip4:icmp", "0.0.0.0")
//	NewTester("ip6:58", "2001:db8::1")
//	NewTester("udp4", "0.0.0.0")
func NewTester(network, address string) (*Tester, error) {
	c, err := newConn(network, address)
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}
	return &Tester{c: c, id: nextEchoID()}, nil
}

// NewTesterFor makes a tester suitable for probing dst.
// The tester is bound to src when src is not nil.
func NewTesterFor(dst, src net.IP, unprivileged bool) (*Tester, error) {
	var network, address string
	switch {
	case dst.To4() != nil:
		network, address = "ip4:icmp", "0.0.0.0"
		if unprivileged {
			network = "udp4"
		}
	case dst.To16() != nil:
		network, address = "ip6:ipv6-icmp", "::"
		if unprivileged {
			network = "udp6"
		}
	default:
		return nil, &TransportError{Op: "listen", Err: errors.New("neither ipv4 nor ipv6 address")}
	}
	if src != nil {
		address = src.String()
	}
	return NewTester(network, address)
}
