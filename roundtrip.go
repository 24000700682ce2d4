// Copyright 2014 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// A roundTrip represents a single probe transmission and the wait for
// its correlated answer.
type roundTrip struct {
	c       *conn
	dst     net.IP
	cookie  cookie
	dataLen int // echo payload length
	size    int // probe size including IP header
}

func (rt *roundTrip) run(ctx context.Context, wb, rb []byte, timeout time.Duration) (*Report, error) {
	r := Report{Size: rt.size, Seq: rt.cookie.icmpSeq()}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := rt.c.c.SetReadDeadline(deadline); err != nil {
		return nil, &TransportError{Op: "read", Size: rt.size, Err: err}
	}
	stop := context.AfterFunc(ctx, func() {
		rt.c.c.SetReadDeadline(time.Now())
	})
	defer stop()

	begin := time.Now()
	if err := rt.c.writeTo(wb, rt.dst); err != nil {
		if isMessageTooLong(err) {
			// The local link, or the kernel path MTU cache fed by an
			// earlier explicit signal, refuses this size.
			r.Outcome = PathTooSmall
			r.MTU, _ = EgressMTU(rt.dst)
			return &r, nil
		}
		return nil, &TransportError{Op: "write", Size: rt.size, Err: err}
	}

	for {
		h, b, peer, err := rt.c.readFrom(rb)
		if err != nil {
			if err := ctx.Err(); err != nil {
				return nil, &TransportError{Op: "read", Size: rt.size, Err: err}
			}
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				r.Outcome = NoReply
				return &r, nil
			}
			return nil, &TransportError{Op: "read", Size: rt.size, Err: err}
		}
		rtt := time.Since(begin)
		m, err := icmp.ParseMessage(rt.c.protocol, b)
		if err != nil {
			continue
		}
		switch {
		case m.Type == ipv4.ICMPTypeEchoReply || m.Type == ipv6.ICMPTypeEchoReply:
			if !rt.isReply(h, m, peer) {
				continue
			}
			r.Outcome = Reply
		case isTooBig(m):
			if !rt.quotesProbe(m) {
				continue
			}
			r.Outcome = PathTooSmall
			r.MTU = nextHopMTU(m, b)
		default:
			continue
		}
		r.RTT, r.Src, r.ICMP = rtt, peerIP(peer), m
		return &r, nil
	}
}

// isReply reports whether echo reply m, carried in IPv4 header h when
// available, answers the probe in full.
// Some IP stacks ignore DF and fragment anyway; a reply that is still
// fragmented or shorter than the request does not count.
func (rt *roundTrip) isReply(h *ipv4.Header, m *icmp.Message, peer net.Addr) bool {
	echo, ok := m.Body.(*icmp.Echo)
	if !ok || !reachable(rt.dst, peer) {
		return false
	}
	if !rt.cookie.match(rt.c.protocol, echo.ID, echo.Seq, !rt.c.rawSocket) {
		return false
	}
	if len(echo.Data) != rt.dataLen {
		return false
	}
	if h != nil && (h.Flags&ipv4.MoreFragments != 0 || h.FragOff != 0) {
		return false
	}
	return true
}

// quotesProbe reports whether ICMP error message m quotes the probe.
func (rt *roundTrip) quotesProbe(m *icmp.Message) bool {
	dst, echo, err := origEcho(m)
	if err != nil || !dst.Equal(rt.dst) {
		return false
	}
	return rt.cookie.match(rt.c.protocol, echo.ID, echo.Seq, !rt.c.rawSocket)
}
