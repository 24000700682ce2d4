// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var (
	testSrc4 = net.IPv4(192, 0, 2, 100).To4()
	testDst4 = net.IPv4(192, 0, 2, 1).To4()
	testSrc6 = net.ParseIP("2001:db8::100")
	testDst6 = net.ParseIP("2001:db8::1")
)

func marshalEcho(t *testing.T, typ icmp.Type, id, seq, n int) []byte {
	m := icmp.Message{Type: typ, Body: &icmp.Echo{ID: id, Seq: seq, Data: make([]byte, n)}}
	b, err := m.Marshal(nil)
	require.NoError(t, err)
	return b
}

// quotedIPv4 returns an IPv4 datagram carrying p in network byte
// order, as quoted by ICMP error messages.
func quotedIPv4(src, dst net.IP, p []byte) []byte {
	b := make([]byte, ipv4.HeaderLen, ipv4.HeaderLen+len(p))
	b[0] = 0x45
	binary.BigEndian.PutUint16(b[2:4], uint16(ipv4.HeaderLen+len(p)))
	b[6] = 0x40 // DF
	b[8] = defaultHops
	b[9] = ianaProtocolICMP
	copy(b[12:16], src.To4())
	copy(b[16:20], dst.To4())
	return append(b, p...)
}

func quotedIPv6(src, dst net.IP, p []byte) []byte {
	b := make([]byte, ipv6.HeaderLen, ipv6.HeaderLen+len(p))
	b[0] = 0x60
	binary.BigEndian.PutUint16(b[4:6], uint16(len(p)))
	b[6] = ianaProtocolIPv6ICMP
	b[7] = defaultHops
	copy(b[8:24], src.To16())
	copy(b[24:40], dst.To16())
	return append(b, p...)
}

func TestFragmentationNeeded(t *testing.T) {
	echo := marshalEcho(t, ipv4.ICMPTypeEcho, 0x1234, 7, 1472)
	em := icmp.Message{
		Type: ipv4.ICMPTypeDestinationUnreachable,
		Code: icmpCodeFragNeeded,
		Body: &icmp.DstUnreach{Data: quotedIPv4(testSrc4, testDst4, echo[:icmpEchoHeaderLen])},
	}
	b, err := em.Marshal(nil)
	require.NoError(t, err)
	binary.BigEndian.PutUint16(b[6:8], 1400)

	m, err := icmp.ParseMessage(ianaProtocolICMP, b)
	require.NoError(t, err)
	assert.True(t, isTooBig(m))
	assert.Equal(t, 1400, nextHopMTU(m, b))

	dst, oe, err := origEcho(m)
	require.NoError(t, err)
	assert.True(t, dst.Equal(testDst4))
	assert.True(t, icmpCookie(ianaProtocolICMP, 0x1234, 7).match(ianaProtocolICMP, oe.ID, oe.Seq, false))

	em.Code = 1 // host unreachable
	b, err = em.Marshal(nil)
	require.NoError(t, err)
	m, err = icmp.ParseMessage(ianaProtocolICMP, b)
	require.NoError(t, err)
	assert.False(t, isTooBig(m))
	assert.Zero(t, nextHopMTU(m, b))
}

func TestPacketTooBig(t *testing.T) {
	echo := marshalEcho(t, ipv6.ICMPTypeEchoRequest, 0x4321, 9, 1452)
	em := icmp.Message{
		Type: ipv6.ICMPTypePacketTooBig,
		Body: &icmp.PacketTooBig{MTU: 1480, Data: quotedIPv6(testSrc6, testDst6, echo[:64])},
	}
	b, err := em.Marshal(nil)
	require.NoError(t, err)

	m, err := icmp.ParseMessage(ianaProtocolIPv6ICMP, b)
	require.NoError(t, err)
	assert.True(t, isTooBig(m))
	assert.Equal(t, 1480, nextHopMTU(m, b))

	dst, oe, err := origEcho(m)
	require.NoError(t, err)
	assert.True(t, dst.Equal(testDst6))
	assert.Equal(t, 0x4321, oe.ID)
	assert.Equal(t, 9, oe.Seq)
}

func TestOrigEchoRejectsForeignDatagrams(t *testing.T) {
	udp := make([]byte, 8)
	inner := quotedIPv4(testSrc4, testDst4, udp)
	inner[9] = 17
	em := icmp.Message{
		Type: ipv4.ICMPTypeDestinationUnreachable,
		Code: icmpCodeFragNeeded,
		Body: &icmp.DstUnreach{Data: inner},
	}
	b, err := em.Marshal(nil)
	require.NoError(t, err)
	m, err := icmp.ParseMessage(ianaProtocolICMP, b)
	require.NoError(t, err)
	_, _, err = origEcho(m)
	assert.Error(t, err)

	reply := marshalEcho(t, ipv4.ICMPTypeEchoReply, 1, 1, 0)
	em.Body = &icmp.DstUnreach{Data: quotedIPv4(testSrc4, testDst4, reply)}
	b, err = em.Marshal(nil)
	require.NoError(t, err)
	m, err = icmp.ParseMessage(ianaProtocolICMP, b)
	require.NoError(t, err)
	_, _, err = origEcho(m)
	assert.Error(t, err)
}

func TestCookie(t *testing.T) {
	c := icmpCookie(ianaProtocolICMP, 0x1234, 7)
	assert.Equal(t, 0x1234, c.icmpID())
	assert.Equal(t, 7, c.icmpSeq())
	assert.Equal(t, ianaProtocolICMP, c.protocol())

	assert.True(t, c.match(ianaProtocolICMP, 0x1234, 7, false))
	assert.False(t, c.match(ianaProtocolICMP, 0x1235, 7, false))
	assert.True(t, c.match(ianaProtocolICMP, 0x1235, 7, true))
	assert.False(t, c.match(ianaProtocolICMP, 0x1234, 8, true))
	assert.False(t, c.match(ianaProtocolIPv6ICMP, 0x1234, 7, false))
	assert.True(t, c.match(ianaProtocolICMP, 0x11234, 0x10007, false))
}

func TestNextEchoID(t *testing.T) {
	ids := make(map[int]bool)
	for i := 0; i < 16; i++ {
		id := nextEchoID()
		assert.False(t, ids[id], "echo identifier %#x reused", id)
		assert.LessOrEqual(t, id, 0xffff)
		ids[id] = true
	}
}

func TestOverhead(t *testing.T) {
	assert.Equal(t, 28, overhead(testDst4))
	assert.Equal(t, 48, overhead(testDst6))
}

func TestReachable(t *testing.T) {
	assert.True(t, reachable(testDst4, &net.IPAddr{IP: testDst4}))
	assert.True(t, reachable(testDst6, &net.UDPAddr{IP: testDst6}))
	assert.False(t, reachable(testDst4, &net.IPAddr{IP: testSrc4}))
	assert.False(t, reachable(testDst4, &net.TCPAddr{IP: testDst4}))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "reply", Reply.String())
	assert.Equal(t, "no-reply", NoReply.String())
	assert.Equal(t, "path-too-small", PathTooSmall.String())
	assert.Equal(t, "outcome(7)", Outcome(7).String())
}

func TestEgressMTU(t *testing.T) {
	e := Egress{LinkMTU: 9000, RouteMTU: 1500}
	assert.Equal(t, 1500, e.MTU())
	e.RouteMTU = 0
	assert.Equal(t, 9000, e.MTU())
}
