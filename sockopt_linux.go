// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pmtud

import (
	"errors"
	"net"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// setDontFragment disables fragmentation of outgoing datagrams on
// socket s. Raw sockets use the probe mode, which ignores the kernel
// path MTU cache; datagram-oriented ICMP endpoints cannot see ICMP
// errors and rely on that cache to turn them into EMSGSIZE.
func setDontFragment(s int, ipv6, useCache bool) error {
	if !ipv6 {
		mode := unix.IP_PMTUDISC_PROBE
		if useCache {
			mode = unix.IP_PMTUDISC_DO
		}
		return os.NewSyscallError("setsockopt", unix.SetsockoptInt(s, unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, mode))
	}
	mode := unix.IPV6_PMTUDISC_PROBE
	if useCache {
		mode = unix.IPV6_PMTUDISC_DO
	}
	if err := unix.SetsockoptInt(s, unix.IPPROTO_IPV6, unix.IPV6_MTU_DISCOVER, mode); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(s, unix.IPPROTO_IPV6, unix.IPV6_DONTFRAG, 1))
}

func controlDontFragment(network, address string, rc syscall.RawConn) error {
	var serr error
	err := rc.Control(func(fd uintptr) {
		serr = setDontFragment(int(fd), strings.HasPrefix(network, "ip6"), false)
	})
	if err != nil {
		return err
	}
	return serr
}

// listenDatagram makes a non-privileged datagram-oriented ICMP
// endpoint. It requires the net.ipv4.ping_group_range sysctl to cover
// the caller's group.
func listenDatagram(network, address string) (net.PacketConn, error) {
	var ip net.IP
	if address != "" {
		if ip = net.ParseIP(address); ip == nil {
			return nil, &net.AddrError{Err: "invalid source address", Addr: address}
		}
	}

	var sa unix.Sockaddr
	family, proto := unix.AF_INET, unix.IPPROTO_ICMP
	switch network {
	case "udp4":
		a := unix.SockaddrInet4{}
		if ip != nil {
			copy(a.Addr[:], ip.To4())
		}
		sa = &a
	case "udp6":
		family, proto = unix.AF_INET6, unix.IPPROTO_ICMPV6
		a := unix.SockaddrInet6{}
		if ip != nil {
			copy(a.Addr[:], ip.To16())
		}
		sa = &a
	default:
		return nil, net.UnknownNetworkError(network)
	}

	s, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := setDontFragment(s, family == unix.AF_INET6, true); err != nil {
		unix.Close(s)
		return nil, err
	}
	if err := unix.Bind(s, sa); err != nil {
		unix.Close(s)
		return nil, os.NewSyscallError("bind", err)
	}
	f := os.NewFile(uintptr(s), "datagram-oriented icmp")
	defer f.Close()
	return net.FilePacketConn(f)
}

func isMessageTooLong(err error) bool {
	return errors.Is(err, unix.EMSGSIZE)
}
