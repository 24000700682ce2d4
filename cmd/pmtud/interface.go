// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/mikioh/ipaddr"
	"github.com/urfave/cli"
)

type familyFilter struct {
	ipv4only bool
	ipv6only bool
}

func showInterfacesMain(c *cli.Context) error {
	var ift []net.Interface
	if c.NArg() > 0 {
		ifi, err := net.InterfaceByName(c.Args().First())
		if err != nil {
			return exitError(err, exitFatal)
		}
		ift = append(ift, *ifi)
	}
	if len(ift) == 0 {
		var err error
		ift, err = net.Interfaces()
		if err != nil {
			return exitError(err, exitFatal)
		}
	}

	ff := familyFilter{ipv4only: c.Bool("4"), ipv6only: c.Bool("6")}
	bw := bufio.NewWriter(os.Stdout)
	if c.Bool("b") {
		printInterfacesBrief(bw, ift)
	} else {
		for i := range ift {
			printInterface(bw, &ift[i], ff)
		}
	}
	return bw.Flush()
}

func status(ifi *net.Interface) string {
	if ifi.Flags&net.FlagUp == 0 {
		return "down"
	}
	return "up"
}

func printInterfacesBrief(w io.Writer, ift []net.Interface) {
	const briefBanner = "%-16s  %-5s  %-6s  %-5s  %s\n"
	fmt.Fprintf(w, briefBanner, "Name", "Index", "Status", "MTU", "Hardware address")
	for _, ifi := range ift {
		hwaddr := "<nil>"
		if len(ifi.HardwareAddr) > 0 {
			hwaddr = ifi.HardwareAddr.String()
		}
		fmt.Fprintf(w, briefBanner, ifi.Name, fmt.Sprintf("%d", ifi.Index), status(&ifi), fmt.Sprintf("%d", ifi.MTU), hwaddr)
	}
}

func printInterface(w io.Writer, ifi *net.Interface, ff familyFilter) {
	fmt.Fprintf(w, "%s is %s, flags: <%v>, index: %d\n", ifi.Name, status(ifi), ifi.Flags, ifi.Index)
	fmt.Fprintf(w, "\tMTU %d bytes\n", ifi.MTU)
	ifat, err := ifi.Addrs()
	if err != nil {
		return
	}
	printUnicastPrefixes(w, ifat, ff)
}

func printUnicastPrefixes(w io.Writer, ifat []net.Addr, ff familyFilter) {
	var unis = []struct {
		banner string
		ps     []ipaddr.Prefix
	}{
		{"IPv4 link-local unicast prefixes:", nil},
		{"IPv4 unicast prefixes:", nil},
		{"IPv6 link-local unicast prefixes:", nil},
		{"IPv6 unicast prefixes:", nil},
	}

	for _, ifa := range ifat {
		var p ipaddr.Prefix
		switch ifa := ifa.(type) {
		case *net.IPNet:
			p.IP = ifa.IP
			p.Mask = ifa.Mask
		case *net.IPAddr:
			p = *newPrefix(ifa.IP)
		default:
			continue
		}
		if !ff.ipv6only && p.IP.To4() != nil {
			if p.IP.IsLinkLocalUnicast() {
				unis[0].ps = append(unis[0].ps, p)
			} else {
				unis[1].ps = append(unis[1].ps, p)
			}
		}
		if !ff.ipv4only && p.IP.To16() != nil && p.IP.To4() == nil {
			if p.IP.IsLinkLocalUnicast() {
				unis[2].ps = append(unis[2].ps, p)
			} else {
				unis[3].ps = append(unis[3].ps, p)
			}
		}
	}

	for _, uni := range unis {
		if len(uni.ps) == 0 {
			continue
		}
		c := ipaddr.NewCursor(uni.ps)
		fmt.Fprintf(w, "\t%s\n", uni.banner)
		for _, p := range c.List() {
			fmt.Fprintf(w, "\t\t%v\n", p)
		}
	}
}
