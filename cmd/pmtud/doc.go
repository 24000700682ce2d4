// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Pmtud discovers the path MTU toward IP destinations by bisecting a
range of packet sizes with ICMP echo probes that never get fragmented.
It does not depend on ICMP unreachable messages, so it works on paths
that silently drop oversized packets.

Usage:	pmtud [--debug] command [flags] [arguments]

The commands are:
	discover|disc|mtu       Discover the path MTU toward a destination
	fleet|batch             Discover the path MTU toward many destinations
	show|sh|list            Show network facility information


Discover the path MTU

Discover sends ICMP echo requests of an exact total size with the DF
bit set, or with fragmentation disabled for IPv6, and bisects the
range between the lower and upper bounds. A size is usable when an
echo reply carrying the whole payload comes back; it is unusable when
every attempt times out or a too-big message arrives.

Usage:	pmtud discover|disc|mtu [flags] [destination]

destination
	A hostname or IP address. It overrides --dest.

Flags:
	--lower, -l int          Lower bound MTU in bytes (default 1280)
	--upper, -u int          Upper bound MTU in bytes (default 9000)
	--retry, -r int          Per-MTU probe retries (default 1)
	--timeout, -t float      Probe timeout in seconds (default 1)
	--expected-mtu, -e int   MTU value to verify, zero disables verification
	--dest, -d string        Target host name or IPv4/IPv6 address (default "8.8.8.8")
	-4                       Use IPv4 only
	-6                       Use IPv6 only
	--src string             Source IP address
	--unprivileged           Use a non-privileged datagram-oriented ICMP endpoint
	--clamp                  Honor the next-hop MTU advertised by too-big messages
	--auto-upper             Cap the upper bound at the egress MTU
	--debug                  Show debug logs

The exit status is 1 when an expected MTU is given and the discovered
one differs, and 2 on invalid parameters or transport failures.

A sample output:

	% sudo pmtud discover -e 1500 8.8.8.8
	Path MTU discovery for dns.google [8.8.8.8]
	  bounds [1280, 9000], retry 1, timeout 1s, clamp false

	MTU 5140 (lower 1280 / upper 9000) .. FAIL!
	MTU 3209 (lower 1280 / upper 5139) .. FAIL!
	MTU 2244 (lower 1280 / upper 3208) .. FAIL!
	MTU 1761 (lower 1280 / upper 2243) .. FAIL!
	MTU 1520 (lower 1280 / upper 1760) .. FAIL!
	MTU 1399 (lower 1280 / upper 1519) . OK!
	MTU 1459 (lower 1400 / upper 1519) . OK!
	MTU 1489 (lower 1460 / upper 1519) . OK!
	MTU 1504 (lower 1490 / upper 1519) .. FAIL!
	MTU 1496 (lower 1490 / upper 1503) . OK!
	MTU 1500 (lower 1497 / upper 1503) . OK!
	MTU 1502 (lower 1501 / upper 1503) .. FAIL!
	MTU 1501 (lower 1501 / upper 1501) .. FAIL!
	FINAL MTU: 1500 bytes


Discover the path MTU toward many destinations

Fleet reads targets from a YAML file, searches every address of every
target concurrently and writes the results in YAML.

Usage:	pmtud fleet|batch [flags]

Flags:
	--config, -c FILE        Fleet configuration in YAML
	--concurrency int        Maximum number of concurrent searches (default 8)
	--output, -o FILE        Results in YAML, - for stdout (default "-")

A sample configuration:

	defaults:
	  lower: 1280
	  upper: 1500
	  retry: 2
	  timeout: 500ms
	  clamp: true
	targets:
	  - name: resolvers
	    destination: 8.8.8.8,8.8.4.4
	    expected_mtu: 1500
	  - name: lab
	    destination: 192.0.2.0/28
	    max_addresses: 8
	    unprivileged: true

A destination is a hostname, an IP address, an IP address prefix, or a
comma-separated list of them. The exit status is 1 when any address
does not match its expected MTU, and 2 on an invalid configuration or
a transport failure.


Show network facility information

Usage:	pmtud show|sh|list interfaces|int [-4] [-6] [-b] [interface name]
	pmtud show|sh|list route|rt [-4] [-6] destination

A sample output:

	% pmtud sh int -b
	Name              Index  Status  MTU    Hardware address
	lo                1      up      65536  <nil>
	eth0              2      up      1500   52:54:00:12:34:56
	wg0               3      up      1420   <nil>

	% pmtud sh route 8.8.8.8
	Route to 8.8.8.8 [8.8.8.8]
		via interface wg0, index 3
		directly connected
		preferred source 10.0.0.2
		link MTU 1420 bytes
		egress MTU 1420 bytes
*/
package main
