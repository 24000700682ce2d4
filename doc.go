// Copyright 2014 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pmtud implements end-to-end path MTU discovery that does not
// depend on ICMP "fragmentation needed" or "packet too big" messages.
//
// A Search bisects a range of packet sizes. A Prober checks each
// candidate size by sending non-fragmentable ICMP echo requests of
// exactly that size. A Tester is a Prober backed by raw or datagram
// ICMP sockets. Explicit too-big signals are used when they arrive but
// are never required. See RFC 4821 for the general approach.
package pmtud
