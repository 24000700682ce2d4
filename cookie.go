// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"os"
	"sync/atomic"
)

// A cookie identifies a probe by protocol, echo identifier and echo
// sequence number.
type cookie uint64

func (c cookie) icmpID() int   { return int(c >> 48) }
func (c cookie) icmpSeq() int  { return int(c << 16 >> 48) }
func (c cookie) protocol() int { return int(c & 0xff) }

func icmpCookie(protocol, id, seq int) cookie {
	return cookie(id)&0xffff<<48 | cookie(seq)&0xffff<<32 | cookie(protocol)&0xff
}

// match reports whether the echo identified by protocol, id and seq
// answers the probe identified by c.
// Non-privileged datagram-oriented ICMP endpoints rewrite the echo
// identifier on transmission, so only the sequence number is compared
// when ignoreID is true.
func (c cookie) match(protocol, id, seq int, ignoreID bool) bool {
	if c.protocol() != protocol || c.icmpSeq() != seq&0xffff {
		return false
	}
	return ignoreID || c.icmpID() == id&0xffff
}

var echoIDs uint32

// nextEchoID returns a process-wide unique ICMP echo identifier.
// Testers running in parallel within a process never share an
// identifier until 65536 testers have been made.
func nextEchoID() int {
	n := atomic.AddUint32(&echoIDs, 1) - 1
	return (os.Getpid() + int(n)) & 0xffff
}
