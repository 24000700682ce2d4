// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/icmp"
)

// An Outcome represents the result of a single probe attempt.
type Outcome int

const (
	// NoReply reports that nothing correlated arrived before the
	// timeout. It is ambiguous: the probe may have been dropped for
	// being too large or lost for an unrelated reason.
	NoReply Outcome = iota

	// Reply reports a correlated echo reply carrying the full probe
	// payload.
	Reply

	// PathTooSmall reports an explicit signal that the probe exceeds
	// the capacity of a link on the path.
	PathTooSmall
)

var outcomes = [...]string{
	NoReply:      "no-reply",
	Reply:        "reply",
	PathTooSmall: "path-too-small",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomes) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomes[o]
}

// A Report represents the report of a single probe attempt.
type Report struct {
	Outcome Outcome       // classification of the attempt
	Size    int           // probe size in bytes, including IP header
	Seq     int           // ICMP echo sequence number of the probe
	RTT     time.Duration // round-trip time, zero unless Outcome is Reply or PathTooSmall
	Src     net.IP        // source address of the received message, if any
	ICMP    *icmp.Message // received ICMP message, if any

	// MTU is the next-hop MTU advertised along with PathTooSmall.
	// It is zero when the signal carried no usable value.
	MTU int
}
