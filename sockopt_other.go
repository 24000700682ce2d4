// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package pmtud

import (
	"errors"
	"fmt"
	"net"
	"runtime"
	"syscall"
)

// The DF bit is still set in the IPv4 header built by the raw
// endpoint; IPv6 probes may be fragmented by the local stack here.
func controlDontFragment(network, address string, rc syscall.RawConn) error {
	return nil
}

func listenDatagram(network, address string) (net.PacketConn, error) {
	return nil, fmt.Errorf("datagram-oriented icmp endpoint for %s not supported on %s", network, runtime.GOOS)
}

func isMessageTooLong(err error) bool {
	return errors.Is(err, syscall.EMSGSIZE)
}
