// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package pmtud

import (
	"fmt"
	"net"
	"runtime"
)

// LookupEgress is not supported on this platform.
func LookupEgress(dst net.IP) (*Egress, error) {
	return nil, fmt.Errorf("egress route lookup for %v not supported on %s", dst, runtime.GOOS)
}
