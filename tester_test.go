// Copyright 2014 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mikioh/pmtud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTesterLoopback(t *testing.T) {
	for _, tt := range []struct {
		name         string
		dst          net.IP
		unprivileged bool
		floor        int
	}{
		{"IPv4", net.IPv4(127, 0, 0, 1), false, pmtud.MinIPv4MTU},
		{"IPv4Unprivileged", net.IPv4(127, 0, 0, 1), true, pmtud.MinIPv4MTU},
		{"IPv6", net.IPv6loopback, false, pmtud.MinIPv6MTU},
		{"IPv6Unprivileged", net.IPv6loopback, true, pmtud.MinIPv6MTU},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ipt, err := pmtud.NewTesterFor(tt.dst, nil, tt.unprivileged)
			if err != nil {
				t.Skip(err)
			}
			defer ipt.Close()

			r, err := ipt.Probe(context.Background(), tt.dst, tt.floor+64, time.Second)
			if err != nil {
				t.Skip(err)
			}
			assert.Equal(t, tt.floor+64, r.Size)
			if r.Outcome != pmtud.Reply {
				t.Logf("%v: %v", tt.dst, r.Outcome)
				return
			}
			assert.True(t, r.Src.Equal(tt.dst), "got %v; want %v", r.Src, tt.dst)
			assert.NotNil(t, r.ICMP)
		})
	}
}

func TestTesterGlobalUnicast(t *testing.T) {
	if testing.Short() {
		t.Skip("to avoid external network")
	}

	for _, tt := range []struct {
		name   string
		target string
		lower  int
	}{
		{"IPv4", "8.8.8.8", 1280},
		{"IPv6", "2001:4860:4860::8888", 1280},
	} {
		t.Run(tt.name, func(t *testing.T) {
			dst := net.ParseIP(tt.target)
			ipt, err := pmtud.NewTesterFor(dst, nil, false)
			if err != nil {
				t.Skip(err)
			}
			defer ipt.Close()

			s := pmtud.Search{
				Bounds:  pmtud.Bounds{Lower: tt.lower, Upper: 1500},
				Retry:   1,
				Timeout: 500 * time.Millisecond,
				Floor:   pmtud.Floor(dst),
			}
			res, err := s.Run(context.Background(), ipt, dst)
			var terr *pmtud.TransportError
			if errors.As(err, &terr) {
				t.Skip(err)
			}
			require.NotNil(t, res)
			if !res.Found {
				t.Logf("%v: %v", dst, err)
				return
			}
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, res.MTU, tt.lower)
			assert.LessOrEqual(t, res.MTU, 1500)
		})
	}
}

func TestTesterAddressFamilyMismatch(t *testing.T) {
	ipt, err := pmtud.NewTesterFor(net.IPv4(127, 0, 0, 1), nil, false)
	if err != nil {
		ipt, err = pmtud.NewTesterFor(net.IPv4(127, 0, 0, 1), nil, true)
	}
	if err != nil {
		t.Skip(err)
	}
	defer ipt.Close()

	_, err = ipt.Probe(context.Background(), net.IPv6loopback, 1280, time.Second)
	var terr *pmtud.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "probe", terr.Op)

	_, err = ipt.Probe(context.Background(), net.IPv4(127, 0, 0, 1), 20, time.Second)
	assert.ErrorAs(t, err, &terr)
}

func TestNewTesterUnknownNetwork(t *testing.T) {
	_, err := pmtud.NewTester("tcp", "0.0.0.0")
	var terr *pmtud.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "listen", terr.Op)
	var nerr net.UnknownNetworkError
	assert.ErrorAs(t, err, &nerr)
}
