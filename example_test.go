// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/mikioh/pmtud"
)

func ExampleSearch_Run() {
	dst := net.ParseIP("8.8.8.8")
	ipt, err := pmtud.NewTesterFor(dst, nil, false)
	if err != nil {
		log.Fatal(err)
	}
	defer ipt.Close()

	s := pmtud.Search{
		Bounds:  pmtud.Bounds{Lower: pmtud.DefaultLower, Upper: pmtud.DefaultUpper},
		Retry:   pmtud.DefaultRetry,
		Timeout: pmtud.DefaultTimeout,
		Floor:   pmtud.Floor(dst),
		Clamp:   true,
		Progress: func(st *pmtud.Step) {
			fmt.Printf("MTU %d %v %v\n", st.Candidate, st.Bounds, st.Success)
		},
	}
	res, err := s.Run(context.Background(), ipt, dst)
	if errors.Is(err, pmtud.ErrNoUsableSize) {
		fmt.Println("none")
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("path mtu to %v is %d bytes\n", dst, res.MTU)
}

func ExampleTester_Probe() {
	dst := net.ParseIP("2001:4860:4860::8888")
	ipt, err := pmtud.NewTesterFor(dst, nil, true)
	if err != nil {
		log.Fatal(err)
	}
	defer ipt.Close()

	r, err := ipt.Probe(context.Background(), dst, 1500, 2*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	switch r.Outcome {
	case pmtud.Reply:
		fmt.Printf("%d bytes fit, rtt=%v\n", r.Size, r.RTT)
	case pmtud.PathTooSmall:
		fmt.Printf("%d bytes too big, next-hop mtu %d\n", r.Size, r.MTU)
	default:
		fmt.Println("no reply")
	}
}
