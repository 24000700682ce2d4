// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mikioh/pmtud"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var discoverCommand = cli.Command{
	Name:      "discover",
	Aliases:   []string{"disc", "mtu"},
	Usage:     "Discover the path MTU toward a destination",
	ArgsUsage: "[destination]",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "lower, l", Value: pmtud.DefaultLower, Usage: "Lower bound MTU in bytes"},
		cli.IntFlag{Name: "upper, u", Value: pmtud.DefaultUpper, Usage: "Upper bound MTU in bytes"},
		cli.IntFlag{Name: "retry, r", Value: pmtud.DefaultRetry, Usage: "Per-MTU probe retries"},
		cli.Float64Flag{Name: "timeout, t", Value: pmtud.DefaultTimeout.Seconds(), Usage: "Probe timeout in seconds"},
		cli.IntFlag{Name: "expected-mtu, e", Usage: "MTU value to verify, zero disables verification"},
		cli.StringFlag{Name: "dest, d", Value: "8.8.8.8", Usage: "Target host name or IPv4/IPv6 address"},
		cli.BoolFlag{Name: "4", Usage: "Use IPv4 only"},
		cli.BoolFlag{Name: "6", Usage: "Use IPv6 only"},
		cli.StringFlag{Name: "src", Usage: "Source IP address"},
		cli.BoolFlag{Name: "unprivileged", Usage: "Use a non-privileged datagram-oriented ICMP endpoint"},
		cli.BoolFlag{Name: "clamp", Usage: "Honor the next-hop MTU advertised by too-big messages"},
		cli.BoolFlag{Name: "auto-upper", Usage: "Cap the upper bound at the egress MTU"},
		debugFlag,
	},
	Action: discoverMain,
}

func discoverMain(c *cli.Context) error {
	setupLogging(c)
	if c.Bool("4") && c.Bool("6") {
		return exitError(errors.New("-4 and -6 are mutually exclusive"), exitFatal)
	}
	dest := c.String("dest")
	if c.NArg() > 0 {
		dest = c.Args().First()
	}
	ips, err := parseDsts(dest, c.Bool("4"), c.Bool("6"), 1)
	if err != nil {
		return exitError(err, exitFatal)
	}
	dst := ips[0]
	src, err := parseSrc(c.String("src"))
	if err != nil {
		return exitError(err, exitFatal)
	}

	s := pmtud.Search{
		Bounds:  pmtud.Bounds{Lower: c.Int("lower"), Upper: c.Int("upper")},
		Retry:   c.Int("retry"),
		Timeout: time.Duration(c.Float64("timeout") * float64(time.Second)),
		Floor:   pmtud.Floor(dst),
		Clamp:   c.Bool("clamp"),
	}
	if c.Bool("auto-upper") {
		capUpper(&s, dst)
	}
	if err := s.Validate(); err != nil {
		return exitError(err, exitFatal)
	}

	ipt, err := pmtud.NewTesterFor(dst, src, c.Bool("unprivileged"))
	if err != nil {
		return exitError(err, exitFatal)
	}
	defer ipt.Close()
	logrus.WithFields(logrus.Fields{"dst": dst, "id": ipt.ID()}).Debug("tester ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	bw := bufio.NewWriter(os.Stdout)
	defer bw.Flush()
	name := dest
	if net.ParseIP(dest) != nil {
		if host := revLookup(dest); host != "" {
			name = host
		}
	}
	return runDiscovery(ctx, bw, ipt, name, dst, &s, c.Int("expected-mtu"))
}

// capUpper lowers the upper bound of s to the egress MTU toward dst,
// as long as the resulting range stays non-empty.
func capUpper(s *pmtud.Search, dst net.IP) {
	mtu, err := pmtud.EgressMTU(dst)
	if err != nil {
		logrus.WithField("dst", dst).Warnf("egress mtu unavailable: %v", err)
		return
	}
	if mtu >= s.Bounds.Lower && mtu < s.Bounds.Upper {
		logrus.WithFields(logrus.Fields{"dst": dst, "mtu": mtu}).Debug("upper bound capped at egress mtu")
		s.Bounds.Upper = mtu
	}
}

// runDiscovery runs s toward dst through p and prints the progress
// and the verdict to w.
// It returns an exit error when the search fails fatally or the result
// does not match expected.
func runDiscovery(ctx context.Context, w io.Writer, p pmtud.Prober, name string, dst net.IP, s *pmtud.Search, expected int) error {
	flush := func() {
		if bw, ok := w.(*bufio.Writer); ok {
			bw.Flush()
		}
	}
	if name != dst.String() {
		fmt.Fprintf(w, "Path MTU discovery for %s [%v]\n", name, dst)
	} else {
		fmt.Fprintf(w, "Path MTU discovery for %v\n", dst)
	}
	fmt.Fprintf(w, "  bounds %v, retry %d, timeout %v, clamp %v\n\n", s.Bounds, s.Retry, s.Timeout, s.Clamp)
	flush()

	s.Progress = func(st *pmtud.Step) {
		fmt.Fprintf(w, "MTU %d (lower %d / upper %d) %s %s", st.Candidate, st.Bounds.Lower, st.Bounds.Upper, strings.Repeat(".", st.Attempts), verdict(st))
		if r := st.Report; r != nil && r.Outcome == pmtud.PathTooSmall {
			if r.MTU > 0 {
				fmt.Fprintf(w, " [too big, next-hop mtu %d]", r.MTU)
			} else {
				fmt.Fprint(w, " [too big]")
			}
		}
		fmt.Fprintln(w)
		flush()
		if st.Report != nil {
			logrus.WithFields(logrus.Fields{
				"size":    st.Candidate,
				"outcome": st.Report.Outcome,
				"seq":     st.Report.Seq,
				"rtt":     st.Report.RTT,
				"from":    st.Report.Src,
			}).Debug("probe")
		}
	}

	res, err := s.Run(ctx, p, dst)
	switch {
	case errors.Is(err, pmtud.ErrNoUsableSize):
		fmt.Fprintf(w, "FINAL MTU: none (no usable size in %v)\n", s.Bounds)
	case err != nil:
		flush()
		return exitError(fmt.Errorf("path mtu discovery for %v: %w", dst, err), exitFatal)
	default:
		fmt.Fprintf(w, "FINAL MTU: %d bytes\n", res.MTU)
	}
	logrus.WithFields(logrus.Fields{"iterations": res.Iterations, "probes": res.Probes}).Debug("search done")

	if err := res.Verify(expected); err != nil {
		fmt.Fprintf(w, "** %v\n", err)
		return cli.NewExitError("", exitMismatch)
	}
	return nil
}

func verdict(st *pmtud.Step) string {
	if st.Success {
		return "OK!"
	}
	return "FAIL!"
}
