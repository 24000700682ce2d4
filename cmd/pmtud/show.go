// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mikioh/pmtud"
	"github.com/urfave/cli"
)

var showCommand = cli.Command{
	Name:    "show",
	Aliases: []string{"sh", "list"},
	Usage:   "Show network facility information",
	Subcommands: []cli.Command{
		{
			Name:      "interfaces",
			Aliases:   []string{"int"},
			Usage:     "Show interfaces and their MTUs",
			ArgsUsage: "[interface name]",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "4", Usage: "Show IPv4 information only"},
				cli.BoolFlag{Name: "6", Usage: "Show IPv6 information only"},
				cli.BoolFlag{Name: "b", Usage: "Show brief information"},
			},
			Action: showInterfacesMain,
		},
		{
			Name:      "route",
			Aliases:   []string{"rt"},
			Usage:     "Show the egress route and its MTU toward a destination",
			ArgsUsage: "destination",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "4", Usage: "Use IPv4 only"},
				cli.BoolFlag{Name: "6", Usage: "Use IPv6 only"},
			},
			Action: showRouteMain,
		},
	},
}

func showRouteMain(c *cli.Context) error {
	if c.NArg() == 0 {
		return exitError(errors.New("missing destination"), exitFatal)
	}
	ips, err := parseDsts(c.Args().First(), c.Bool("4"), c.Bool("6"), 1)
	if err != nil {
		return exitError(err, exitFatal)
	}
	e, err := pmtud.LookupEgress(ips[0])
	if err != nil {
		return exitError(err, exitFatal)
	}
	bw := bufio.NewWriter(os.Stdout)
	printEgress(bw, c.Args().First(), ips[0], e)
	return bw.Flush()
}

func printEgress(w io.Writer, name string, dst fmt.Stringer, e *pmtud.Egress) {
	fmt.Fprintf(w, "Route to %s [%v]\n", name, dst)
	fmt.Fprintf(w, "\tvia interface %s, index %d\n", e.Interface, e.Index)
	if e.Gateway != nil {
		fmt.Fprintf(w, "\tgateway %v\n", e.Gateway)
	} else {
		fmt.Fprintf(w, "\tdirectly connected\n")
	}
	if e.Src != nil {
		fmt.Fprintf(w, "\tpreferred source %v\n", e.Src)
	}
	fmt.Fprintf(w, "\tlink MTU %d bytes", e.LinkMTU)
	if e.RouteMTU > 0 {
		fmt.Fprintf(w, ", route MTU %d bytes", e.RouteMTU)
	}
	fmt.Fprintf(w, "\n\tegress MTU %d bytes\n", e.MTU())
}
