// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	exitMismatch = 1
	exitFatal    = 2
)

var debugFlag = cli.BoolFlag{
	Name:  "debug",
	Usage: "Show debug logs",
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pmtud"
	app.Usage = "Discover the path MTU toward IP destinations"
	app.Flags = []cli.Flag{debugFlag}
	app.Before = func(c *cli.Context) error {
		setupLogging(c)
		return nil
	}
	app.Commands = []cli.Command{
		discoverCommand,
		fleetCommand,
		showCommand,
	}
	return app
}

func setupLogging(c *cli.Context) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if c.Bool("debug") || c.GlobalBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// exitError logs err and returns an error that makes the command exit
// with code.
func exitError(err error, code int) error {
	logrus.Error(err)
	return cli.NewExitError("", code)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Error(err)
		os.Exit(exitFatal)
	}
}
