// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	"github.com/mikioh/pmtud"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var fleetCommand = cli.Command{
	Name:    "fleet",
	Aliases: []string{"batch"},
	Usage:   "Discover the path MTU toward every destination in a configuration file",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "Fleet configuration `FILE` in YAML"},
		cli.IntFlag{Name: "concurrency", Value: 8, Usage: "Maximum number of concurrent searches"},
		cli.StringFlag{Name: "output, o", Value: "-", Usage: "Results `FILE` in YAML, - for stdout"},
		debugFlag,
	},
	Action: fleetMain,
}

// A fleetJob represents a search toward a single address of a fleet
// target.
type fleetJob struct {
	target *fleetTarget
	dst    net.IP
}

type fleetResult struct {
	Name        string `yaml:"name"`
	Destination string `yaml:"destination"`
	Address     string `yaml:"address"`
	Found       bool   `yaml:"found"`
	MTU         int    `yaml:"mtu,omitempty"`
	ExpectedMTU int    `yaml:"expected_mtu,omitempty"`
	Match       bool   `yaml:"match"`
	Iterations  int    `yaml:"iterations"`
	Probes      int    `yaml:"probes"`
	Error       string `yaml:"error,omitempty"`

	fatal bool
}

// A prober is a pmtud.Prober that holds network resources.
type prober interface {
	pmtud.Prober
	Close() error
}

type proberFactory func(dst net.IP, unprivileged bool) (prober, error)

func newTester(dst net.IP, unprivileged bool) (prober, error) {
	ipt, err := pmtud.NewTesterFor(dst, nil, unprivileged)
	if err != nil {
		return nil, err
	}
	return ipt, nil
}

func fleetMain(c *cli.Context) error {
	setupLogging(c)
	if c.String("config") == "" {
		return exitError(errors.New("missing --config"), exitFatal)
	}
	if c.Int("concurrency") < 1 {
		return exitError(fmt.Errorf("invalid concurrency %d", c.Int("concurrency")), exitFatal)
	}
	f, err := os.Open(c.String("config"))
	if err != nil {
		return exitError(err, exitFatal)
	}
	cfg, err := parseFleetConfig(f)
	f.Close()
	if err != nil {
		return exitError(fmt.Errorf("%s: %w", c.String("config"), err), exitFatal)
	}
	jobs, err := expandTargets(cfg)
	if err != nil {
		return exitError(err, exitFatal)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
	results := runFleet(ctx, jobs, c.Int("concurrency"), newTester, bar)
	bar.Finish()

	w := io.Writer(os.Stdout)
	if path := c.String("output"); path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return exitError(err, exitFatal)
		}
		defer f.Close()
		w = f
	}
	if err := writeResults(w, results); err != nil {
		return exitError(err, exitFatal)
	}
	return fleetExit(results)
}

// expandTargets resolves the destinations of every target in cfg.
func expandTargets(cfg *fleetConfig) ([]fleetJob, error) {
	var jobs []fleetJob
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		ips, err := parseDsts(t.Destination, false, false, t.MaxAddresses)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
		for _, ip := range ips {
			if err := t.search(ip).Validate(); err != nil {
				return nil, fmt.Errorf("target %s: %v: %w", t.Name, ip, err)
			}
			jobs = append(jobs, fleetJob{target: t, dst: ip})
		}
	}
	return jobs, nil
}

// runFleet searches every job with at most concurrency searches in
// flight. Each search gets its own prober from newProber.
func runFleet(ctx context.Context, jobs []fleetJob, concurrency int, newProber proberFactory, bar *progressbar.ProgressBar) []fleetResult {
	results := make([]fleetResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range jobs {
		g.Go(func() error {
			results[i] = runJob(ctx, &jobs[i], newProber)
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	g.Wait()
	return results
}

func runJob(ctx context.Context, job *fleetJob, newProber proberFactory) fleetResult {
	t := job.target
	r := fleetResult{
		Name:        t.Name,
		Destination: t.Destination,
		Address:     job.dst.String(),
		ExpectedMTU: t.ExpectedMTU,
	}
	log := logrus.WithFields(logrus.Fields{"target": t.Name, "dst": job.dst})

	p, err := newProber(job.dst, t.unprivileged())
	if err != nil {
		log.Error(err)
		r.Error, r.fatal = err.Error(), true
		return r
	}
	defer p.Close()

	s := t.search(job.dst)
	s.Progress = func(st *pmtud.Step) {
		log.WithFields(logrus.Fields{
			"size":     st.Candidate,
			"bounds":   st.Bounds,
			"attempts": st.Attempts,
			"success":  st.Success,
		}).Debug("candidate")
	}
	res, err := s.Run(ctx, p, job.dst)
	if err != nil && !errors.Is(err, pmtud.ErrNoUsableSize) {
		log.Error(err)
		r.Error, r.fatal = err.Error(), true
		return r
	}
	r.Found, r.MTU = res.Found, res.MTU
	r.Iterations, r.Probes = res.Iterations, res.Probes
	if err != nil {
		r.Error = err.Error()
	}
	if err := res.Verify(t.ExpectedMTU); err != nil {
		log.Warn(err)
		r.Error = err.Error()
	} else {
		r.Match = t.ExpectedMTU != 0
	}
	log.WithFields(logrus.Fields{"mtu": r.MTU, "found": r.Found}).Info("search done")
	return r
}

func writeResults(w io.Writer, results []fleetResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Results []fleetResult `yaml:"results"`
	}{results}); err != nil {
		return err
	}
	return enc.Close()
}

// fleetExit returns the exit error summarizing results.
// Fatal errors take precedence over mismatches.
func fleetExit(results []fleetResult) error {
	code := 0
	for _, r := range results {
		switch {
		case r.fatal:
			code = exitFatal
		case r.ExpectedMTU != 0 && !r.Match && code == 0:
			code = exitMismatch
		}
	}
	if code == 0 {
		return nil
	}
	return cli.NewExitError("", code)
}
