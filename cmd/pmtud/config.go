// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mikioh/pmtud"
	"gopkg.in/yaml.v3"
)

const defaultMaxAddresses = 256

// searchParams holds the search parameters that a fleet target may
// override. Nil fields are inherited.
type searchParams struct {
	Lower        *int           `yaml:"lower"`
	Upper        *int           `yaml:"upper"`
	Retry        *int           `yaml:"retry"`
	Timeout      *time.Duration `yaml:"timeout"`
	Unprivileged *bool          `yaml:"unprivileged"`
	Clamp        *bool          `yaml:"clamp"`
}

// merge returns p with nil fields taken from q.
func (p searchParams) merge(q searchParams) searchParams {
	if p.Lower == nil {
		p.Lower = q.Lower
	}
	if p.Upper == nil {
		p.Upper = q.Upper
	}
	if p.Retry == nil {
		p.Retry = q.Retry
	}
	if p.Timeout == nil {
		p.Timeout = q.Timeout
	}
	if p.Unprivileged == nil {
		p.Unprivileged = q.Unprivileged
	}
	if p.Clamp == nil {
		p.Clamp = q.Clamp
	}
	return p
}

// search returns the search toward dst described by p, with built-in
// defaults for missing parameters.
func (p searchParams) search(dst net.IP) *pmtud.Search {
	s := pmtud.Search{
		Bounds:  pmtud.Bounds{Lower: pmtud.DefaultLower, Upper: pmtud.DefaultUpper},
		Retry:   pmtud.DefaultRetry,
		Timeout: pmtud.DefaultTimeout,
		Floor:   pmtud.Floor(dst),
	}
	if p.Lower != nil {
		s.Bounds.Lower = *p.Lower
	}
	if p.Upper != nil {
		s.Bounds.Upper = *p.Upper
	}
	if p.Retry != nil {
		s.Retry = *p.Retry
	}
	if p.Timeout != nil {
		s.Timeout = *p.Timeout
	}
	if p.Clamp != nil {
		s.Clamp = *p.Clamp
	}
	return &s
}

func (p searchParams) unprivileged() bool {
	return p.Unprivileged != nil && *p.Unprivileged
}

type fleetTarget struct {
	Name         string `yaml:"name"`
	Destination  string `yaml:"destination"`
	ExpectedMTU  int    `yaml:"expected_mtu"`
	MaxAddresses int    `yaml:"max_addresses"`
	searchParams `yaml:",inline"`
}

type fleetConfig struct {
	Defaults searchParams  `yaml:"defaults"`
	Targets  []fleetTarget `yaml:"targets"`
}

// parseFleetConfig reads a fleet configuration from r, fills in
// defaults and validates it.
func parseFleetConfig(r io.Reader) (*fleetConfig, error) {
	var cfg fleetConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty configuration")
		}
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("no targets")
	}
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.Destination == "" {
			return nil, fmt.Errorf("target #%d: missing destination", i+1)
		}
		if t.Name == "" {
			t.Name = t.Destination
		}
		if t.MaxAddresses == 0 {
			t.MaxAddresses = defaultMaxAddresses
		}
		if t.MaxAddresses < 0 {
			return nil, fmt.Errorf("target %s: invalid max_addresses %d", t.Name, t.MaxAddresses)
		}
		if t.ExpectedMTU < 0 {
			return nil, fmt.Errorf("target %s: invalid expected_mtu %d", t.Name, t.ExpectedMTU)
		}
		t.searchParams = t.searchParams.merge(cfg.Defaults)
		// The family dependent floor is checked once addresses
		// are known.
		s := t.search(nil)
		s.Floor = 0
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
	}
	return &cfg, nil
}
