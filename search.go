// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenk/backoff"
)

const (
	MinIPv4MTU    = 68    // RFC 791
	MinIPv6MTU    = 1280  // RFC 8200
	MaxPacketSize = 65535 // largest IPv4 total length

	DefaultLower   = MinIPv6MTU
	DefaultUpper   = 9000
	DefaultRetry   = 1
	DefaultTimeout = time.Second
)

// Floor returns the minimum MTU every link must carry for the address
// family of ip.
func Floor(ip net.IP) int {
	if ip.To4() != nil {
		return MinIPv4MTU
	}
	return MinIPv6MTU
}

// A Prober sends a single probe of size bytes to dst and waits up to
// timeout for a correlated signal.
//
// Probe returns a non-nil error only when the probe cannot be exercised
// at all; such errors abort the search. A timeout is not an error, it
// is reported as NoReply.
type Prober interface {
	Probe(ctx context.Context, dst net.IP, size int, timeout time.Duration) (*Report, error)
}

// Bounds represents an inclusive range of packet sizes in bytes.
type Bounds struct {
	Lower int
	Upper int
}

// Empty reports whether b contains no size, which ends a search.
func (b Bounds) Empty() bool { return b.Lower > b.Upper }

// Candidate returns the floor midpoint of b.
func (b Bounds) Candidate() int { return b.Lower + (b.Upper-b.Lower)/2 }

func (b Bounds) String() string {
	return fmt.Sprintf("[%d, %d]", b.Lower, b.Upper)
}

// A Step represents the evaluation of a single candidate size.
type Step struct {
	Bounds    Bounds  // bounds that produced Candidate
	Candidate int     // evaluated size
	Attempts  int     // number of probes sent for Candidate
	Success   bool    // whether Candidate was classified as success
	Report    *Report // report of the last attempt, nil if none arrived
}

// A ProgressFunc is called once per evaluated candidate, before the
// bounds are updated for the next iteration.
type ProgressFunc func(*Step)

// A Result represents the outcome of a search.
type Result struct {
	MTU        int  // largest size classified as success
	Found      bool // false if no size succeeded; MTU is meaningless then
	Iterations int  // number of evaluated candidates
	Probes     int  // number of probes sent
}

// Verify compares the discovered MTU with expected.
// It returns nil when expected is zero or matches, and a MismatchError
// otherwise.
func (r *Result) Verify(expected int) error {
	if expected == 0 || r.Found && r.MTU == expected {
		return nil
	}
	return &MismatchError{Expected: expected, Found: r.Found, MTU: r.MTU}
}

// A Search represents a path MTU search configuration.
// A Search holds no run state; Run may be called repeatedly and
// concurrently, each call owns its bounds.
type Search struct {
	Bounds  Bounds        // initial search range
	Retry   int           // retries per candidate after a NoReply attempt
	Timeout time.Duration // per-probe timeout
	Floor   int           // minimum acceptable lower bound, zero to disable

	// Clamp enables lowering the upper bound to the next-hop MTU
	// advertised by an explicit too-big signal, when that value lies
	// inside the remaining range.
	Clamp bool

	Progress ProgressFunc
}

// Validate reports whether s is a usable search configuration.
// It returns a ConfigError otherwise.
func (s *Search) Validate() error {
	if s.Bounds.Empty() {
		return &ConfigError{Field: "bounds", Value: s.Bounds, Err: ErrInvalidBounds}
	}
	if s.Floor > 0 && s.Bounds.Lower < s.Floor {
		return &ConfigError{Field: "lower bound", Value: s.Bounds.Lower, Err: ErrBelowFloor}
	}
	if s.Bounds.Upper > MaxPacketSize {
		return &ConfigError{Field: "upper bound", Value: s.Bounds.Upper, Err: ErrAboveCeiling}
	}
	if s.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Value: s.Timeout, Err: ErrInvalidTimeout}
	}
	if s.Retry < 0 {
		return &ConfigError{Field: "retry count", Value: s.Retry, Err: ErrInvalidRetry}
	}
	return nil
}

// Run bisects the configured bounds with probes through p toward dst.
//
// It returns a ConfigError before sending anything when the
// configuration is invalid, and a TransportError when p fails fatally
// or ctx is done. When the range is exhausted without any success, Run
// returns a non-nil Result together with ErrNoUsableSize.
func (s *Search) Run(ctx context.Context, p Prober, dst net.IP) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var res Result
	b := s.Bounds
	for !b.Empty() {
		c := b.Candidate()
		st, err := s.evaluate(ctx, p, dst, c)
		res.Iterations++
		res.Probes += st.Attempts
		if err != nil {
			return nil, err
		}
		st.Bounds = b
		if s.Progress != nil {
			s.Progress(&st)
		}

		if st.Success {
			if !res.Found || c > res.MTU {
				res.MTU = c
			}
			res.Found = true
			b.Lower = c + 1
			continue
		}
		b.Upper = c - 1
		if s.Clamp && st.Report != nil && st.Report.Outcome == PathTooSmall {
			if mtu := st.Report.MTU; mtu >= b.Lower && mtu <= b.Upper {
				b.Upper = mtu
			}
		}
	}
	if !res.Found {
		return &res, ErrNoUsableSize
	}
	return &res, nil
}

var (
	errNoReply      = errors.New("no reply")
	errPathTooSmall = errors.New("path too small")
)

// evaluate sends up to Retry+1 sequential probes of size bytes.
// Reply and PathTooSmall conclude at once; only exhausted NoReply
// attempts conclude as failure.
func (s *Search) evaluate(ctx context.Context, p Prober, dst net.IP, size int) (Step, error) {
	st := Step{Candidate: size}
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		st.Attempts++
		r, err := p.Probe(ctx, dst, size, s.Timeout)
		if err != nil {
			return backoff.Permanent(err)
		}
		st.Report = r
		switch r.Outcome {
		case Reply:
			return nil
		case PathTooSmall:
			return backoff.Permanent(errPathTooSmall)
		default:
			return errNoReply
		}
	}
	// WithMaxRetries treats zero as unlimited.
	var bo backoff.BackOff = &backoff.StopBackOff{}
	if s.Retry > 0 {
		bo = backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(s.Retry))
	}
	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	switch err {
	case nil:
		st.Success = true
		return st, nil
	case errPathTooSmall:
		return st, nil
	case errNoReply:
		// The context stops retries as soon as its deadline passes,
		// which may be before its Done channel is closed.
		if err = ctx.Err(); err == nil && !expired(ctx) {
			return st, nil
		}
		if err == nil {
			err = context.DeadlineExceeded
		}
	}
	var te *TransportError
	if !errors.As(err, &te) {
		err = &TransportError{Op: "probe", Size: size, Err: err}
	}
	return st, err
}

func expired(ctx context.Context) bool {
	d, ok := ctx.Deadline()
	return ok && !time.Now().Before(d)
}
