// Copyright 2015 Mikio Hara. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmtud

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBounds  = errors.New("lower bound exceeds upper bound")
	ErrInvalidTimeout = errors.New("timeout must be positive")
	ErrInvalidRetry   = errors.New("retry count must not be negative")
	ErrBelowFloor     = errors.New("size below minimum link MTU")
	ErrAboveCeiling   = errors.New("size above maximum IP packet size")

	// ErrNoUsableSize is returned by Search.Run when no candidate in
	// the range succeeded, including the lower bound itself.
	ErrNoUsableSize = errors.New("no usable packet size found in range")
)

// A ConfigError reports an invalid search parameter. A search that
// fails with a ConfigError never sends a probe.
type ConfigError struct {
	Field string // name of the offending parameter
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// A TransportError reports that a probe could not be constructed or
// transmitted at all. It aborts the search and is never retried.
type TransportError struct {
	Op   string // operation, such as "listen", "write" or "read"
	Size int    // probe size in bytes, zero when not applicable
	Err  error
}

func (e *TransportError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("%s %d-byte probe: %v", e.Op, e.Size, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// A MismatchError reports that a discovered path MTU differs from the
// expected one.
type MismatchError struct {
	Expected int
	Found    bool // false if no usable size was found
	MTU      int
}

func (e *MismatchError) Error() string {
	if !e.Found {
		return fmt.Sprintf("no usable size found, expected MTU of %d", e.Expected)
	}
	return fmt.Sprintf("%d does not match expected MTU of %d", e.MTU, e.Expected)
}
