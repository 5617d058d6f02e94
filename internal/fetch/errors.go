// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package fetch is the shared outbound substrate: sliding-window rate
// limiting (global and per-origin), bounded concurrency, retry with
// exponential backoff, and cache-backed text/JSON fetching. Collectors
// never talk to the network except through this package.
package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a terminal fetch failure.
type ErrorKind string

// Fetch failure kinds.
const (
	KindStatus  ErrorKind = "status"   // non-retryable or retry-exhausted HTTP status
	KindTimeout ErrorKind = "timeout"  // connect/read timeout after retries
	KindConnect ErrorKind = "connect"  // connection failure after retries
	KindDecode  ErrorKind = "decode"   // JSON decode failure on a 2xx body
	KindCancel  ErrorKind = "canceled" // caller's context ended
)

// Error is the structured failure value surfaced by fetch operations.
// Collectors inspect it rather than catching exceptions; transient
// causes never escape the retry loop as anything else.
type Error struct {
	Kind      ErrorKind
	Status    int // last HTTP status, 0 when not applicable
	Origin    string
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.Origin, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Origin, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Origin, e.Kind)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a fetch error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Status == status
}
