// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// IdlePolicy selects how the waiting time of a multi-dependency
// wait-for-progress query is computed from the remote segments.
type IdlePolicy int

const (
	// MergedGaps attributes the part of the local epoch covered by the
	// union of the remote progress segments.
	MergedGaps IdlePolicy = iota

	// LatestEnter attributes the time from the local enter to the latest
	// remote enter.
	LatestEnter
)

func (p IdlePolicy) String() string {
	switch p {
	case MergedGaps:
		return "merged-gaps"
	case LatestEnter:
		return "latest-enter"
	}
	return fmt.Sprintf("IdlePolicy(%d)", int(p))
}

// Config configures a Session.
type Config struct {
	IdlePolicy IdlePolicy

	// PendingTimeout is the age after which ExpirePending drops a query
	// still waiting for responses. Zero disables expiry.
	PendingTimeout time.Duration

	// A rank that cannot answer a multi-dependency request sends an
	// empty response, so that the origin still completes. NoNack
	// drops such requests silently; the origin then keeps the query
	// until it expires or the session closes.
	NoNack bool

	// Logger receives warnings about dropped and expired queries. Nil
	// discards them.
	Logger *zap.Logger
}

// DefaultConfig returns the zero Config with a five minute
// PendingTimeout.
func DefaultConfig() Config {
	return Config{
		IdlePolicy:     MergedGaps,
		PendingTimeout: 5 * time.Minute,
	}
}
