// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package feed

// Event types emitted during a streaming crawl. The terminal
// complete/error frames are emitted by the transport layer, which owns
// the final payload.
const (
	EventStart               = "start"
	EventProgress            = "progress"
	EventThrottle            = "throttle"
	EventFilterTargetReached = "filterTargetReached"
	EventFilterEarlyStop     = "filterEarlyStop"
	EventFilterSkipped       = "filterSkipped"
	EventFilterComplete      = "filterComplete"
	EventFilterCooldown      = "filterCooldown"
	EventComplete            = "complete"
	EventError               = "error"
)

// Event is one progress frame. The "type" key is always present; the
// remaining keys depend on the type and serialize directly as the SSE
// data payload.
type Event map[string]interface{}

// Sink receives progress frames. A nil Sink discards them.
type Sink func(Event)

func emit(sink Sink, ev Event) {
	if sink != nil {
		sink(ev)
	}
}
