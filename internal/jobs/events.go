// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package jobs

import "sync"

// eventLogBuffer caps per-job event retention; a crawl emits at most a
// few hundred progress events.
const eventLogBuffer = 1000

// eventLog buffers a job's events and fans them out to subscribers.
// Late subscribers get a replay of everything buffered so far.
type eventLog struct {
	mu     sync.Mutex
	buf    []map[string]interface{}
	subs   map[int]chan map[string]interface{}
	nextID int
	closed bool
}

func newEventLog() *eventLog {
	return &eventLog{subs: make(map[int]chan map[string]interface{})}
}

// publish appends an event and delivers it to every subscriber. Slow
// subscribers are skipped rather than blocking the worker.
func (l *eventLog) publish(event map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if len(l.buf) < eventLogBuffer {
		l.buf = append(l.buf, event)
	}
	for _, ch := range l.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// subscribe returns a channel carrying the replay followed by live
// events. The channel is closed when the log closes.
func (l *eventLog) subscribe() (<-chan map[string]interface{}, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan map[string]interface{}, eventLogBuffer+16)
	for _, event := range l.buf {
		ch <- event
	}
	if l.closed {
		close(ch)
		return ch, func() {}
	}

	id := l.nextID
	l.nextID++
	l.subs[id] = ch

	stop := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
	}
	return ch, stop
}

// close ends the stream; subscriber channels are closed after any
// buffered delivery.
func (l *eventLog) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
