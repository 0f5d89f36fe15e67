package monitor

import (
	"time"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Diff compares two snapshots. Keys only in current are reported as Opened,
// keys only in previous as Closed with their last known attributes. Keys
// present in both produce no event. Events are ordered by key.
func Diff(previous, current domain.Snapshot, now time.Time) []domain.PortEvent {
	var events []domain.PortEvent

	for _, key := range current.Keys() {
		if _, ok := previous.Entries[key]; ok {
			continue
		}

		e := current.Entries[key]
		e.ID = 0
		e.Timestamp = now
		e.EventType = domain.PortEventOpened
		events = append(events, e)
	}

	for _, key := range previous.Keys() {
		if _, ok := current.Entries[key]; ok {
			continue
		}

		e := previous.Entries[key]
		e.ID = 0
		e.Timestamp = now
		e.EventType = domain.PortEventClosed
		events = append(events, e)
	}

	return events
}
