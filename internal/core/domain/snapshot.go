package domain

import (
	"sort"
	"time"
)

// Snapshot is the complete set of endpoints observed at one sampling tick,
// keyed by PortIdentity.Key(). A snapshot is never modified after it is built.
type Snapshot struct {
	Version uint64
	TakenAt time.Time
	Entries map[string]PortEvent
}

// Len returns the number of endpoints in the snapshot
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Keys returns the entry keys in ascending order
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Sorted returns the entries ordered by key
func (s Snapshot) Sorted() []PortEvent {
	list := make([]PortEvent, 0, len(s.Entries))
	for _, k := range s.Keys() {
		list = append(list, s.Entries[k])
	}

	return list
}
