// Package metrics records lease engine activity.
package metrics

// Collector is implemented by Nop and Prometheus. result and reason values
// are short lowercase labels such as "ok", "no_capacity", "contention".
type Collector interface {
	RecordRegistration(result string)
	RecordAllocation(result string)
	RecordRelease(result string)
	RecordConflict(op string)
}

// Nop discards everything.
type Nop struct{}

var _ Collector = Nop{}

func (Nop) RecordRegistration(string) {}
func (Nop) RecordAllocation(string)   {}
func (Nop) RecordRelease(string)      {}
func (Nop) RecordConflict(string)     {}
