package model

import "time"

// ReportInfo describes a report's aggregation window. The host derives its
// tick interval from it: TimeWindow / TickCount.
type ReportInfo struct {
	TimeWindow time.Duration
	TickCount  int
}

// Snapshot is an opaque, caller-owned value produced by a report on demand.
type Snapshot interface{}

// Report is the aggregation state supervised by a report host. The core
// holds it opaquely: apart from Info and Name, every method is invoked on
// the owning host's worker goroutine only, so implementations need no
// internal locking.
type Report interface {
	// Name identifies the report; it is the registry key.
	Name() string

	// Info is pure and read once at host startup.
	Info() ReportInfo

	// TicksInit is called exactly once, before any other method, with the
	// current time.
	TicksInit(now time.Time)

	// TickNow advances the report's time window. now is monotonically
	// non-decreasing across calls.
	TickNow(now time.Time)

	// AddMulti ingests a batch of packets.
	AddMulti(packets []*PacketInfo, count int)

	// Snapshot produces a copy of the current aggregated state.
	Snapshot() Snapshot
}
