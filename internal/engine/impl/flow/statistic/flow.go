package statistic

import "time"

// Flow represents an aggregated flow of traffic with exact metrics.
type Flow struct {
	Key         string
	Fields      map[string]interface{} // Holds the actual values for the fields that make up the key.
	StartTime   time.Time
	EndTime     time.Time
	ByteCount   uint64
	PacketCount uint64
}

// Clone returns an independent copy of the flow.
func (f *Flow) Clone() *Flow {
	c := *f
	c.Fields = make(map[string]interface{}, len(f.Fields))
	for k, v := range f.Fields {
		c.Fields[k] = v
	}
	return &c
}

// SnapshotData represents the full snapshot for a single flow report: the
// merge of every live tick slot at the moment of the call.
type SnapshotData struct {
	ReportName string
	KeyFields  []string
	WindowFrom time.Time
	WindowTo   time.Time
	Flows      map[string]*Flow
}

// Totals sums the snapshot's metrics across all flows.
func (s SnapshotData) Totals() (packets, bytes uint64, flows int) {
	for _, f := range s.Flows {
		packets += f.PacketCount
		bytes += f.ByteCount
	}
	return packets, bytes, len(s.Flows)
}
