package flow

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"NetPulse/internal/config"
	"NetPulse/internal/engine/impl/flow/statistic"
	"NetPulse/internal/factory"
	"NetPulse/internal/model"
)

// --- Factory Registration ---

func init() {
	factory.RegisterReport("flow", func(def config.ReportDef) (model.Report, error) {
		window, err := time.ParseDuration(def.TimeWindow)
		if err != nil {
			return nil, fmt.Errorf("invalid time_window for report '%s': %w", def.Name, err)
		}
		return New(def.Name, window, def.TickCount, def.KeyFields)
	})
}

// --- Report Implementation ---

const defaultTickCount = 6

// Report aggregates packets into keyed flows over a ring of tick slots. The
// ring covers one time window; every tick retires the oldest slot, so the
// aggregate is a sliding window of TimeWindow seconds.
//
// All mutating methods run on the owning report host's goroutine, so the
// slots need no locking.
type Report struct {
	name      string
	info      model.ReportInfo
	keyFields []string

	slots []*tickSlot
	cur   int
}

type tickSlot struct {
	start time.Time
	flows map[string]*statistic.Flow
}

// New creates a flow report aggregating by the given key fields.
// Valid fields: src_ip, dst_ip, src_port, dst_port, protocol.
func New(name string, window time.Duration, tickCount int, keyFields []string) (*Report, error) {
	if window <= 0 {
		return nil, fmt.Errorf("report '%s': time window must be positive", name)
	}
	if tickCount <= 0 {
		tickCount = defaultTickCount
	}
	if len(keyFields) == 0 {
		return nil, fmt.Errorf("report '%s': at least one key field is required", name)
	}
	for _, f := range keyFields {
		switch f {
		case "src_ip", "dst_ip", "src_port", "dst_port", "protocol":
		default:
			return nil, fmt.Errorf("report '%s': unknown key field '%s'", name, f)
		}
	}

	log.Printf("Creating flow report '%s' with window %s / %d ticks for keys: %v", name, window, tickCount, keyFields)
	return &Report{
		name:      name,
		info:      model.ReportInfo{TimeWindow: window, TickCount: tickCount},
		keyFields: keyFields,
	}, nil
}

// Name returns the name of the report.
func (r *Report) Name() string {
	return r.name
}

// Info returns the report's aggregation window.
func (r *Report) Info() model.ReportInfo {
	return r.info
}

// TicksInit builds the tick ring. Called once before any other method.
func (r *Report) TicksInit(now time.Time) {
	r.slots = make([]*tickSlot, r.info.TickCount)
	for i := range r.slots {
		r.slots[i] = &tickSlot{flows: make(map[string]*statistic.Flow)}
	}
	r.cur = 0
	r.slots[0].start = now
}

// TickNow retires the oldest slot and makes its position the new current one.
func (r *Report) TickNow(now time.Time) {
	r.cur = (r.cur + 1) % len(r.slots)
	r.slots[r.cur] = &tickSlot{
		start: now,
		flows: make(map[string]*statistic.Flow),
	}
}

// AddMulti aggregates a batch of packets into the current tick slot.
func (r *Report) AddMulti(packets []*model.PacketInfo, count int) {
	slot := r.slots[r.cur]
	for _, info := range packets[:count] {
		fields, key := r.keyOf(info.FiveTuple)

		if flow, ok := slot.flows[key]; ok {
			flow.EndTime = info.Timestamp
			flow.PacketCount++
			flow.ByteCount += uint64(info.Length)
		} else {
			slot.flows[key] = &statistic.Flow{
				Key:         key,
				Fields:      fields,
				StartTime:   info.Timestamp,
				EndTime:     info.Timestamp,
				PacketCount: 1,
				ByteCount:   uint64(info.Length),
			}
		}
	}
}

// Snapshot merges every live slot into an independent SnapshotData.
func (r *Report) Snapshot() model.Snapshot {
	merged := make(map[string]*statistic.Flow)
	var from, to time.Time

	for _, slot := range r.slots {
		if !slot.start.IsZero() {
			if from.IsZero() || slot.start.Before(from) {
				from = slot.start
			}
			if slot.start.After(to) {
				to = slot.start
			}
		}
		for key, f := range slot.flows {
			if agg, ok := merged[key]; ok {
				agg.PacketCount += f.PacketCount
				agg.ByteCount += f.ByteCount
				if f.StartTime.Before(agg.StartTime) {
					agg.StartTime = f.StartTime
				}
				if f.EndTime.After(agg.EndTime) {
					agg.EndTime = f.EndTime
				}
			} else {
				merged[key] = f.Clone()
			}
		}
	}

	return statistic.SnapshotData{
		ReportName: r.name,
		KeyFields:  r.keyFields,
		WindowFrom: from,
		WindowTo:   to,
		Flows:      merged,
	}
}

// keyOf builds the flow key and its field values from the packet 5-tuple.
func (r *Report) keyOf(t model.FiveTuple) (map[string]interface{}, string) {
	fields := make(map[string]interface{}, len(r.keyFields))
	parts := make([]string, len(r.keyFields))

	for i, name := range r.keyFields {
		switch name {
		case "src_ip":
			fields[name] = t.SrcIP.String()
			parts[i] = t.SrcIP.String()
		case "dst_ip":
			fields[name] = t.DstIP.String()
			parts[i] = t.DstIP.String()
		case "src_port":
			fields[name] = t.SrcPort
			parts[i] = strconv.Itoa(int(t.SrcPort))
		case "dst_port":
			fields[name] = t.DstPort
			parts[i] = strconv.Itoa(int(t.DstPort))
		case "protocol":
			fields[name] = t.Protocol
			parts[i] = strconv.Itoa(int(t.Protocol))
		}
	}

	return fields, strings.Join(parts, "|")
}
