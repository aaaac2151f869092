package snapshotter

import (
	"sync"
	"testing"
	"time"

	"NetPulse/internal/coordinator"
	"NetPulse/internal/engine/impl/flow"
	"NetPulse/internal/engine/impl/flow/statistic"
	"NetPulse/internal/model"
	"NetPulse/internal/ticker"
)

type memoryWriter struct {
	mu       sync.Mutex
	interval time.Duration
	written  []statistic.SnapshotData
}

func (w *memoryWriter) GetInterval() time.Duration { return w.interval }

func (w *memoryWriter) Write(payload model.Snapshot, timestamp string) error {
	snapshot, ok := payload.(statistic.SnapshotData)
	if !ok {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, snapshot)
	return nil
}

func (w *memoryWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}

func TestSnapshotterWritesEveryReport(t *testing.T) {
	svc := ticker.NewService()
	coord := coordinator.New(coordinator.Conf{}, svc)
	if err := coord.Startup(); err != nil {
		t.Fatalf("coordinator startup failed: %v", err)
	}
	defer coord.Shutdown()

	for _, name := range []string{"r1", "r2"} {
		report, err := flow.New(name, time.Minute, 6, []string{"src_ip"})
		if err != nil {
			t.Fatalf("flow.New failed: %v", err)
		}
		if resp := coord.Request(&coordinator.AddReportRequest{Report: report}); resp.Status != coordinator.StatusOK {
			t.Fatalf("AddReport(%s) failed: %s", name, resp.Message)
		}
	}

	writer := &memoryWriter{interval: 20 * time.Millisecond}
	s := New(coord, []model.Writer{writer})
	s.Start()

	deadline := time.After(time.Second)
	for writer.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("snapshotter wrote %d snapshots, want at least 2", writer.count())
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()

	// The final flush on Stop covers both reports again.
	names := make(map[string]bool)
	writer.mu.Lock()
	for _, snap := range writer.written {
		names[snap.ReportName] = true
	}
	writer.mu.Unlock()
	if !names["r1"] || !names["r2"] {
		t.Errorf("snapshots missing a report: %v", names)
	}
}
