package coordinator

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"NetPulse/internal/model"
	"NetPulse/internal/ticker"
)

func startHost(t *testing.T, report model.Report, queueSize int) (*ReportHost, *ticker.Service) {
	t.Helper()
	svc := ticker.NewService()
	h := NewReportHost(HostConf{Name: "rh/0/test", ThreadName: "rh/0", QueueSize: queueSize}, svc)
	if err := h.Startup(report); err != nil {
		t.Fatalf("host startup failed: %v", err)
	}
	return h, svc
}

func TestHostStartupTwiceFails(t *testing.T) {
	r := newTestReport("r")
	h, _ := startHost(t, r, 8)
	defer h.Shutdown()

	if err := h.Startup(r); err == nil {
		t.Fatal("expected second Startup to fail")
	}
}

func TestHostInitializesTicksOnce(t *testing.T) {
	r := newTestReport("r")
	h, _ := startHost(t, r, 8)

	waitFor(t, time.Second, func() bool { return r.ticksInit.Load() == 1 })
	h.Shutdown()

	if got := r.ticksInit.Load(); got != 1 {
		t.Errorf("TicksInit called %d times, want 1", got)
	}
}

func TestHostDeliversTicksAtReportInterval(t *testing.T) {
	r := newTestReport("r")
	// 500ms window over 10 ticks: one tick every 50ms.
	r.info = model.ReportInfo{TimeWindow: 500 * time.Millisecond, TickCount: 10}
	h, _ := startHost(t, r, 8)
	defer h.Shutdown()

	time.Sleep(275 * time.Millisecond)
	ticks := r.ticks.Load()
	// 5 expected, ±1 for scheduling jitter.
	if ticks < 4 || ticks > 6 {
		t.Errorf("got %d ticks after ~5 intervals, want 5 +/- 1", ticks)
	}
}

func TestHostProcessBatchDoesNotBlock(t *testing.T) {
	r := &blockingReport{
		testReport: newTestReport("r"),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	h, _ := startHost(t, r, 2)

	h.ProcessBatch(makeBatch(1))
	<-r.entered // worker parked in AddMulti

	// Queue is full after two more; further enqueues must return immediately
	// and count drops.
	start := time.Now()
	for i := 0; i < 5; i++ {
		h.ProcessBatch(makeBatch(1))
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("ProcessBatch blocked for %s", elapsed)
	}

	waitFor(t, time.Second, func() bool { return h.BatchesDropped() == 3 })

	close(r.release)
	waitFor(t, time.Second, func() bool { return h.PacketsReceived() == 3 })
	h.Shutdown()
}

func TestHostDroppedBatchReleasesReference(t *testing.T) {
	r := &blockingReport{
		testReport: newTestReport("r"),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	h, _ := startHost(t, r, 1)

	var released atomic.Uint64

	first := makeBatch(1)
	h.ProcessBatch(first)
	first.Release()
	<-r.entered

	queued := makeBatch(1)
	queued.SetReleaseFunc(func(*model.PacketBatch) { released.Add(1) })
	h.ProcessBatch(queued)
	queued.Release()

	dropped := makeBatch(1)
	dropped.SetReleaseFunc(func(*model.PacketBatch) { released.Add(1) })
	h.ProcessBatch(dropped)
	dropped.Release()

	// The dropped batch loses both references immediately.
	if got := released.Load(); got != 1 {
		t.Errorf("released = %d after drop, want 1", got)
	}

	close(r.release)
	waitFor(t, time.Second, func() bool { return released.Load() == 2 })
	h.Shutdown()
}

func TestCallWithReport(t *testing.T) {
	r := newTestReport("r")
	h, _ := startHost(t, r, 8)
	defer h.Shutdown()

	var seen model.Report
	err := h.CallWithReport(func(rep model.Report) error {
		seen = rep
		return nil
	})
	if err != nil {
		t.Fatalf("CallWithReport failed: %v", err)
	}
	if seen != model.Report(r) {
		t.Error("callback did not receive the owned report")
	}

	wantErr := errors.New("inspect failed")
	if err := h.CallWithReport(func(model.Report) error { return wantErr }); err != wantErr {
		t.Errorf("got %v, want the callback's error", err)
	}
}

func TestCallWithReportSurvivesPanic(t *testing.T) {
	r := newTestReport("r")
	h, _ := startHost(t, r, 8)
	defer h.Shutdown()

	err := h.CallWithReport(func(model.Report) error { panic("bad callback") })
	if err == nil {
		t.Fatal("expected panicking callback to surface as error")
	}

	// Worker is still alive and serving calls.
	if err := h.CallWithReport(func(model.Report) error { return nil }); err != nil {
		t.Errorf("worker dead after panicking callback: %v", err)
	}
}

func TestHostShutdownReleasesTickerName(t *testing.T) {
	r := newTestReport("r")
	h, svc := startHost(t, r, 8)
	h.Shutdown()

	ch, err := svc.Subscribe(time.Second, "rh/0/test")
	if err != nil {
		t.Fatalf("host name not released after shutdown: %v", err)
	}
	svc.Unsubscribe(ch)
}
