package coordinator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"NetPulse/internal/model"
	"NetPulse/internal/ticker"
)

// HostConf configures a single report host. Names are synthesized by the
// coordinator from a monotonically increasing index and the report name, so
// ticker subscriptions stay unique within the process.
type HostConf struct {
	Name       string
	ThreadName string
	QueueSize  int
}

// ReportCallFunc runs on a host's worker goroutine with exclusive access to
// the report.
type ReportCallFunc func(r model.Report) error

type hostCall struct {
	fn    ReportCallFunc
	reply chan error
}

// ReportHost supervises one report: a dedicated worker goroutine, a bounded
// inbound batch queue, a control channel for shipped callbacks, and a tick
// subscription at the report's configured interval.
//
// The report is touched only by the worker goroutine. Outsiders inspect it
// by shipping a callback through CallWithReport instead of taking locks.
type ReportHost struct {
	conf   HostConf
	ticker *ticker.Service

	batches  chan *model.PacketBatch
	calls    chan hostCall
	quit     chan chan struct{}
	tickChan *ticker.Chan

	report model.Report
	wg     sync.WaitGroup

	packetsReceived atomic.Uint64
	batchesDropped  atomic.Uint64
}

// NewReportHost creates a host in the Created state. Startup must be called
// before any other method.
func NewReportHost(conf HostConf, tickerSvc *ticker.Service) *ReportHost {
	if conf.QueueSize <= 0 {
		conf.QueueSize = defaultHostQueueSize
	}
	return &ReportHost{
		conf:    conf,
		ticker:  tickerSvc,
		batches: make(chan *model.PacketBatch, conf.QueueSize),
		calls:   make(chan hostCall),
		quit:    make(chan chan struct{}),
	}
}

const defaultHostQueueSize = 128

// Name returns the host name ("rh/<i>/<report-name>").
func (h *ReportHost) Name() string {
	return h.conf.Name
}

// PacketsReceived returns the number of packets the worker has ingested.
func (h *ReportHost) PacketsReceived() uint64 {
	return h.packetsReceived.Load()
}

// BatchesDropped returns the number of batches rejected by a full inbound
// queue.
func (h *ReportHost) BatchesDropped() uint64 {
	return h.batchesDropped.Load()
}

// Startup takes ownership of the report, subscribes to ticks at
// TimeWindow/TickCount, and spawns the worker goroutine. It fails if the
// host was already started.
func (h *ReportHost) Startup(report model.Report) error {
	if h.report != nil {
		return fmt.Errorf("report host %s is already started", h.conf.Name)
	}

	info := report.Info()
	if info.TickCount <= 0 {
		return fmt.Errorf("report host %s: tick count must be positive, got %d", h.conf.Name, info.TickCount)
	}
	tickInterval := info.TimeWindow / time.Duration(info.TickCount)

	tickChan, err := h.ticker.Subscribe(tickInterval, h.conf.Name)
	if err != nil {
		return fmt.Errorf("report host %s: %w", h.conf.Name, err)
	}

	h.report = report
	h.tickChan = tickChan

	h.wg.Add(1)
	go h.workerLoop()

	return nil
}

// ProcessBatch enqueues a batch for the worker without blocking. The caller
// keeps its own reference; on success one reference is transferred to the
// worker. A full queue drops the batch and bumps the drop counter.
func (h *ReportHost) ProcessBatch(batch *model.PacketBatch) {
	batch.Retain()
	select {
	case h.batches <- batch:
	default:
		batch.Release()
		h.batchesDropped.Add(1)
	}
}

// CallWithReport ships fn into the worker goroutine and blocks until it has
// run against the report. The returned error is fn's error, or the recovered
// panic if fn panicked; the worker survives either way.
func (h *ReportHost) CallWithReport(fn ReportCallFunc) error {
	call := hostCall{fn: fn, reply: make(chan error, 1)}
	h.calls <- call
	return <-call.reply
}

// Shutdown signals the worker, waits for its acknowledgement, and joins the
// goroutine. The ticker subscription is released before the worker exits, so
// the host name may be reused afterwards.
func (h *ReportHost) Shutdown() {
	ack := make(chan struct{})
	h.quit <- ack
	<-ack
	h.wg.Wait()
}

func (h *ReportHost) workerLoop() {
	defer h.wg.Done()

	h.report.TicksInit(time.Now())

	for {
		select {
		case now := <-h.tickChan.C:
			h.report.TickNow(now)

		case batch := <-h.batches:
			h.report.AddMulti(batch.Packets, batch.PacketCount)
			h.packetsReceived.Add(uint64(batch.PacketCount))
			batch.Release()

		case call := <-h.calls:
			call.reply <- runReportCall(call.fn, h.report)

		case ack := <-h.quit:
			h.drainBatches()
			// Release the subscription name before acknowledging, so a host
			// recreated under the same name can subscribe immediately.
			h.ticker.Unsubscribe(h.tickChan)
			close(ack)
			return
		}
	}
}

// drainBatches releases references still queued at shutdown.
func (h *ReportHost) drainBatches() {
	for {
		select {
		case batch := <-h.batches:
			batch.Release()
		default:
			return
		}
	}
}

func runReportCall(fn ReportCallFunc, r model.Report) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("report call panicked: %v", rec)
		}
	}()
	return fn(r)
}
