package coordinator

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"NetPulse/internal/model"
	"NetPulse/internal/ticker"
)

// Conf configures the coordinator.
type Conf struct {
	// InputBuffer bounds the inbound batch endpoint. Overflow there is the
	// upstream's problem; the coordinator itself never blocks on a host.
	InputBuffer int

	// HostQueueSize bounds each report host's inbound queue, in batches.
	HostQueueSize int
}

const coordinatorTickerName = "coordinator"

type controlExchange struct {
	req   Request
	reply chan Response
}

// Coordinator owns the registry of report hosts. A single worker goroutine
// multiplexes the inbound batch stream, the control channel, and a 1 s
// wake-up tick; every batch is fanned out by reference to all live hosts.
//
// The registry is touched only by the worker goroutine. All mutation flows
// through the control channel, which is the synchronization: there is no
// lock around the host map.
type Coordinator struct {
	conf   Conf
	ticker *ticker.Service

	inbound chan *model.PacketBatch
	control chan controlExchange

	// report name -> host; worker goroutine only
	hosts   map[string]*ReportHost
	hostSeq int

	started bool
	wg      sync.WaitGroup
}

// New creates a coordinator in the Created state.
func New(conf Conf, tickerSvc *ticker.Service) *Coordinator {
	if conf.InputBuffer <= 0 {
		conf.InputBuffer = 128
	}
	return &Coordinator{
		conf:    conf,
		ticker:  tickerSvc,
		inbound: make(chan *model.PacketBatch, conf.InputBuffer),
		control: make(chan controlExchange),
		hosts:   make(map[string]*ReportHost),
	}
}

// Startup spawns the worker goroutine. It must not be called twice.
func (c *Coordinator) Startup() error {
	if c.started {
		return fmt.Errorf("coordinator is already started")
	}
	c.started = true

	c.wg.Add(1)
	go c.workerLoop()
	return nil
}

// Inbound is the endpoint onto which the upstream pushes packet batches.
// The batch reference held by the sender is consumed by the coordinator.
func (c *Coordinator) Inbound() chan<- *model.PacketBatch {
	return c.inbound
}

// Request serializes req over the control channel and blocks until the
// worker replies. Strict request/reply: one outstanding exchange per caller.
// Must not be called after Shutdown has returned.
func (c *Coordinator) Request(req Request) Response {
	ex := controlExchange{req: req, reply: make(chan Response, 1)}
	c.control <- ex
	return <-ex.reply
}

// Shutdown submits a shutdown request and joins the worker goroutine. Every
// report host is shut down synchronously before the request is acknowledged.
func (c *Coordinator) Shutdown() {
	resp := c.Request(&ShutdownRequest{})
	if resp.Status != StatusOK {
		log.Printf("coordinator: shutdown request returned %q", resp.Message)
	}
	c.wg.Wait()
}

func (c *Coordinator) workerLoop() {
	defer c.wg.Done()

	var tickC <-chan time.Time
	tickChan, err := c.ticker.Subscribe(time.Second, coordinatorTickerName)
	if err != nil {
		// Only happens when the name is taken; run without the wake-up tick.
		log.Printf("coordinator: tick subscription failed: %v", err)
	} else {
		tickC = tickChan.C
	}

	for stop := false; !stop; {
		select {
		case <-tickC:
			// periodic wake-up, no work attached

		case batch := <-c.inbound:
			c.fanOut(batch)

		case ex := <-c.control:
			var resp Response
			resp, stop = c.handleRequest(ex.req)
			ex.reply <- resp
		}
	}

	if tickChan != nil {
		c.ticker.Unsubscribe(tickChan)
	}
}

// fanOut relays one batch to every live host by reference. ProcessBatch
// never blocks; a host with a full queue drops and counts. The coordinator's
// own reference is released afterwards.
func (c *Coordinator) fanOut(batch *model.PacketBatch) {
	for _, host := range c.hosts {
		host.ProcessBatch(batch)
	}
	batch.Release()
}

// handleRequest dispatches one control request. This is the single choke
// point for handler failures: any panic raised below is converted into an
// ERROR response and the loop continues.
func (c *Coordinator) handleRequest(req Request) (resp Response, exit bool) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = errorResponse(fmt.Sprintf("%v", rec))
		}
	}()

	switch r := req.(type) {
	case *CallRequest:
		if err := r.Func(c); err != nil {
			return errorResponse(err.Error()), false
		}
		return okResponse(), false

	case *ShutdownRequest:
		for _, host := range c.hosts {
			host.Shutdown()
		}
		return okResponse(), true

	case *AddReportRequest:
		return c.addReport(r.Report), false

	case *DeleteReportRequest:
		return c.deleteReport(r.Name), false

	case *SnapshotRequest:
		return c.reportSnapshot(r.Name), false

	default:
		return errorResponse(fmt.Sprintf("unknown coordinator request type: %T", req)), false
	}
}

func (c *Coordinator) addReport(report model.Report) Response {
	reportName := report.Name()
	if _, exists := c.hosts[reportName]; exists {
		return errorResponse(fmt.Sprintf("report already exists: %s", reportName))
	}

	// The index is a counter, not the registry size: deletions must not make
	// a later host collide with a live ticker subscription.
	idx := c.hostSeq
	c.hostSeq++

	conf := HostConf{
		Name:       fmt.Sprintf("rh/%d/%s", idx, reportName),
		ThreadName: fmt.Sprintf("rh/%d", idx),
		QueueSize:  c.conf.HostQueueSize,
	}

	host := NewReportHost(conf, c.ticker)
	if err := host.Startup(report); err != nil {
		return errorResponse(err.Error())
	}

	c.hosts[reportName] = host
	log.Printf("coordinator: started report host %s", conf.Name)
	return okResponse()
}

func (c *Coordinator) deleteReport(name string) Response {
	host, ok := c.hosts[name]
	if !ok {
		return errorResponse(fmt.Sprintf("unknown report: %s", name))
	}

	host.Shutdown() // waits for the host to completely shut itself down
	delete(c.hosts, name)
	log.Printf("coordinator: stopped report host %s", host.Name())
	return okResponse()
}

func (c *Coordinator) reportSnapshot(name string) Response {
	host, ok := c.hosts[name]
	if !ok {
		return errorResponse(fmt.Sprintf("unknown report: %s", name))
	}

	var snapshot model.Snapshot
	err := host.CallWithReport(func(r model.Report) error {
		snapshot = r.Snapshot()
		return nil
	})
	if err != nil {
		return errorResponse(err.Error())
	}

	return Response{Status: StatusOK, Snapshot: snapshot}
}

// HostStats describes one live report host.
type HostStats struct {
	Name            string `json:"name"`
	ReportName      string `json:"report_name"`
	PacketsReceived uint64 `json:"packets_received"`
	BatchesDropped  uint64 `json:"batches_dropped"`
}

// Stats reports per-host counters. It reads the registry and therefore must
// run on the worker goroutine: reach it through a CallRequest.
func (c *Coordinator) Stats() []HostStats {
	stats := make([]HostStats, 0, len(c.hosts))
	for reportName, host := range c.hosts {
		stats = append(stats, HostStats{
			Name:            host.Name(),
			ReportName:      reportName,
			PacketsReceived: host.PacketsReceived(),
			BatchesDropped:  host.BatchesDropped(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
