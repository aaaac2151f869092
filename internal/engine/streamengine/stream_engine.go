package streamengine

import (
	"fmt"
	"log"
	"time"

	"NetPulse/internal/alerter"
	"NetPulse/internal/config"
	"NetPulse/internal/coordinator"
	"NetPulse/internal/engine/impl/flow"
	"NetPulse/internal/engine/snapshotter"
	"NetPulse/internal/factory"
	"NetPulse/internal/model"
	"NetPulse/internal/notification"
	"NetPulse/internal/probe"
	"NetPulse/internal/ticker"
)

// StreamEngine consumes packet batches from NATS and routes them through the
// coordinator to every configured report, with periodic snapshot writing and
// alerting on top.
type StreamEngine struct {
	cfg *config.Config

	ticker *ticker.Service
	coord  *coordinator.Coordinator
	sub    *probe.Subscriber
	snap   *snapshotter.Snapshotter
	alertr *alerter.Alerter
}

// New creates a stream engine from configuration.
func New(cfg *config.Config) (*StreamEngine, error) {
	tickerSvc := ticker.NewService()
	coord := coordinator.New(coordinator.Conf{
		InputBuffer:   cfg.Engine.Coordinator.InputBuffer,
		HostQueueSize: cfg.Engine.Coordinator.HostQueueSize,
	}, tickerSvc)

	e := &StreamEngine{
		cfg:    cfg,
		ticker: tickerSvc,
		coord:  coord,
	}

	writers := buildWriters(cfg.Engine.Writers)
	if len(writers) > 0 {
		e.snap = snapshotter.New(coord, writers)
	}

	if cfg.Engine.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" { // Simple check to see if email is configured
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		} else {
			log.Println("Alerter is enabled in config, but no notifiers are configured. Alerts will be logged only.")
		}

		alertr, err := alerter.NewAlerter(&cfg.Engine.Alerter, coord, notifier)
		if err != nil {
			return nil, fmt.Errorf("failed to create alerter: %w", err)
		}
		e.alertr = alertr
	}

	return e, nil
}

// buildWriters creates all enabled snapshot writers from the config.
func buildWriters(defs []config.WriterDef) []model.Writer {
	var writers []model.Writer
	for _, writerDef := range defs {
		if !writerDef.Enabled {
			continue
		}

		interval, err := time.ParseDuration(writerDef.SnapshotInterval)
		if err != nil {
			log.Printf("Warning: invalid snapshot_interval for writer type '%s': %v, skipping.", writerDef.Type, err)
			continue
		}

		var writer model.Writer
		switch writerDef.Type {
		case "gob":
			writer = flow.NewGobWriter(writerDef.Gob.RootPath, interval)
		case "clickhouse":
			writer, err = flow.NewClickHouseWriter(writerDef.ClickHouse, interval)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}
		default:
			log.Printf("Warning: unknown writer type '%s' in config, skipping.", writerDef.Type)
			continue
		}
		writers = append(writers, writer)
	}
	return writers
}

// Coordinator exposes the control plane, for the API server.
func (e *StreamEngine) Coordinator() *coordinator.Coordinator {
	return e.coord
}

// Start launches the coordinator, registers the configured reports, connects
// to NATS, and starts the snapshotter and alerter.
func (e *StreamEngine) Start() error {
	if err := e.coord.Startup(); err != nil {
		return err
	}

	for _, def := range e.cfg.Engine.Reports {
		report, err := factory.NewReport(def)
		if err != nil {
			return err
		}
		if resp := e.coord.Request(&coordinator.AddReportRequest{Report: report}); resp.Status != coordinator.StatusOK {
			return fmt.Errorf("failed to add report '%s': %s", def.Name, resp.Message)
		}
	}

	sub, err := probe.NewSubscriber(e.cfg.Engine.NATS.URL, e.cfg.Engine.NATS.Subject)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	e.sub = sub

	inbound := e.coord.Inbound()
	if err := e.sub.Start(func(batch *model.PacketBatch) {
		inbound <- batch
	}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	if e.snap != nil {
		e.snap.Start()
	}
	if e.alertr != nil {
		go e.alertr.Start()
	}

	log.Println("StreamEngine started.")
	return nil
}

// Stop shuts everything down in dependency order: intake first, then the
// consumers of the control plane, then the coordinator itself.
func (e *StreamEngine) Stop() {
	log.Println("StreamEngine stopping...")

	if e.sub != nil {
		e.sub.Close()
	}
	if e.snap != nil {
		e.snap.Stop()
	}
	if e.alertr != nil {
		e.alertr.Stop()
	}

	e.coord.Shutdown()
	log.Println("StreamEngine stopped.")
}
