package snapshotter

import (
	"log"
	"sync"
	"time"

	"NetPulse/internal/coordinator"
	"NetPulse/internal/model"
)

// Snapshotter periodically pulls snapshots of every live report through the
// coordinator control plane and hands them to each configured writer. One
// goroutine runs per writer, at the writer's own interval.
type Snapshotter struct {
	coord   *coordinator.Coordinator
	writers []model.Writer
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a snapshotter for the given writers.
func New(coord *coordinator.Coordinator, writers []model.Writer) *Snapshotter {
	return &Snapshotter{
		coord:   coord,
		writers: writers,
		done:    make(chan struct{}),
	}
}

// Start launches one snapshot loop per writer.
func (s *Snapshotter) Start() {
	for _, writer := range s.writers {
		s.wg.Add(1)
		go s.run(writer)
		log.Printf("Started snapshotter for a writer with interval %s.", writer.GetInterval())
	}
}

// Stop signals the loops to take a final snapshot and waits for them.
// Must be called before the coordinator shuts down.
func (s *Snapshotter) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Snapshotter) run(writer model.Writer) {
	defer s.wg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		log.Printf("Invalid interval %s for writer, snapshotter will not run.", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.snapshotAll(writer)
		case <-s.done:
			s.snapshotAll(writer)
			return
		}
	}
}

// snapshotAll fetches the current report list, then a snapshot per report,
// and writes each one.
func (s *Snapshotter) snapshotAll(writer model.Writer) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")

	var reports []string
	resp := s.coord.Request(&coordinator.CallRequest{Func: func(c *coordinator.Coordinator) error {
		for _, st := range c.Stats() {
			reports = append(reports, st.ReportName)
		}
		return nil
	}})
	if resp.Status != coordinator.StatusOK {
		log.Printf("Error listing reports for snapshot: %s", resp.Message)
		return
	}

	for _, name := range reports {
		resp := s.coord.Request(&coordinator.SnapshotRequest{Name: name})
		if resp.Status != coordinator.StatusOK {
			log.Printf("Error taking snapshot of report '%s': %s", name, resp.Message)
			continue
		}
		if err := writer.Write(resp.Snapshot, timestamp); err != nil {
			log.Printf("Error writing snapshot for report '%s': %v", name, err)
		}
	}
}
