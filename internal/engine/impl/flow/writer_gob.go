package flow

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NetPulse/internal/engine/impl/flow/statistic"
	"NetPulse/internal/model"
)

func init() {
	// Register the concrete type of Flow for gob encoding/decoding.
	gob.Register(&statistic.Flow{})
}

// SummaryData holds the metadata for a snapshot, internal to the writer.
type SummaryData struct {
	ReportName   string `json:"report_name"`
	TotalFlows   int    `json:"total_flows"`
	TotalBytes   uint64 `json:"total_bytes"`
	TotalPackets uint64 `json:"total_packets"`
	Timestamp    string `json:"timestamp"`
}

// GobWriter handles writing report snapshot data to disk in gob format.
// It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
	interval time.Duration
}

// NewGobWriter creates a new writer for report snapshot data.
func NewGobWriter(rootPath string, interval time.Duration) model.Writer {
	return &GobWriter{rootPath: rootPath, interval: interval}
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write serializes and writes a single report snapshot to disk.
// It expects the payload to be of type statistic.SnapshotData.
func (w *GobWriter) Write(payload model.Snapshot, timestamp string) error {
	snapshot, ok := payload.(statistic.SnapshotData)
	if !ok {
		return fmt.Errorf("invalid payload type for GobWriter: expected statistic.SnapshotData, got %T", payload)
	}

	// Timestamped directory with a subdirectory per report, so two reports
	// snapshotted in the same second cannot collide.
	reportDir := filepath.Join(w.rootPath, timestamp, snapshot.ReportName)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if len(snapshot.Flows) > 0 {
		filePath := filepath.Join(reportDir, "flows.dat")
		file, err := os.Create(filePath)
		if err != nil {
			return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
		}
		defer file.Close()

		encoder := gob.NewEncoder(file)
		if err := encoder.Encode(snapshot.Flows); err != nil {
			return fmt.Errorf("failed to encode flows to gob for file '%s': %w", filePath, err)
		}
	}

	packets, bytes, flows := snapshot.Totals()
	summary := SummaryData{
		ReportName:   snapshot.ReportName,
		TotalFlows:   flows,
		TotalBytes:   bytes,
		TotalPackets: packets,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	summaryFilePath := filepath.Join(reportDir, "summary.json")
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	return nil
}
