package alerter

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"NetPulse/internal/config"
	"NetPulse/internal/coordinator"
	"NetPulse/internal/engine/impl/flow/statistic"
	"NetPulse/internal/model"
)

// Alerter periodically pulls report snapshots through the coordinator
// control plane, evaluates them against threshold rules, and triggers
// notifications if rules are violated.
type Alerter struct {
	coord         *coordinator.Coordinator
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg *config.AlerterConfig, coord *coordinator.Coordinator, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}

	return &Alerter{
		coord:         coord,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins the periodic evaluation of alert rules.
func (a *Alerter) Start() {
	log.Println("Alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.evaluateAllRules()
		case <-a.stopChan:
			return
		}
	}
}

// Stop gracefully stops the alerter's evaluation loop.
// Must be called before the coordinator shuts down.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
}

// evaluateAllRules snapshots each report referenced by a rule and collects
// triggered messages into a single notification.
func (a *Alerter) evaluateAllRules() {
	rulesByReport := make(map[string][]config.AlerterRule)
	for _, rule := range a.rules {
		rulesByReport[rule.ReportName] = append(rulesByReport[rule.ReportName], rule)
	}

	var allMessages []string
	for reportName, rules := range rulesByReport {
		resp := a.coord.Request(&coordinator.SnapshotRequest{Name: reportName})
		if resp.Status != coordinator.StatusOK {
			log.Printf("Alerter: snapshot of report '%s' failed: %s", reportName, resp.Message)
			continue
		}

		snapshot, ok := resp.Snapshot.(statistic.SnapshotData)
		if !ok {
			log.Printf("Alerter: report '%s' produced unexpected snapshot type %T", reportName, resp.Snapshot)
			continue
		}

		allMessages = append(allMessages, evaluate(snapshot, rules)...)
	}

	if len(allMessages) == 0 {
		return
	}

	body := strings.Join(allMessages, "\n")
	if a.notifier == nil {
		log.Printf("ALERT (no notifier configured):\n%s", body)
		return
	}
	subject := fmt.Sprintf("NetPulse alert: %d rule(s) triggered", len(allMessages))
	if err := a.notifier.Send(subject, body); err != nil {
		log.Printf("Alerter: failed to send notification: %v", err)
	}
}

// evaluate checks one report snapshot against its rules.
func evaluate(snapshot statistic.SnapshotData, rules []config.AlerterRule) []string {
	totalPackets, totalBytes, flowCount := snapshot.Totals()

	var triggered []string
	for _, rule := range rules {
		var currentValue float64
		var unit string

		switch rule.Metric {
		case "total_packets":
			currentValue = float64(totalPackets)
			unit = "packets"
		case "total_bytes":
			currentValue = float64(totalBytes)
			unit = "bytes"
		case "total_flows":
			currentValue = float64(flowCount)
			unit = "flows"
		default:
			log.Printf("Alerter: unknown metric '%s' in rule for report '%s'", rule.Metric, rule.ReportName)
			continue
		}

		if check(currentValue, rule.Threshold, rule.Operator) {
			triggered = append(triggered, fmt.Sprintf(
				"Report '%s': %s is %.0f %s (threshold %s %.0f)",
				rule.ReportName, rule.Metric, currentValue, unit, rule.Operator, rule.Threshold))
		}
	}
	return triggered
}

func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">", "":
		return value > threshold
	case "<":
		return value < threshold
	default:
		log.Printf("Alerter: unknown operator '%s'", operator)
		return false
	}
}
