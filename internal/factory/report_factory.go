package factory

import (
	"fmt"

	"NetPulse/internal/config"
	"NetPulse/internal/model"
)

// ReportFactory defines a function that builds a report from its definition.
type ReportFactory func(def config.ReportDef) (model.Report, error)

// registry holds the mapping of report types to their factory functions.
var registry = make(map[string]ReportFactory)

// RegisterReport registers a new report type with its factory function.
func RegisterReport(name string, factory ReportFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("report type '%s' already registered", name))
	}
	registry[name] = factory
}

// NewReport creates a report from a config definition.
func NewReport(def config.ReportDef) (model.Report, error) {
	factory, ok := registry[def.Type]
	if !ok {
		return nil, fmt.Errorf("unknown report type: '%s'", def.Type)
	}

	report, err := factory(def)
	if err != nil {
		return nil, fmt.Errorf("error creating report '%s': %w", def.Name, err)
	}
	return report, nil
}
