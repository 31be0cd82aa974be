// Package io provides input/output contracts for scenario ingestion and
// summary rendering.
package io

import (
	"github.com/hed1ad/swarmtrust/pkg/eval"
	"github.com/hed1ad/swarmtrust/pkg/telemetry"
)

// ScenarioReader reads the telemetry log of one attack scenario.
type ScenarioReader interface {
	// Read returns every telemetry row of the scenario.
	Read() ([]telemetry.Record, error)

	// Close releases resources.
	Close() error
}

// SummaryWriter renders an evaluation summary.
type SummaryWriter interface {
	// Write outputs the complete summary, including skipped scenarios.
	Write(summary *eval.Summary) error
}
