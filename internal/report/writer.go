// Package report provides report generation functionality for the reconciliation tool.
// It defines the ReportWriter interface and provides implementations for
// different output formats including Excel and HTML.
package report

import (
	"vm-reconcile/internal/model"
)

// ReportWriter defines the interface for generating reconciliation reports.
type ReportWriter interface {
	// Write generates a report from the reconciliation result and saves it
	// to the specified output path. The extension appropriate for the format
	// is appended when missing.
	Write(result *model.ReconcileResult, outputPath string) error

	// Format returns the format identifier for this writer ("excel", "html").
	Format() string
}
