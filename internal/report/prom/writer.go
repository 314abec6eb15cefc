// Package prom writes reconciliation results in the Prometheus text format
// for the node_exporter textfile collector.
package prom

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"vm-reconcile/internal/model"
)

const namespace = "vmrecon"

// Writer implements the ReportWriter interface for Prometheus textfiles.
type Writer struct{}

// NewWriter creates a new Prometheus textfile writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Format returns the report format name.
func (w *Writer) Format() string {
	return "prom"
}

// Write renders result into a fresh registry and writes it atomically to outputPath.
func (w *Writer) Write(result *model.ReconcileResult, outputPath string) error {
	if result == nil {
		return fmt.Errorf("reconcile result is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".prom") {
		outputPath = outputPath + ".prom"
	}

	registry := prometheus.NewRegistry()
	if err := register(registry, result); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	if err := prometheus.WriteToTextfile(outputPath, registry); err != nil {
		return fmt.Errorf("failed to write textfile: %w", err)
	}
	return nil
}

// register builds the gauges for one run.
func register(registry *prometheus.Registry, result *model.ReconcileResult) error {
	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_info",
		Help:      "Metadata of the last reconciliation run.",
	}, []string{"run_id", "mode", "version"})

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last reconciliation run started.",
	})

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last reconciliation run.",
	})

	hostUp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_up",
		Help:      "1 if the host listing was collected and reconciled, 0 if the host was excluded.",
	}, []string{"host", "status"})

	domains := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_domains",
		Help:      "Domains reported by the hypervisor, by classification.",
	}, []string{"host", "class"})

	orphans := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "orphan_info",
		Help:      "Hypervisor domains unknown to the control plane.",
	}, []string{"host", "label", "state"})

	actions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "remediation_actions",
		Help:      "Remediation commands issued in the last run.",
	}, []string{"action", "result"})

	for _, c := range []prometheus.Collector{info, lastRun, duration, hostUp, domains, orphans, actions} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	info.WithLabelValues(result.RunID, string(result.Mode), result.Version).Set(1)
	lastRun.Set(float64(result.StartedAt.Unix()))
	duration.Set(result.Duration.Seconds())

	for _, h := range result.Hosts {
		up := 0.0
		if !h.Excluded() {
			up = 1
		}
		hostUp.WithLabelValues(h.Host, string(h.Status)).Set(up)
		if h.Excluded() {
			continue
		}
		domains.WithLabelValues(h.Host, "matched").Set(float64(h.Matched))
		domains.WithLabelValues(h.Host, "ignored").Set(float64(h.Ignored))
		domains.WithLabelValues(h.Host, "orphan").Set(float64(len(h.Orphans)))
		domains.WithLabelValues(h.Host, "migration").Set(float64(len(h.Migrations)))
	}

	for _, o := range result.Orphans {
		orphans.WithLabelValues(o.Host, o.Label, string(o.State)).Set(1)
	}

	for _, a := range result.Actions {
		actions.WithLabelValues(string(a.Action), actionResult(a)).Inc()
	}

	return nil
}

func actionResult(a *model.ActionResult) string {
	switch {
	case a.DryRun:
		return "dry_run"
	case a.Success:
		return "success"
	default:
		return "failed"
	}
}
