package service

import (
	"path"
	"sort"

	"github.com/rs/zerolog"

	"vm-reconcile/internal/model"
	"vm-reconcile/internal/virsh"
)

// Reconciler classifies hypervisor domains against the control-plane inventory.
//
// For a host whose query succeeded, each parsed domain is:
//   - matched when the index assigns its label to that host (full or short name);
//   - a migration candidate when the label is assigned to a different host;
//   - an orphan when the label is unknown to the control plane.
//
// Hosts whose query failed or timed out produce a report with no records.
type Reconciler struct {
	index        *InventoryIndex
	ignoreLabels []string
	logger       zerolog.Logger
}

// NewReconciler creates a new Reconciler.
// Domains whose label matches one of ignoreLabels (path.Match globs) are counted
// as ignored and never classified.
func NewReconciler(index *InventoryIndex, ignoreLabels []string, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		index:        index,
		ignoreLabels: ignoreLabels,
		logger:       logger.With().Str("component", "reconciler").Logger(),
	}
}

// ReconcileAll parses and reconciles every host result.
// The returned reports are sorted by host name regardless of input order.
func (r *Reconciler) ReconcileAll(results []*model.HostQueryResult) []*model.HostReport {
	reports := make([]*model.HostReport, 0, len(results))
	for _, res := range results {
		if res == nil || res.Host == nil {
			continue
		}
		var parsed *virsh.ParseResult
		if res.Success {
			parsed = virsh.Parse(res.Host.Name, res.Stdout)
		}
		reports = append(reports, r.ReconcileHost(res, parsed))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Host < reports[j].Host
	})
	return reports
}

// ReconcileHost classifies the parsed listing of a single host.
// parsed is ignored unless the query succeeded.
func (r *Reconciler) ReconcileHost(res *model.HostQueryResult, parsed *virsh.ParseResult) *model.HostReport {
	report := &model.HostReport{
		Host:   res.Host.Name,
		Status: res.Status(),
	}

	if report.Excluded() {
		if res.Err != nil {
			report.Error = res.Err.Error()
		}
		return report
	}

	if parsed == nil {
		parsed = &virsh.ParseResult{}
	}

	for _, err := range parsed.Errors {
		report.DecodeErrors = append(report.DecodeErrors, err.Error())
		r.logger.Warn().Err(err).Str("host", report.Host).Msg("skipping domain with undecodable label")
	}

	report.Domains = len(parsed.Instances)

	for _, inst := range parsed.Instances {
		if r.ignored(inst.Label) {
			report.Ignored++
			r.logger.Debug().Str("host", report.Host).Str("label", inst.Label).Msg("domain ignored by pattern")
			continue
		}

		if r.index.Has(report.Host, inst.Label) {
			report.Matched++
			continue
		}

		if known := r.index.Lookup(inst.Label); len(known) > 0 {
			candidate := &model.MigrationCandidate{
				Label:        inst.Label,
				InstanceID:   known[0].ID,
				ExpectedHost: known[0].Host,
				ActualHost:   report.Host,
				State:        inst.State,
			}
			report.Migrations = append(report.Migrations, candidate)
			r.logger.Info().
				Str("label", inst.Label).
				Str("instance_id", candidate.InstanceID).
				Str("expected_host", candidate.ExpectedHost).
				Str("actual_host", candidate.ActualHost).
				Str("state", string(inst.State)).
				Msg("possible migration in flight")
			continue
		}

		orphan := model.NewOrphan(inst)
		report.Orphans = append(report.Orphans, orphan)
		r.logger.Error().
			Str("host", report.Host).
			Str("local_id", inst.LocalID).
			Str("label", inst.Label).
			Int64("numeric_id", inst.NumericID).
			Str("state", string(inst.State)).
			Msg("orphan domain found")
	}

	return report
}

// ignored reports whether label matches any ignore pattern.
func (r *Reconciler) ignored(label string) bool {
	for _, pattern := range r.ignoreLabels {
		if ok, _ := path.Match(pattern, label); ok {
			return true
		}
	}
	return false
}
