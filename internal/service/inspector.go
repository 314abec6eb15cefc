// Package service provides the reconciliation workflow services.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vm-reconcile/internal/config"
	"vm-reconcile/internal/model"
)

const defaultTimezone = "Asia/Shanghai"

// InventorySource supplies the control-plane view of the fleet.
// It is implemented by the Nova client and by the offline inventory file.
type InventorySource interface {
	ListComputeHosts(ctx context.Context) ([]*model.ComputeHost, error)
	ListInstances(ctx context.Context) ([]*model.ControlPlaneInstance, error)
}

// Inspector orchestrates a complete reconciliation run: inventory fetch,
// host fan-out, reconciliation, remediation and result aggregation.
type Inspector struct {
	source     InventorySource
	fanOut     *FanOut
	remediator *Remediator
	config     *config.Config
	hostFilter []string
	timezone   *time.Location
	version    string
	logger     zerolog.Logger
	rootLogger zerolog.Logger // unscoped, for per-run components
}

// InspectorOption is a functional option for configuring an Inspector.
type InspectorOption func(*Inspector)

// NewInspector creates a new Inspector with the given dependencies.
func NewInspector(
	cfg *config.Config,
	source InventorySource,
	fanOut *FanOut,
	remediator *Remediator,
	logger zerolog.Logger,
	opts ...InspectorOption,
) (*Inspector, error) {
	tzName := defaultTimezone
	if cfg != nil && cfg.Report.Timezone != "" {
		tzName = cfg.Report.Timezone
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tzName, err)
	}

	if cfg == nil {
		cfg = &config.Config{}
	}

	i := &Inspector{
		source:     source,
		fanOut:     fanOut,
		remediator: remediator,
		config:     cfg,
		hostFilter: cfg.Reconcile.Hosts,
		timezone:   loc,
		version:    "dev",
		logger:     logger.With().Str("component", "inspector").Logger(),
		rootLogger: logger,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// WithVersion sets the tool version to include in the result.
func WithVersion(version string) InspectorOption {
	return func(i *Inspector) {
		i.version = version
	}
}

// WithHostFilter restricts the run to the named hosts (full or short names).
// It replaces reconcile.hosts from the config.
func WithHostFilter(hosts []string) InspectorOption {
	return func(i *Inspector) {
		if len(hosts) > 0 {
			i.hostFilter = hosts
		}
	}
}

// Run executes the reconciliation workflow:
// 1. Fetches compute hosts and control-plane instances (fatal on failure)
// 2. Queries every host concurrently
// 3. Parses and reconciles each successful host
// 4. Remediates orphans (dry-run unless kill mode)
// 5. Aggregates everything into a ReconcileResult
func (i *Inspector) Run(ctx context.Context) (*model.ReconcileResult, error) {
	startTime := time.Now().In(i.timezone)
	runID := uuid.NewString()
	logger := i.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Time("start_time", startTime).
		Str("timezone", i.timezone.String()).
		Str("mode", string(i.remediator.Mode())).
		Msg("starting reconciliation")

	result := model.NewReconcileResult(startTime, i.remediator.Mode())
	result.RunID = runID
	result.Version = i.version

	// Step 1: Fetch control-plane inventory
	logger.Debug().Msg("step 1: fetching control-plane inventory")
	hosts, err := i.source.ListComputeHosts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch compute hosts")
		return nil, &model.InventoryFetchError{What: "hosts", Err: err}
	}

	instances, err := i.source.ListInstances(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch instances")
		return nil, &model.InventoryFetchError{What: "instances", Err: err}
	}

	hosts = i.filterHosts(hosts)
	if len(hosts) == 0 {
		logger.Warn().Msg("no compute hosts found, completing with empty result")
		result.Finalize(time.Now().In(i.timezone))
		return result, nil
	}

	if len(instances) == 0 && !i.config.Reconcile.AllowEmptyInventory {
		logger.Error().
			Int("hosts", len(hosts)).
			Msg("control plane returned no instances, refusing to classify every domain as orphan")
		return nil, &model.InventoryFetchError{
			What: "instances",
			Err:  fmt.Errorf("empty instance list for %d hosts (set reconcile.allow_empty_inventory to override)", len(hosts)),
		}
	}

	index := NewInventoryIndex(instances)
	logger.Info().
		Int("hosts", len(hosts)).
		Int("instances", index.Len()).
		Msg("control-plane inventory loaded")

	// Step 2: Query hosts
	logger.Debug().Msg("step 2: querying hosts")
	queryResults := i.fanOut.Run(ctx, hosts)

	// Step 3: Reconcile
	logger.Debug().Msg("step 3: reconciling")
	reconciler := NewReconciler(index, i.config.Reconcile.IgnoreLabels, i.rootLogger.With().Str("run_id", runID).Logger())
	for _, report := range reconciler.ReconcileAll(queryResults) {
		result.AddHost(report)
	}

	// Step 4: Remediate orphans only; migration candidates are left alone
	logger.Debug().Int("orphans", len(result.Orphans)).Msg("step 4: remediating orphans")
	result.Actions = append(result.Actions, i.remediator.Remediate(ctx, result.Orphans)...)

	// Step 5: Finalize
	result.Finalize(time.Now().In(i.timezone))

	for _, h := range result.ExcludedHosts() {
		logger.Warn().
			Str("host", h.Host).
			Str("status", string(h.Status)).
			Str("error", h.Error).
			Msg("host excluded from result")
	}

	logger.Info().
		Int("total_hosts", result.Summary.TotalHosts).
		Int("ok_hosts", result.Summary.OKHosts).
		Int("failed_hosts", result.Summary.FailedHosts).
		Int("timeout_hosts", result.Summary.TimeoutHosts).
		Int("matched", result.Summary.Matched).
		Int("orphans", result.Summary.Orphans).
		Int("migrations", result.Summary.Migrations).
		Int("actions", result.Summary.ActionsPlanned).
		Int("actions_failed", result.Summary.ActionsFailed).
		Dur("duration", result.Duration).
		Msg("reconciliation completed")

	return result, nil
}

// filterHosts keeps only hosts named in the host filter.
func (i *Inspector) filterHosts(hosts []*model.ComputeHost) []*model.ComputeHost {
	if len(i.hostFilter) == 0 {
		return hosts
	}

	wanted := make(map[string]bool)
	for _, name := range i.hostFilter {
		wanted[model.NormalizeHostname(name)] = true
	}

	matched := make(map[string]bool)
	var filtered []*model.ComputeHost
	for _, h := range hosts {
		for _, alias := range model.HostAliases(h.Name) {
			if wanted[alias] {
				filtered = append(filtered, h)
				matched[alias] = true
				break
			}
		}
	}

	for name := range wanted {
		if !matched[name] {
			i.logger.Warn().Str("host", name).Msg("requested host is not a known compute host")
		}
	}

	i.logger.Debug().
		Int("requested", len(wanted)).
		Int("selected", len(filtered)).
		Msg("host filter applied")
	return filtered
}

// GetTimezone returns the configured timezone.
func (i *Inspector) GetTimezone() *time.Location {
	return i.timezone
}

// GetVersion returns the configured version.
func (i *Inspector) GetVersion() string {
	return i.version
}
