// Package service provides the reconciliation workflow services.
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"vm-reconcile/internal/config"
	"vm-reconcile/internal/model"
	"vm-reconcile/internal/remote"
	"vm-reconcile/internal/virsh"
)

// Default fan-out limits, used when the corresponding config value is zero.
const (
	defaultConcurrency = 20
	defaultHostTimeout = 30 * time.Second
)

// FanOut runs the domain listing command on every compute host concurrently.
//
// Hosts are launched in sorted order. After every BatchSize launches the
// launcher pauses for BatchPause. Each query is bounded by HostTimeout and the
// whole run by Deadline; queries still running when either expires are
// cancelled and reported with TimedOut set. Run always returns exactly one
// result per host.
type FanOut struct {
	runner  remote.Runner
	config  config.FanOutConfig
	command []string
	logger  zerolog.Logger
}

// NewFanOut creates a new FanOut executor.
func NewFanOut(runner remote.Runner, cfg *config.FanOutConfig, logger zerolog.Logger) *FanOut {
	c := config.FanOutConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.BatchSize <= 0 {
		c.BatchSize = c.Concurrency
	}
	if c.HostTimeout <= 0 {
		c.HostTimeout = defaultHostTimeout
	}

	return &FanOut{
		runner:  runner,
		config:  c,
		command: virsh.ListCommand,
		logger:  logger.With().Str("component", "fanout").Logger(),
	}
}

// Run queries all hosts and returns their results sorted by host name.
// A failing or slow host never aborts the others.
func (f *FanOut) Run(ctx context.Context, hosts []*model.ComputeHost) []*model.HostQueryResult {
	sorted := make([]*model.ComputeHost, 0, len(hosts))
	for _, h := range hosts {
		if h != nil {
			sorted = append(sorted, h)
		}
	}
	model.SortHosts(sorted)

	if f.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Deadline)
		defer cancel()
	}

	f.logger.Info().
		Int("hosts", len(sorted)).
		Int("concurrency", f.config.Concurrency).
		Int("batch_size", f.config.BatchSize).
		Dur("host_timeout", f.config.HostTimeout).
		Dur("deadline", f.config.Deadline).
		Msg("starting host fan-out")

	start := time.Now()

	// Buffered to len(hosts): every task sends exactly once and never blocks.
	sink := make(chan *model.HostQueryResult, len(sorted))

	g := new(errgroup.Group)
	g.SetLimit(f.config.Concurrency)

	for i, host := range sorted {
		if i > 0 && i%f.config.BatchSize == 0 && f.config.BatchPause > 0 {
			f.pause(ctx)
		}

		if err := ctx.Err(); err != nil {
			// Deadline hit before this host was launched.
			sink <- f.cancelledResult(host, err, 0)
			continue
		}

		host := host
		g.Go(func() error {
			sink <- f.query(ctx, host)
			return nil
		})
	}

	_ = g.Wait()
	close(sink)

	results := make([]*model.HostQueryResult, 0, len(sorted))
	var failed, timedOut int
	for res := range sink {
		switch res.Status() {
		case model.HostStatusFailed:
			failed++
		case model.HostStatusTimeout:
			timedOut++
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Host.Name < results[j].Host.Name
	})

	f.logger.Info().
		Int("hosts", len(results)).
		Int("failed", failed).
		Int("timeout", timedOut).
		Dur("duration", time.Since(start)).
		Msg("host fan-out completed")

	return results
}

// pause waits for the batch pause or until ctx is done.
func (f *FanOut) pause(ctx context.Context) {
	timer := time.NewTimer(f.config.BatchPause)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// query runs the listing command on a single host.
func (f *FanOut) query(ctx context.Context, host *model.ComputeHost) *model.HostQueryResult {
	hctx, cancel := context.WithTimeout(ctx, f.config.HostTimeout)
	defer cancel()

	res := f.runner.Run(hctx, host.Name, f.command...)

	if err := hctx.Err(); err != nil && !res.Success() {
		return f.cancelledResult(host, err, res.Duration)
	}

	result := &model.HostQueryResult{
		Host:     host,
		Success:  res.Success(),
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	}

	if !result.Success {
		err := res.Err
		if err == nil {
			err = errors.New("non-zero exit")
		}
		result.Err = &model.HostQueryError{
			Host:     host.Name,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
		f.logger.Warn().
			Err(result.Err).
			Str("host", host.Name).
			Int("exit_code", res.ExitCode).
			Msg("host query failed, excluding host from reconciliation")
		return result
	}

	f.logger.Debug().
		Str("host", host.Name).
		Dur("duration", res.Duration).
		Msg("host query succeeded")
	return result
}

// cancelledResult builds the result for a host whose query was cancelled
// or never started because the deadline passed.
func (f *FanOut) cancelledResult(host *model.ComputeHost, cause error, elapsed time.Duration) *model.HostQueryResult {
	result := &model.HostQueryResult{
		Host:     host,
		TimedOut: true,
		ExitCode: -1,
		Duration: elapsed,
		Err: &model.HostQueryError{
			Host:     host.Name,
			ExitCode: -1,
			Err:      errors.Join(model.ErrHostTimeout, cause),
		},
	}
	f.logger.Warn().
		Err(result.Err).
		Str("host", host.Name).
		Dur("duration", elapsed).
		Msg("host query timed out, excluding host from reconciliation")
	return result
}
