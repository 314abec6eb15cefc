package service

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"vm-reconcile/internal/model"
	"vm-reconcile/internal/remote"
	"vm-reconcile/internal/virsh"
)

// Remediator removes orphan domains from their hosts.
//
// In dry-run mode every command is printed and logged but never executed, and
// reported as successful. In kill mode commands run one at a time through the
// remote runner. A failed command is logged and recorded; it is never retried
// and never stops the remaining commands.
type Remediator struct {
	runner remote.Runner
	mode   model.RemediationMode
	out    io.Writer
	logger zerolog.Logger
}

// NewRemediator creates a new Remediator. Dry-run lines are written to out.
func NewRemediator(runner remote.Runner, kill bool, out io.Writer, logger zerolog.Logger) *Remediator {
	mode := model.ModeDryRun
	if kill {
		mode = model.ModeKill
	}
	if out == nil {
		out = io.Discard
	}
	return &Remediator{
		runner: runner,
		mode:   mode,
		out:    out,
		logger: logger.With().Str("component", "remediator").Str("mode", string(mode)).Logger(),
	}
}

// Mode returns the remediation mode.
func (r *Remediator) Mode() model.RemediationMode {
	return r.mode
}

// Plan returns the action sequence for an orphan.
// A shut off domain has nothing to stop, so it is only undefined.
func (r *Remediator) Plan(orphan *model.Orphan) []model.Action {
	if orphan.State == model.DomainShutOff {
		return []model.Action{model.ActionUndefine}
	}
	return []model.Action{model.ActionDestroy, model.ActionUndefine}
}

// Remediate processes orphans sequentially and returns one result per command.
func (r *Remediator) Remediate(ctx context.Context, orphans []*model.Orphan) []*model.ActionResult {
	var results []*model.ActionResult

	for _, orphan := range orphans {
		for _, action := range r.Plan(orphan) {
			results = append(results, r.execute(ctx, orphan, action, Target(orphan, action)))
		}
	}

	return results
}

// Target returns the virsh argument addressing orphan for action.
// destroy uses the running domain's local id. undefine always uses the label:
// libvirt drops the local id once a domain stops, including after destroy.
func Target(orphan *model.Orphan, action model.Action) string {
	if action == model.ActionUndefine {
		return orphan.Label
	}
	return orphan.Instance().Target()
}

// execute runs or prints a single remediation command.
func (r *Remediator) execute(ctx context.Context, orphan *model.Orphan, action model.Action, target string) *model.ActionResult {
	args := virsh.Command(action, target)
	result := &model.ActionResult{
		Host:    orphan.Host,
		Label:   orphan.Label,
		Action:  action,
		Command: r.runner.Command(orphan.Host, args...),
		DryRun:  r.mode == model.ModeDryRun,
	}

	if result.DryRun {
		result.Success = true
		fmt.Fprintf(r.out, "DRY-RUN: %s\n", result.CommandLine())
		r.logger.Info().
			Str("host", orphan.Host).
			Str("label", orphan.Label).
			Str("action", string(action)).
			Str("command", result.CommandLine()).
			Msg("dry-run, command not executed")
		return result
	}

	res := r.runner.Run(ctx, orphan.Host, args...)
	result.ExitCode = res.ExitCode
	result.Stderr = res.Stderr
	result.Success = res.Success()

	if !result.Success {
		err := res.Err
		if err == nil {
			err = fmt.Errorf("non-zero exit")
		}
		remErr := &model.RemediationError{
			Host:     orphan.Host,
			Label:    orphan.Label,
			Action:   action,
			ExitCode: res.ExitCode,
			Err:      err,
		}
		result.Error = remErr.Error()
		r.logger.Error().
			Err(remErr).
			Str("host", orphan.Host).
			Str("label", orphan.Label).
			Str("action", string(action)).
			Str("stderr", res.Stderr).
			Msg("remediation command failed")
		return result
	}

	r.logger.Info().
		Str("host", orphan.Host).
		Str("label", orphan.Label).
		Str("action", string(action)).
		Dur("duration", res.Duration).
		Msg("remediation command succeeded")
	return result
}
