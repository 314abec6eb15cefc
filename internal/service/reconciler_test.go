package service

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vm-reconcile/internal/model"
)

func okResult(host, stdout string) *model.HostQueryResult {
	return &model.HostQueryResult{Host: model.NewComputeHost(host), Success: true, Stdout: stdout}
}

func failedResult(host string) *model.HostQueryResult {
	return &model.HostQueryResult{
		Host:     model.NewComputeHost(host),
		ExitCode: 255,
		Err:      &model.HostQueryError{Host: host, ExitCode: 255, Stderr: "Connection refused"},
	}
}

func newTestReconciler(instances []*model.ControlPlaneInstance, ignore ...string) *Reconciler {
	return NewReconciler(NewInventoryIndex(instances), ignore, zerolog.Nop())
}

func TestReconciler_MatchedUnderEitherHostForm(t *testing.T) {
	r := newTestReconciler([]*model.ControlPlaneInstance{
		{ID: "a", Label: "instance-00000001", Host: "node01"},
		{ID: "b", Label: "instance-00000002", Host: "node02.cloud.example.org"},
	})

	reports := r.ReconcileAll([]*model.HostQueryResult{
		okResult("node01.cloud.example.org", listing("1 instance-00000001 running")),
		okResult("node02", listing("- instance-00000002 shut off")),
	})

	require.Len(t, reports, 2)
	for _, rep := range reports {
		assert.Equal(t, model.HostStatusOK, rep.Status)
		assert.Equal(t, 1, rep.Matched, rep.Host)
		assert.Empty(t, rep.Orphans, rep.Host)
		assert.Empty(t, rep.Migrations, rep.Host)
	}
}

func TestReconciler_UnknownLabelIsOrphan(t *testing.T) {
	r := newTestReconciler([]*model.ControlPlaneInstance{
		{ID: "a", Label: "instance-00000001", Host: "nodeA"},
	})

	reports := r.ReconcileAll([]*model.HostQueryResult{
		okResult("nodeA", listing("1 instance-00000001 running", "7 instance-0000001a paused")),
	})

	require.Len(t, reports, 1)
	rep := reports[0]
	assert.Equal(t, 1, rep.Matched)
	require.Len(t, rep.Orphans, 1)
	assert.Equal(t, "nodeA", rep.Orphans[0].Host)
	assert.Equal(t, "instance-0000001a", rep.Orphans[0].Label)
	assert.Equal(t, int64(26), rep.Orphans[0].NumericID)
	assert.Equal(t, "7", rep.Orphans[0].LocalID)
	assert.Equal(t, model.DomainPaused, rep.Orphans[0].State)
}

func TestReconciler_OtherHostIsMigration(t *testing.T) {
	r := newTestReconciler([]*model.ControlPlaneInstance{
		{ID: "uuid-1", Label: "instance-00000001", Host: "node02"},
	})

	reports := r.ReconcileAll([]*model.HostQueryResult{
		okResult("node01", listing("3 instance-00000001 paused")),
		okResult("node02", listing("4 instance-00000001 running")),
	})

	require.Len(t, reports, 2)
	src := reports[0]
	assert.Equal(t, "node01", src.Host)
	assert.Empty(t, src.Orphans)
	require.Len(t, src.Migrations, 1)
	assert.Equal(t, &model.MigrationCandidate{
		Label:        "instance-00000001",
		InstanceID:   "uuid-1",
		ExpectedHost: "node02",
		ActualHost:   "node01",
		State:        model.DomainPaused,
	}, src.Migrations[0])

	assert.Equal(t, 1, reports[1].Matched)
}

func TestReconciler_FailedHostContributesNothing(t *testing.T) {
	r := newTestReconciler([]*model.ControlPlaneInstance{
		{ID: "a", Label: "instance-00000001", Host: "node01"},
	})

	failed := failedResult("node01")
	// Stale output on a failed result must never be classified.
	failed.Stdout = listing("9 instance-000000ff running")

	reports := r.ReconcileAll([]*model.HostQueryResult{
		failed,
		okResult("node02", listing("5 instance-000000ff running")),
	})

	require.Len(t, reports, 2)
	assert.Equal(t, model.HostStatusFailed, reports[0].Status)
	assert.True(t, reports[0].Excluded())
	assert.Empty(t, reports[0].Orphans)
	assert.Equal(t, 0, reports[0].Domains)
	assert.Contains(t, reports[0].Error, "Connection refused")

	require.Len(t, reports[1].Orphans, 1)
	assert.Equal(t, "node02", reports[1].Orphans[0].Host)
}

func TestReconciler_TimedOutHostExcluded(t *testing.T) {
	r := newTestReconciler(nil)

	res := &model.HostQueryResult{Host: model.NewComputeHost("node09"), TimedOut: true, Err: model.ErrHostTimeout}
	rep := r.ReconcileHost(res, nil)

	assert.Equal(t, model.HostStatusTimeout, rep.Status)
	assert.Empty(t, rep.Orphans)
	assert.Equal(t, model.ErrHostTimeout.Error(), rep.Error)
}

func TestReconciler_DecodeErrorDoesNotAbortHost(t *testing.T) {
	r := newTestReconciler(nil)

	reports := r.ReconcileAll([]*model.HostQueryResult{
		okResult("node01", listing("- instance-000000XY shut off", "2 instance-00000002 running")),
	})

	require.Len(t, reports, 1)
	rep := reports[0]
	require.Len(t, rep.DecodeErrors, 1)
	assert.Contains(t, rep.DecodeErrors[0], "instance-000000XY")
	assert.Contains(t, rep.DecodeErrors[0], "node01")
	require.Len(t, rep.Orphans, 1)
	assert.Equal(t, "instance-00000002", rep.Orphans[0].Label)
}

func TestReconciler_IgnoreLabels(t *testing.T) {
	r := newTestReconciler(nil, "guestfs-*", "vm-*")

	reports := r.ReconcileAll([]*model.HostQueryResult{
		okResult("node01", listing(
			"1 guestfs-00000abc running",
			"2 vm-00000001 running",
			"3 instance-00000003 idle",
		)),
	})

	rep := reports[0]
	assert.Equal(t, 3, rep.Domains)
	assert.Equal(t, 2, rep.Ignored)
	require.Len(t, rep.Orphans, 1)
	assert.Equal(t, "instance-00000003", rep.Orphans[0].Label)
}

func TestReconciler_DeterministicAcrossInputOrder(t *testing.T) {
	instances := []*model.ControlPlaneInstance{
		{ID: "a", Label: "instance-00000001", Host: "node01"},
		{ID: "b", Label: "instance-00000002", Host: "node02"},
	}
	inputs := []*model.HostQueryResult{
		okResult("node02", listing("1 instance-00000002 running", "2 instance-00000010 running")),
		failedResult("node03"),
		okResult("node01", listing("1 instance-00000001 running", "2 instance-00000002 paused")),
	}
	reversed := []*model.HostQueryResult{inputs[2], inputs[1], inputs[0]}

	first := newTestReconciler(instances).ReconcileAll(inputs)
	second := newTestReconciler(instances).ReconcileAll(reversed)

	assert.Equal(t, first, second)
	assert.Equal(t, "node01", first[0].Host)
	assert.Equal(t, "node03", first[2].Host)
}
