package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vm-reconcile/internal/config"
	"vm-reconcile/internal/model"
)

// fakeSource is an InventorySource backed by fixed data.
type fakeSource struct {
	hosts     []*model.ComputeHost
	instances []*model.ControlPlaneInstance
	hostsErr  error
	instErr   error
}

func (s *fakeSource) ListComputeHosts(ctx context.Context) ([]*model.ComputeHost, error) {
	return s.hosts, s.hostsErr
}

func (s *fakeSource) ListInstances(ctx context.Context) ([]*model.ControlPlaneInstance, error) {
	return s.instances, s.instErr
}

func testConfig() *config.Config {
	return &config.Config{
		FanOut: config.FanOutConfig{
			Concurrency: 4,
			BatchSize:   4,
			HostTimeout: 200 * time.Millisecond,
			Deadline:    5 * time.Second,
		},
		Report: config.ReportConfig{Timezone: "UTC"},
	}
}

func newTestInspector(t *testing.T, cfg *config.Config, source InventorySource, runner *fakeRunner, kill bool, out io.Writer, opts ...InspectorOption) *Inspector {
	t.Helper()
	logger := zerolog.Nop()
	fanOut := NewFanOut(runner, &cfg.FanOut, logger)
	remediator := NewRemediator(runner, kill, out, logger)
	i, err := NewInspector(cfg, source, fanOut, remediator, logger, opts...)
	require.NoError(t, err)
	return i
}

func TestNewInspector_InvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Report.Timezone = "Invalid/Zone"

	_, err := NewInspector(cfg, &fakeSource{}, nil, NewRemediator(newFakeRunner(), false, nil, zerolog.Nop()), zerolog.Nop())
	assert.Error(t, err)
}

func TestNewInspector_Options(t *testing.T) {
	cfg := testConfig()
	i := newTestInspector(t, cfg, &fakeSource{}, newFakeRunner(), false, nil, WithVersion("v1.2.3"))

	assert.Equal(t, "v1.2.3", i.GetVersion())
	assert.Equal(t, "UTC", i.GetTimezone().String())
}

func TestInspector_Run_EndToEnd(t *testing.T) {
	source := &fakeSource{
		hosts:     hostsNamed("nodeA"),
		instances: []*model.ControlPlaneInstance{{ID: "uuid-1", Label: "instance-00000001", Host: "nodeA"}},
	}
	runner := newFakeRunner().onHost("nodeA", fakeReply{stdout: listing(
		"1 instance-00000001 running",
		"2 instance-00000002 shut off",
	)})
	var out bytes.Buffer

	i := newTestInspector(t, testConfig(), source, runner, false, &out, WithVersion("test"))
	result, err := i.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.ModeDryRun, result.Mode)
	assert.Equal(t, "test", result.Version)
	require.Len(t, result.Hosts, 1)
	assert.Equal(t, 1, result.Hosts[0].Matched)

	require.Len(t, result.Orphans, 1)
	orphan := result.Orphans[0]
	assert.Equal(t, "instance-00000002", orphan.Label)
	assert.Equal(t, model.DomainShutOff, orphan.State)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, model.ActionUndefine, result.Actions[0].Action)
	assert.True(t, result.Actions[0].DryRun)

	// Only the listing query ran; the undefine was printed.
	assert.Len(t, runner.Calls(), 1)
	assert.Equal(t, "DRY-RUN: ssh nodeA virsh undefine instance-00000002\n", out.String())

	require.NotNil(t, result.Summary)
	assert.Equal(t, 1, result.Summary.OKHosts)
	assert.Equal(t, 2, result.Summary.Domains)
	assert.Equal(t, 1, result.Summary.Matched)
	assert.Equal(t, 1, result.Summary.Orphans)
	assert.Equal(t, 1, result.Summary.ActionsPlanned)
	assert.Equal(t, 0, result.Summary.ActionsFailed)
}

func TestInspector_Run_AssignsRunID(t *testing.T) {
	source := &fakeSource{
		hosts:     hostsNamed("nodeA"),
		instances: []*model.ControlPlaneInstance{{ID: "uuid-1", Label: "instance-00000001", Host: "nodeA"}},
	}
	runner := newFakeRunner().onHost("nodeA", fakeReply{stdout: listing("1 instance-00000001 running")})
	i := newTestInspector(t, testConfig(), source, runner, false, &bytes.Buffer{})

	first, err := i.Run(context.Background())
	require.NoError(t, err)
	second, err := i.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, first.RunID, 36)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestInspector_Run_ExcludesFailedAndSlowHosts(t *testing.T) {
	source := &fakeSource{
		hosts: hostsNamed("node01", "node02", "node03"),
		instances: []*model.ControlPlaneInstance{
			{ID: "a", Label: "instance-00000001", Host: "node01"},
		},
	}
	runner := newFakeRunner().
		onHost("node01", fakeReply{stdout: listing("1 instance-00000001 running", "2 instance-000000aa running")}).
		onHost("node02", fakeReply{exitCode: 255, stderr: "ssh: connect to host node02 port 22: No route to host"}).
		onHost("node03", fakeReply{stdout: listing("1 instance-000000bb running"), delay: 5 * time.Second})

	i := newTestInspector(t, testConfig(), source, runner, true, nil)
	result, err := i.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.TotalHosts)
	assert.Equal(t, 1, result.Summary.OKHosts)
	assert.Equal(t, 1, result.Summary.FailedHosts)
	assert.Equal(t, 1, result.Summary.TimeoutHosts)

	excluded := result.ExcludedHosts()
	require.Len(t, excluded, 2)
	assert.Equal(t, "node02", excluded[0].Host)
	assert.Equal(t, model.HostStatusFailed, excluded[0].Status)
	assert.Equal(t, "node03", excluded[1].Host)
	assert.Equal(t, model.HostStatusTimeout, excluded[1].Status)

	require.Len(t, result.Orphans, 1)
	assert.Equal(t, "node01", result.Orphans[0].Host)
	assert.Equal(t, "instance-000000aa", result.Orphans[0].Label)
	assert.Equal(t, model.ModeKill, result.Mode)
	assert.Len(t, result.Actions, 2)
}

func TestInspector_Run_MigrationNotRemediated(t *testing.T) {
	source := &fakeSource{
		hosts:     hostsNamed("node01", "node02"),
		instances: []*model.ControlPlaneInstance{{ID: "uuid-9", Label: "instance-00000009", Host: "node02"}},
	}
	runner := newFakeRunner().
		onHost("node01", fakeReply{stdout: listing("4 instance-00000009 paused")}).
		onHost("node02", fakeReply{stdout: listing("5 instance-00000009 running")})

	i := newTestInspector(t, testConfig(), source, runner, true, nil)
	result, err := i.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Orphans)
	require.Len(t, result.Migrations, 1)
	assert.Equal(t, "node01", result.Migrations[0].ActualHost)
	assert.Empty(t, result.Actions)
	assert.Len(t, runner.Calls(), 2, "only the two listing queries")
}

func TestInspector_Run_InventoryFetchFailureIsFatal(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeSource
		what   string
	}{
		{"hosts", &fakeSource{hostsErr: errors.New("connection refused")}, "hosts"},
		{"instances", &fakeSource{hosts: hostsNamed("node01"), instErr: errors.New("401 unauthorized")}, "instances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			i := newTestInspector(t, testConfig(), tt.source, runner, true, nil)

			result, err := i.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, result)

			var fetchErr *model.InventoryFetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.what, fetchErr.What)
			assert.Empty(t, runner.Calls(), "no host may be queried without ground truth")
		})
	}
}

func TestInspector_Run_EmptyInventoryRefused(t *testing.T) {
	source := &fakeSource{hosts: hostsNamed("node01")}
	runner := newFakeRunner().onHost("node01", fakeReply{stdout: listing("1 instance-00000001 running")})

	i := newTestInspector(t, testConfig(), source, runner, true, nil)
	_, err := i.Run(context.Background())

	var fetchErr *model.InventoryFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, runner.Calls())
}

func TestInspector_Run_EmptyInventoryAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.AllowEmptyInventory = true
	source := &fakeSource{hosts: hostsNamed("node01")}
	runner := newFakeRunner().onHost("node01", fakeReply{stdout: listing("1 instance-00000001 running")})

	var out bytes.Buffer
	i := newTestInspector(t, cfg, source, runner, false, &out)
	result, err := i.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Orphans, 1)
	assert.Equal(t, "DRY-RUN: ssh node01 virsh destroy 1\nDRY-RUN: ssh node01 virsh undefine instance-00000001\n", out.String())
}

func TestInspector_Run_DryRunWithoutOutputWriter(t *testing.T) {
	source := &fakeSource{
		hosts:     hostsNamed("node01"),
		instances: []*model.ControlPlaneInstance{{ID: "a", Label: "instance-00000001", Host: "node01"}},
	}
	runner := newFakeRunner().onHost("node01", fakeReply{stdout: listing("1 instance-00000001 running", "2 instance-00000002 running")})

	i := newTestInspector(t, testConfig(), source, runner, false, nil)

	var result *model.ReconcileResult
	require.NotPanics(t, func() {
		var err error
		result, err = i.Run(context.Background())
		require.NoError(t, err)
	})
	require.Len(t, result.Actions, 2)
	assert.True(t, result.Actions[0].DryRun)
	assert.Len(t, runner.Calls(), 1)
}

func TestInspector_Run_NoHosts(t *testing.T) {
	i := newTestInspector(t, testConfig(), &fakeSource{}, newFakeRunner(), false, nil)

	result, err := i.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Hosts)
	assert.Equal(t, 0, result.Summary.TotalHosts)
}

func TestInspector_Run_HostFilter(t *testing.T) {
	source := &fakeSource{
		hosts:     hostsNamed("node01.cloud.example.org", "node02.cloud.example.org"),
		instances: []*model.ControlPlaneInstance{{ID: "a", Label: "instance-00000001", Host: "node01"}},
	}
	runner := newFakeRunner().
		onHost("node01.cloud.example.org", fakeReply{stdout: listing("1 instance-00000001 running")}).
		onHost("node02.cloud.example.org", fakeReply{stdout: listing("1 instance-00000002 running")})

	i := newTestInspector(t, testConfig(), source, runner, false, nil, WithHostFilter([]string{"node01", "node99"}))
	result, err := i.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Hosts, 1)
	assert.Equal(t, "node01.cloud.example.org", result.Hosts[0].Host)
	assert.Empty(t, result.Orphans)
	assert.Len(t, runner.Calls(), 1)
}
