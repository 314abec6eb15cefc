package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vm-reconcile/internal/config"
	"vm-reconcile/internal/model"
)

func TestResolveLogLevel(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		flagLevel  string
		changed    bool
		verbose    int
		want       string
	}{
		{"config only", "warn", "info", false, 0, "warn"},
		{"empty config", "", "info", false, 0, "info"},
		{"explicit flag wins", "warn", "error", true, 2, "error"},
		{"single v", "warn", "info", false, 1, "info"},
		{"single v keeps debug", "debug", "info", false, 1, "debug"},
		{"double v", "error", "info", false, 2, "debug"},
		{"triple v", "error", "info", false, 3, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveLogLevel(tt.configured, tt.flagLevel, tt.changed, tt.verbose))
		})
	}
}

func TestFlagOverrides(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"kill", "host", "inventory-file"} {
			runCmd.Flags().Lookup(name).Changed = false
		}
		kill, onlyHosts, inventoryFile = false, nil, ""
	})

	assert.Empty(t, flagOverrides(runCmd))

	require.NoError(t, runCmd.Flags().Set("kill", "true"))
	require.NoError(t, runCmd.Flags().Set("host", "node01,node02"))
	require.NoError(t, runCmd.Flags().Set("inventory-file", "inv.yaml"))

	got := flagOverrides(runCmd)
	assert.Equal(t, true, got["remediation.kill"])
	assert.Equal(t, []string{"node01", "node02"}, got["reconcile.hosts"])
	assert.Equal(t, "inv.yaml", got["datasources.inventory_file"])
	assert.NotContains(t, got, "report.formats")
}

func TestPrintSummary(t *testing.T) {
	result := model.NewReconcileResult(time.Now(), model.ModeDryRun)
	result.AddHost(&model.HostReport{Host: "nodeA", Status: model.HostStatusOK, Domains: 2, Matched: 1,
		Orphans: []*model.Orphan{{Host: "nodeA", LocalID: "-", Label: "instance-00000002", NumericID: 2}}})
	result.AddHost(&model.HostReport{Host: "nodeB", Status: model.HostStatusTimeout, Error: "host query timed out"})
	result.AddHost(&model.HostReport{Host: "nodeC", Status: model.HostStatusFailed})
	result.Finalize(time.Now())

	var buf bytes.Buffer
	printSummary(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "主机总数: 3")
	assert.Contains(t, out, "孤儿: 1")
	assert.Contains(t, out, "修复模式: dry-run")
	assert.Contains(t, out, "以下 2 台主机未参与比对")
	assert.Contains(t, out, "nodeB [timeout] host query timed out")
	assert.Contains(t, out, "nodeC [failed] failed")
}

func TestResolveFormatsAndOutputDir(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, []string{"excel", "html"}, resolveFormats(cfg))
	assert.Equal(t, "./reports", resolveOutputDir(cfg))

	cfg.Report.Formats = []string{"html"}
	cfg.Report.OutputDir = "/tmp/out"
	assert.Equal(t, []string{"html"}, resolveFormats(cfg))
	assert.Equal(t, "/tmp/out", resolveOutputDir(cfg))
}

func TestReportExt(t *testing.T) {
	assert.Equal(t, ".xlsx", reportExt("excel"))
	assert.Equal(t, ".html", reportExt("html"))
}
