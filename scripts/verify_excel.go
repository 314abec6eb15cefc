//go:build ignore
// +build ignore

// This script generates a sample reconciliation report for manual verification.
// Run with: go run scripts/verify_excel.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vm-reconcile/internal/model"
	"vm-reconcile/internal/report/excel"
	"vm-reconcile/internal/report/html"
	"vm-reconcile/internal/service"
)

func main() {
	tz, _ := time.LoadLocation("Asia/Shanghai")
	result := createSampleData(tz)

	excelPath := filepath.Join(".", "sample_orphan_report.xlsx")
	if err := excel.NewWriter(tz).Write(result, excelPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating Excel report: %v\n", err)
		os.Exit(1)
	}
	htmlPath := filepath.Join(".", "sample_orphan_report.html")
	if err := html.NewWriter(tz, "").Write(result, htmlPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating HTML report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Excel report generated: %s\n", excelPath)
	fmt.Printf("✅ HTML report generated: %s\n", htmlPath)
	fmt.Println("\nPlease open the files to verify:")
	fmt.Println("  - Time is in Asia/Shanghai timezone")
	fmt.Println("  - Timed out host is highlighted yellow, failed host red")
	fmt.Println("  - Orphan on node-02 plans destroy → undefine")
	fmt.Println("  - Migration candidate is listed but not remediated")
}

func createSampleData(tz *time.Location) *model.ReconcileResult {
	start := time.Now().In(tz)
	result := model.NewReconcileResult(start, model.ModeDryRun)
	result.Version = "sample"

	result.AddHost(&model.HostReport{
		Host: "node-01.example.org", Status: model.HostStatusOK, Domains: 4, Matched: 3, Ignored: 1,
	})
	orphan := &model.Orphan{Host: "node-02.example.org", LocalID: "12", Label: "instance-0000002a", NumericID: 42, State: model.DomainRunning}
	result.AddHost(&model.HostReport{
		Host: "node-02.example.org", Status: model.HostStatusOK, Domains: 3, Matched: 1,
		Orphans: []*model.Orphan{orphan},
		Migrations: []*model.MigrationCandidate{{
			Label: "instance-0000002b", InstanceID: "6f1c9d2e-0000-4000-8000-00000000002b",
			ExpectedHost: "node-01.example.org", ActualHost: "node-02.example.org", State: model.DomainPaused,
		}},
	})
	result.AddHost(&model.HostReport{
		Host: "node-03.example.org", Status: model.HostStatusTimeout, Error: model.ErrHostTimeout.Error(),
	})
	result.AddHost(&model.HostReport{
		Host: "node-04.example.org", Status: model.HostStatusFailed, Error: "ssh: connect to host node-04 port 22: Connection refused",
	})

	for _, action := range []model.Action{model.ActionDestroy, model.ActionUndefine} {
		result.Actions = append(result.Actions, &model.ActionResult{
			Host: orphan.Host, Label: orphan.Label, Action: action,
			Command: []string{"ssh", orphan.Host, "virsh", string(action), service.Target(orphan, action)},
			DryRun:  true, Success: true,
		})
	}

	result.Finalize(start.Add(42 * time.Second))
	return result
}
