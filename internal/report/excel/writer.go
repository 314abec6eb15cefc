// Package excel provides Excel report generation for the reconciliation tool.
// It implements the report.ReportWriter interface to generate .xlsx files
// with the run summary, orphan domains, migration candidates, host status
// and remediation actions.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vm-reconcile/internal/model"
)

const (
	// Sheet names
	sheetSummary    = "巡检概览"
	sheetOrphans    = "孤儿虚拟机"
	sheetMigrations = "疑似迁移"
	sheetHosts      = "主机状态"
	sheetActions    = "修复动作"

	// Default sheet to remove
	defaultSheet = "Sheet1"

	// Colors for conditional formatting (RGB without #)
	colorWarningBg  = "FFEB9C" // Yellow background for warning
	colorWarningFg  = "9C6500" // Dark yellow text for warning
	colorCriticalBg = "FFC7CE" // Red background for critical
	colorCriticalFg = "9C0006" // Dark red text for critical
	colorHeaderBg   = "4472C4" // Blue background for header
	colorHeaderFg   = "FFFFFF" // White text for header
	colorNormalBg   = "C6EFCE" // Green background for normal
	colorNormalFg   = "006100" // Dark green text for normal
)

// Writer implements report.ReportWriter for Excel format.
type Writer struct {
	timezone *time.Location
}

// NewWriter creates a new Excel report writer.
// If timezone is nil, it defaults to Asia/Shanghai.
func NewWriter(timezone *time.Location) *Writer {
	if timezone == nil {
		timezone, _ = time.LoadLocation("Asia/Shanghai")
	}
	return &Writer{
		timezone: timezone,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "excel"
}

// Write generates an Excel report from the reconciliation result.
func (w *Writer) Write(result *model.ReconcileResult, outputPath string) error {
	if result == nil {
		return fmt.Errorf("reconcile result is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.createSummarySheet(f, result); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := w.createOrphansSheet(f, result); err != nil {
		return fmt.Errorf("failed to create orphans sheet: %w", err)
	}

	if err := w.createMigrationsSheet(f, result); err != nil {
		return fmt.Errorf("failed to create migrations sheet: %w", err)
	}

	if err := w.createHostsSheet(f, result); err != nil {
		return fmt.Errorf("failed to create hosts sheet: %w", err)
	}

	if err := w.createActionsSheet(f, result); err != nil {
		return fmt.Errorf("failed to create actions sheet: %w", err)
	}

	// Remove default Sheet1; ignore the error if it is already gone
	_ = f.DeleteSheet(defaultSheet)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	return nil
}

// createSummarySheet creates the run summary worksheet.
func (w *Writer) createSummarySheet(f *excelize.File, result *model.ReconcileResult) error {
	idx, err := f.NewSheet(sheetSummary)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	labelStyle, err := w.createHeaderStyle(f)
	if err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 18,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	valueStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Size: 12,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	f.SetColWidth(sheetSummary, "A", "A", 20)
	f.SetColWidth(sheetSummary, "B", "B", 30)

	f.MergeCell(sheetSummary, "A1", "B1")
	f.SetCellValue(sheetSummary, "A1", "孤儿虚拟机巡检报告")
	f.SetCellStyle(sheetSummary, "A1", "B1", titleStyle)
	f.SetRowHeight(sheetSummary, 1, 30)

	summary := result.Summary
	if summary == nil {
		summary = &model.ReconcileSummary{}
	}

	summaryData := []struct {
		label string
		value interface{}
	}{
		{"巡检时间", result.StartedAt.In(w.timezone).Format("2006-01-02 15:04:05")},
		{"巡检耗时", formatDuration(result.Duration)},
		{"修复模式", modeText(result.Mode)},
		{"主机总数", summary.TotalHosts},
		{"成功主机", summary.OKHosts},
		{"失败主机", summary.FailedHosts},
		{"超时主机", summary.TimeoutHosts},
		{"虚拟机总数", summary.Domains},
		{"匹配数", summary.Matched},
		{"孤儿虚拟机", summary.Orphans},
		{"疑似迁移", summary.Migrations},
		{"域名解析错误", summary.DecodeErrors},
		{"修复动作", summary.ActionsPlanned},
		{"失败动作", summary.ActionsFailed},
	}

	if result.Version != "" {
		summaryData = append(summaryData, struct {
			label string
			value interface{}
		}{"工具版本", result.Version})
	}
	if result.RunID != "" {
		summaryData = append(summaryData, struct {
			label string
			value interface{}
		}{"运行 ID", result.RunID})
	}

	for i, item := range summaryData {
		row := i + 3 // Start from row 3
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), item.label)
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), item.value)
		f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellStyle(sheetSummary, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), valueStyle)
		f.SetRowHeight(sheetSummary, row, 22)
	}

	return nil
}

// createOrphansSheet lists every orphan domain.
func (w *Writer) createOrphansSheet(f *excelize.File, result *model.ReconcileResult) error {
	headers := []string{"主机", "本地ID", "域名", "数字ID", "状态", "计划动作"}
	widths := []float64{28, 10, 24, 12, 12, 24}
	if err := w.createTableSheet(f, sheetOrphans, headers, widths); err != nil {
		return err
	}

	criticalStyle, err := w.createCriticalStyle(f)
	if err != nil {
		return err
	}

	for i, o := range result.Orphans {
		row := i + 2
		rowStr := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetOrphans, "A"+rowStr, o.Host)
		f.SetCellValue(sheetOrphans, "B"+rowStr, o.LocalID)
		f.SetCellValue(sheetOrphans, "C"+rowStr, o.Label)
		f.SetCellValue(sheetOrphans, "D"+rowStr, o.NumericID)
		f.SetCellValue(sheetOrphans, "E"+rowStr, string(o.State))
		f.SetCellValue(sheetOrphans, "F"+rowStr, plannedActions(o))
		f.SetCellStyle(sheetOrphans, "C"+rowStr, "C"+rowStr, criticalStyle)
	}

	return nil
}

// createMigrationsSheet lists domains found on a host other than the assigned one.
func (w *Writer) createMigrationsSheet(f *excelize.File, result *model.ReconcileResult) error {
	headers := []string{"域名", "实例ID", "控制面主机", "实际主机", "状态"}
	widths := []float64{24, 38, 28, 28, 12}
	if err := w.createTableSheet(f, sheetMigrations, headers, widths); err != nil {
		return err
	}

	warningStyle, err := w.createWarningStyle(f)
	if err != nil {
		return err
	}

	for i, m := range result.Migrations {
		rowStr := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheetMigrations, "A"+rowStr, m.Label)
		f.SetCellValue(sheetMigrations, "B"+rowStr, m.InstanceID)
		f.SetCellValue(sheetMigrations, "C"+rowStr, m.ExpectedHost)
		f.SetCellValue(sheetMigrations, "D"+rowStr, m.ActualHost)
		f.SetCellValue(sheetMigrations, "E"+rowStr, string(m.State))
		f.SetCellStyle(sheetMigrations, "A"+rowStr, "A"+rowStr, warningStyle)
	}

	return nil
}

// createHostsSheet lists every host with its query status.
// Excluded hosts are highlighted.
func (w *Writer) createHostsSheet(f *excelize.File, result *model.ReconcileResult) error {
	headers := []string{"主机", "状态", "虚拟机数", "匹配", "忽略", "孤儿", "疑似迁移", "解析错误", "错误信息"}
	widths := []float64{28, 10, 10, 10, 10, 10, 10, 10, 50}
	if err := w.createTableSheet(f, sheetHosts, headers, widths); err != nil {
		return err
	}

	normalStyle, err := w.createNormalStyle(f)
	if err != nil {
		return err
	}
	warningStyle, err := w.createWarningStyle(f)
	if err != nil {
		return err
	}
	criticalStyle, err := w.createCriticalStyle(f)
	if err != nil {
		return err
	}

	for i, h := range result.Hosts {
		rowStr := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheetHosts, "A"+rowStr, h.Host)
		f.SetCellValue(sheetHosts, "B"+rowStr, statusText(h.Status))
		f.SetCellValue(sheetHosts, "C"+rowStr, h.Domains)
		f.SetCellValue(sheetHosts, "D"+rowStr, h.Matched)
		f.SetCellValue(sheetHosts, "E"+rowStr, h.Ignored)
		f.SetCellValue(sheetHosts, "F"+rowStr, len(h.Orphans))
		f.SetCellValue(sheetHosts, "G"+rowStr, len(h.Migrations))
		f.SetCellValue(sheetHosts, "H"+rowStr, len(h.DecodeErrors))
		f.SetCellValue(sheetHosts, "I"+rowStr, h.Error)

		style := w.getStatusStyle(h.Status, normalStyle, warningStyle, criticalStyle)
		f.SetCellStyle(sheetHosts, "B"+rowStr, "B"+rowStr, style)
	}

	return nil
}

// createActionsSheet lists planned or executed remediation commands.
func (w *Writer) createActionsSheet(f *excelize.File, result *model.ReconcileResult) error {
	headers := []string{"主机", "域名", "动作", "命令", "演练", "结果", "退出码", "错误信息"}
	widths := []float64{28, 24, 10, 60, 8, 8, 8, 50}
	if err := w.createTableSheet(f, sheetActions, headers, widths); err != nil {
		return err
	}

	normalStyle, err := w.createNormalStyle(f)
	if err != nil {
		return err
	}
	criticalStyle, err := w.createCriticalStyle(f)
	if err != nil {
		return err
	}

	for i, a := range result.Actions {
		rowStr := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheetActions, "A"+rowStr, a.Host)
		f.SetCellValue(sheetActions, "B"+rowStr, a.Label)
		f.SetCellValue(sheetActions, "C"+rowStr, string(a.Action))
		f.SetCellValue(sheetActions, "D"+rowStr, a.CommandLine())
		f.SetCellValue(sheetActions, "E"+rowStr, boolToText(a.DryRun))
		f.SetCellValue(sheetActions, "F"+rowStr, actionResultText(a))
		f.SetCellValue(sheetActions, "G"+rowStr, a.ExitCode)
		f.SetCellValue(sheetActions, "H"+rowStr, a.Error)

		style := normalStyle
		if !a.Success {
			style = criticalStyle
		}
		f.SetCellStyle(sheetActions, "F"+rowStr, "F"+rowStr, style)
	}

	return nil
}

// createTableSheet creates a sheet with a styled, frozen header row.
func (w *Writer) createTableSheet(f *excelize.File, sheet string, headers []string, widths []float64) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headerStyle, err := w.createHeaderStyle(f)
	if err != nil {
		return err
	}

	for i, width := range widths {
		col := columnName(i + 1)
		f.SetColWidth(sheet, col, col, width)
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", columnName(i+1))
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetRowHeight(sheet, 1, 25)

	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

// createHeaderStyle creates the style for header cells.
func (w *Writer) createHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: colorHeaderFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorHeaderBg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

// createWarningStyle creates the style for warning cells.
func (w *Writer) createWarningStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: colorWarningFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorWarningBg},
			Pattern: 1,
		},
	})
}

// createCriticalStyle creates the style for critical cells.
func (w *Writer) createCriticalStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: colorCriticalFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorCriticalBg},
			Pattern: 1,
		},
	})
}

// createNormalStyle creates the style for normal cells.
func (w *Writer) createNormalStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: colorNormalFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorNormalBg},
			Pattern: 1,
		},
	})
}

// getStatusStyle returns the style for a host status.
func (w *Writer) getStatusStyle(status model.HostStatus, normalStyle, warningStyle, criticalStyle int) int {
	switch status {
	case model.HostStatusOK:
		return normalStyle
	case model.HostStatusTimeout:
		return warningStyle
	case model.HostStatusFailed:
		return criticalStyle
	default:
		return 0
	}
}

// Helper functions

// columnName converts a 1-based column index to Excel column name (A, B, ..., Z, AA, AB, ...).
func columnName(index int) string {
	result := ""
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1f秒", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1f分钟", d.Minutes())
	}
	return fmt.Sprintf("%.1f小时", d.Hours())
}

// statusText converts host status to Chinese text.
func statusText(status model.HostStatus) string {
	switch status {
	case model.HostStatusOK:
		return "成功"
	case model.HostStatusFailed:
		return "失败"
	case model.HostStatusTimeout:
		return "超时"
	default:
		return "未知"
	}
}

// modeText converts the remediation mode to Chinese text.
func modeText(mode model.RemediationMode) string {
	if mode == model.ModeKill {
		return "执行（kill）"
	}
	return "演练（dry-run）"
}

// plannedActions describes the remediation sequence for an orphan.
func plannedActions(o *model.Orphan) string {
	if o.State == model.DomainShutOff {
		return string(model.ActionUndefine)
	}
	return string(model.ActionDestroy) + " → " + string(model.ActionUndefine)
}

// actionResultText converts an action outcome to Chinese text.
func actionResultText(a *model.ActionResult) string {
	if a.Success {
		return "成功"
	}
	return "失败"
}

func boolToText(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
