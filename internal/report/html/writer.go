// Package html provides HTML report generation for the reconciliation tool.
// It implements the report.ReportWriter interface to generate .html files
// with the run summary, orphan domains, migration candidates, host status
// and remediation actions.
package html

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vm-reconcile/internal/model"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Writer implements report.ReportWriter for HTML format.
type Writer struct {
	timezone     *time.Location
	templatePath string // User-defined template path (optional)
}

// TemplateData holds all data passed to the HTML template.
type TemplateData struct {
	Title       string
	RunID       string
	StartedAt   string
	Duration    string
	Mode        string
	DryRun      bool
	Summary     *model.ReconcileSummary
	Hosts       []*HostData
	Excluded    []*HostData
	Orphans     []*OrphanData
	Migrations  []*model.MigrationCandidate
	Actions     []*ActionData
	Version     string
	GeneratedAt string
}

// HostData represents host data formatted for template rendering.
type HostData struct {
	Host         string
	Status       string
	StatusClass  string
	Domains      int
	Matched      int
	Ignored      int
	Orphans      int
	Migrations   int
	DecodeErrors []string
	Error        string
}

// OrphanData represents an orphan formatted for template rendering.
type OrphanData struct {
	Host      string
	LocalID   string
	Label     string
	NumericID int64
	State     string
	Actions   string
}

// ActionData represents a remediation command formatted for template rendering.
type ActionData struct {
	Host        string
	Label       string
	Action      string
	Command     string
	Result      string
	ResultClass string
	ExitCode    int
	Error       string
}

// NewWriter creates a new HTML report writer.
// If timezone is nil, it defaults to Asia/Shanghai.
// If templatePath is empty, the embedded default template will be used.
func NewWriter(timezone *time.Location, templatePath string) *Writer {
	if timezone == nil {
		timezone, _ = time.LoadLocation("Asia/Shanghai")
	}
	return &Writer{
		timezone:     timezone,
		templatePath: templatePath,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "html"
}

// Write generates an HTML report from the reconciliation result.
func (w *Writer) Write(result *model.ReconcileResult, outputPath string) error {
	if result == nil {
		return fmt.Errorf("reconcile result is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = outputPath + ".html"
	}

	tmpl, err := w.loadTemplate()
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	data := w.prepareTemplateData(result)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// loadTemplate loads the HTML template.
// It first tries to load a user-defined template, then falls back to the embedded default.
func (w *Writer) loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatDuration": formatDuration,
		"join":           strings.Join,
	}

	if w.templatePath != "" {
		if _, err := os.Stat(w.templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(w.templatePath)).Funcs(funcMap).ParseFiles(w.templatePath)
			if err != nil {
				return nil, fmt.Errorf("failed to parse user template: %w", err)
			}
			return tmpl, nil
		}
		// User template not found, fall through to default
	}

	tmpl, err := template.New("default.html").Funcs(funcMap).ParseFS(embeddedTemplates, "templates/default.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// prepareTemplateData converts ReconcileResult to TemplateData for template rendering.
func (w *Writer) prepareTemplateData(result *model.ReconcileResult) *TemplateData {
	summary := result.Summary
	if summary == nil {
		summary = &model.ReconcileSummary{}
	}

	data := &TemplateData{
		Title:       "孤儿虚拟机巡检报告",
		RunID:       result.RunID,
		StartedAt:   result.StartedAt.In(w.timezone).Format("2006-01-02 15:04:05"),
		Duration:    formatDuration(result.Duration),
		Mode:        string(result.Mode),
		DryRun:      result.Mode != model.ModeKill,
		Summary:     summary,
		Migrations:  result.Migrations,
		Version:     result.Version,
		GeneratedAt: time.Now().In(w.timezone).Format("2006-01-02 15:04:05"),
	}

	for _, h := range result.Hosts {
		hd := convertHostData(h)
		data.Hosts = append(data.Hosts, hd)
		if h.Excluded() {
			data.Excluded = append(data.Excluded, hd)
		}
	}

	for _, o := range result.Orphans {
		data.Orphans = append(data.Orphans, &OrphanData{
			Host:      o.Host,
			LocalID:   o.LocalID,
			Label:     o.Label,
			NumericID: o.NumericID,
			State:     string(o.State),
			Actions:   plannedActions(o),
		})
	}

	for _, a := range result.Actions {
		ad := &ActionData{
			Host:        a.Host,
			Label:       a.Label,
			Action:      string(a.Action),
			Command:     a.CommandLine(),
			Result:      "成功",
			ResultClass: "status-ok",
			ExitCode:    a.ExitCode,
			Error:       a.Error,
		}
		if a.DryRun {
			ad.Result = "演练"
			ad.ResultClass = "status-dryrun"
		} else if !a.Success {
			ad.Result = "失败"
			ad.ResultClass = "status-failed"
		}
		data.Actions = append(data.Actions, ad)
	}

	return data
}

// convertHostData converts a HostReport to HostData for template rendering.
func convertHostData(h *model.HostReport) *HostData {
	return &HostData{
		Host:         h.Host,
		Status:       statusText(h.Status),
		StatusClass:  statusClass(h.Status),
		Domains:      h.Domains,
		Matched:      h.Matched,
		Ignored:      h.Ignored,
		Orphans:      len(h.Orphans),
		Migrations:   len(h.Migrations),
		DecodeErrors: h.DecodeErrors,
		Error:        h.Error,
	}
}

// Helper functions

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

// statusClass returns the CSS class for a host status.
func statusClass(status model.HostStatus) string {
	switch status {
	case model.HostStatusOK:
		return "status-ok"
	case model.HostStatusFailed:
		return "status-failed"
	case model.HostStatusTimeout:
		return "status-timeout"
	default:
		return ""
	}
}

// plannedActions describes the remediation sequence for an orphan.
func plannedActions(o *model.Orphan) string {
	if o.State == model.DomainShutOff {
		return string(model.ActionUndefine)
	}
	return string(model.ActionDestroy) + " → " + string(model.ActionUndefine)
}
