package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vm-reconcile/internal/report/excel"
	"vm-reconcile/internal/report/html"
	"vm-reconcile/internal/report/prom"
)

// Registry manages report writers for different formats.
// It provides a centralized way to access report writers by format name.
type Registry struct {
	writers map[string]ReportWriter
}

// NewRegistry creates a new report registry with pre-registered Excel, HTML and
// Prometheus textfile writers.
// If timezone is nil, defaults to Asia/Shanghai.
// htmlTemplatePath is optional; if empty, the HTML writer will use the embedded default template.
func NewRegistry(timezone *time.Location, htmlTemplatePath string) *Registry {
	if timezone == nil {
		timezone, _ = time.LoadLocation("Asia/Shanghai")
	}

	excelWriter := excel.NewWriter(timezone)
	htmlWriter := html.NewWriter(timezone, htmlTemplatePath)
	promWriter := prom.NewWriter()

	r := &Registry{
		writers: make(map[string]ReportWriter),
	}

	// Register writers using their Format() return values
	r.writers[excelWriter.Format()] = excelWriter
	r.writers[htmlWriter.Format()] = htmlWriter
	r.writers[promWriter.Format()] = promWriter

	return r
}

// Get returns a writer for the specified format.
// Format names are case-insensitive (e.g., "Excel", "EXCEL", "excel" all work).
// Returns an error if the format is not supported.
func (r *Registry) Get(format string) (ReportWriter, error) {
	normalizedFormat := strings.ToLower(strings.TrimSpace(format))

	writer, ok := r.writers[normalizedFormat]
	if !ok {
		supported := r.GetAll()
		return nil, fmt.Errorf("unsupported report format %q, supported formats: %s",
			format, strings.Join(supported, ", "))
	}

	return writer, nil
}

// GetAll returns all supported format names in sorted order.
func (r *Registry) GetAll() []string {
	formats := make([]string, 0, len(r.writers))
	for format := range r.writers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Has checks if the specified format is supported.
// Format names are case-insensitive.
func (r *Registry) Has(format string) bool {
	normalizedFormat := strings.ToLower(strings.TrimSpace(format))
	_, ok := r.writers[normalizedFormat]
	return ok
}

// DefaultFilenameTemplate is used when report.filename_template is empty.
const DefaultFilenameTemplate = "orphan_report_{{.Date}}"

// Filename expands a report filename template for the given time.
// Supported placeholders: {{.Date}} (2006-01-02) and {{.Time}} (150405).
func Filename(template string, now time.Time) string {
	if template == "" {
		template = DefaultFilenameTemplate
	}

	replacer := strings.NewReplacer(
		"{{.Date}}", now.Format("2006-01-02"),
		"{{ .Date }}", now.Format("2006-01-02"),
		"{{.Time}}", now.Format("150405"),
		"{{ .Time }}", now.Format("150405"),
	)
	return replacer.Replace(template)
}
