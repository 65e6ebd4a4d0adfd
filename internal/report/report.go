// Package report renders a run summary for people and delivers it.
//
// Rendering is pure. Delivery goes through Sinks (e-mail, object storage);
// a failing sink is logged and never changes the outcome of the run.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"

	"github.com/dshills/docindex/pkg/types"
)

// DefaultMaxInlineErrors is how many per-document errors are listed in the body
const DefaultMaxInlineErrors = 10

// Report is a rendered summary
type Report struct {
	Subject string
	HTML    string
}

var bodyTemplate = template.Must(template.New("report").Parse(`<h3>{{.Title}}</h3>
{{- if .Fatal}}
<p><b>Error:</b> {{.Fatal}}</p>
{{- end}}
<p><b>Total time:</b> {{printf "%.2f" .Minutes}} min</p>
<p><b>New documents:</b> {{.Summary.NewDocuments}}</p>
<p><b>Pages indexed:</b> {{.Summary.PagesIndexed}} ({{.Summary.PagesOCR}} through OCR)</p>
<p><b>Skipped:</b> {{.Summary.AlreadyIndexed}} already indexed, {{.Summary.NoContent}} without text, {{.Summary.Duplicates}} duplicates</p>
{{- if .Summary.Folders}}
<p><b>Folders processed{{if .Fatal}} (until the failure){{end}}:</b></p>
<ul>
{{- range .Summary.Folders}}
<li>{{.Root}}{{if not .Accessible}} (inaccessible){{end}}: {{.Count}} documents</li>
{{- end}}
</ul>
{{- else if .Fatal}}
<p>The run failed before scanning folders.</p>
{{- end}}
{{- if .Errors}}
<p><b>Errors ({{.Summary.Failed}}):</b></p>
<ul>
{{- range .Errors}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- if .MoreErrors}}
<p>... and {{.MoreErrors}} more</p>
{{- end}}
{{- end}}
{{- if .LogName}}
<p><i>Detailed logs are attached ({{.LogName}})</i></p>
{{- end}}
`))

type bodyData struct {
	Title      string
	Fatal      string
	Minutes    float64
	Summary    *types.RunSummary
	Errors     []string
	MoreErrors int
	LogName    string
}

// Render builds the subject and HTML body. At most maxInline errors are
// listed; a negative value lists all of them.
func Render(summary *types.RunSummary, maxInline int, logFile string) (*Report, error) {
	errs, more := summary.InlineErrors(maxInline)

	data := bodyData{
		Minutes:    summary.Elapsed.Minutes(),
		Summary:    summary,
		Errors:     errs,
		MoreErrors: more,
	}
	if logFile != "" {
		data.LogName = filepath.Base(logFile)
	}

	var subject string
	if summary.Succeeded() {
		subject = fmt.Sprintf("Success: %d new documents indexed", summary.NewDocuments)
		data.Title = "Run report"
	} else {
		subject = "Indexer failed"
		data.Title = "Run aborted"
		data.Fatal = summary.Fatal
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return &Report{Subject: subject, HTML: buf.String()}, nil
}

// Delivery is everything a sink may publish about one run
type Delivery struct {
	Report  *Report
	Summary *types.RunSummary
	LogFile string // may be empty or missing on disk
}

// Sink publishes a finished run somewhere
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}

// Publish hands d to every sink. Failures are logged and otherwise ignored.
func Publish(ctx context.Context, logger *slog.Logger, d Delivery, sinks ...Sink) {
	for _, s := range sinks {
		if err := s.Deliver(ctx, d); err != nil {
			logger.Error("report delivery failed",
				slog.String("sink", s.Name()),
				slog.String("error", err.Error()))
			continue
		}
		logger.Info("report delivered", slog.String("sink", s.Name()))
	}
}
