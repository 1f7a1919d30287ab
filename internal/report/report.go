package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
)

// Format selects a summary rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json or html)", s)
}

// Failure is a visit that yielded no text.
type Failure struct {
	URL    string         `json:"url"`
	Status storage.Status `json:"status"`
	Error  string         `json:"error"`
}

// Summary contains aggregated figures about one or more harvest runs.
type Summary struct {
	Runs            int                    `json:"runs"`
	TotalVisits     int                    `json:"total_visits"`
	ByStatus        map[storage.Status]int `json:"by_status"`
	TotalRecords    int                    `json:"total_records"`
	TotalDetections int                    `json:"total_detections"`
	DetectionsBySrc map[string]int         `json:"detections_by_src"`
	TotalTextBytes  int64                  `json:"total_text_bytes"`
	VisitTime       time.Duration          `json:"visit_time"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time"`
	Duration        time.Duration          `json:"duration"`
	Failures        []Failure              `json:"failures,omitempty"`
}

// GenerateSummary aggregates visits in the order given.
func GenerateSummary(visits []*storage.Visit) Summary {
	s := Summary{
		ByStatus:        make(map[storage.Status]int),
		DetectionsBySrc: make(map[string]int),
	}
	if len(visits) == 0 {
		return s
	}

	runs := make(map[string]struct{})
	s.StartTime = visits[0].CreatedAt
	s.EndTime = visits[0].CreatedAt.Add(visits[0].Duration)

	for _, v := range visits {
		runs[v.RunID] = struct{}{}
		s.TotalVisits++
		s.ByStatus[v.Status]++
		s.TotalRecords += v.Records
		s.TotalTextBytes += int64(v.TextLength)
		s.VisitTime += v.Duration

		if v.DetectedBot {
			s.TotalDetections++
			s.DetectionsBySrc[v.DetectionSrc]++
		}
		if v.Status != storage.StatusOK {
			s.Failures = append(s.Failures, Failure{URL: v.URL, Status: v.Status, Error: v.Error})
		}

		if v.CreatedAt.Before(s.StartTime) {
			s.StartTime = v.CreatedAt
		}
		if end := v.CreatedAt.Add(v.Duration); end.After(s.EndTime) {
			s.EndTime = end
		}
	}

	s.Runs = len(runs)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// Write renders summary in format.
func Write(w io.Writer, format Format, summary Summary) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, summary)
	case FormatHTML:
		return WriteHTML(w, summary)
	case FormatText, "":
		return WriteText(w, summary)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

var textReport = template.Must(template.New("textReport").Parse(`qaharvest summary
-----------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Pages:         {{.TotalVisits}} visited in {{.VisitTime}}
Text:          {{.TotalTextBytes}} bytes
Records:       {{.TotalRecords}}

By Status:
{{- range $status, $count := .ByStatus}}
  {{$status}}: {{$count}}
{{- else}}
  None
{{- end}}

Detections: {{.TotalDetections}}
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- end}}
{{- if .Failures}}

Not harvested:
{{- range .Failures}}
  [{{.Status}}] {{.URL}}{{if .Error}}: {{.Error}}{{end}}
{{- end}}
{{- end}}
`))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

var htmlReport = htmltemplate.Must(htmltemplate.New("htmlReport").Parse(`<!DOCTYPE html>
<html>
<head>
<title>qaharvest report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .bad { color: red; }
  .good { color: green; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>qaharvest report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Pages Visited</div>
    <div class="stat-val">{{.TotalVisits}}</div>
  </div>
  <div class="stat-card">
    <div>Records</div>
    <div class="stat-val">{{.TotalRecords}}</div>
  </div>
  <div class="stat-card">
    <div>Detections</div>
    <div class="stat-val {{if gt .TotalDetections 0}}bad{{else}}good{{end}}">{{.TotalDetections}}</div>
  </div>
  <div class="stat-card">
    <div>Text Bytes</div>
    <div class="stat-val">{{.TotalTextBytes}}</div>
  </div>

  <h3>By Status</h3>
  <table>
    <tr><th>Status</th><th>Count</th></tr>
    {{- range $status, $count := .ByStatus}}
    <tr><td>{{$status}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Detections By Source</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $src, $count := .DetectionsBySrc}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Not Harvested</h3>
  <table>
    <tr><th>Status</th><th>URL</th><th>Error</th></tr>
    {{- range .Failures}}
    <tr><td>{{.Status}}</td><td><a href="{{.URL}}">{{.URL}}</a></td><td>{{.Error}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`))

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	if err := htmlReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
