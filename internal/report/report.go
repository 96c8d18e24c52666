package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/kx0101/scripttester/internal/models"
)

type ReportData struct {
	GeneratedAt string
	ScriptURL   string
	Summary     models.Summary
	Records     []models.Record
}

func GenerateHTML(records []models.Record, summary models.Summary, scriptURL, outputPath string) error {
	file, err := os.Create(outputPath) // #nosec G304 -- path comes from a CLI flag
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := Render(file, records, summary, scriptURL); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func Render(w io.Writer, records []models.Record, summary models.Summary, scriptURL string) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"statusColor": statusColor,
		"prettyJSON":  prettyJSON,
		"status":      derefInt,
		"duration":    derefInt64,
		"message":     derefString,
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	data := ReportData{
		GeneratedAt: time.Now().Format(models.TimestampLayout),
		ScriptURL:   scriptURL,
		Summary:     summary,
		Records:     records,
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

func statusColor(status *int) string {
	switch {
	case status == nil:
		return "error"
	case *status < 400:
		return "success"
	case *status < 500:
		return "warning"
	default:
		return "error"
	}
}

func prettyJSON(v any) string {
	if raw, ok := v.(json.RawMessage); ok {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return string(raw)
		}

		return buf.String()
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(data)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}

	return *p
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}

	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Script Tester Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: #f5f7fa;
            color: #2d3748;
            padding: 2rem;
        }
        .container { max-width: 1100px; margin: 0 auto; }
        .header, .section, .stat-card {
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .header { padding: 2rem; margin-bottom: 2rem; }
        h1 { color: #1a202c; font-size: 2rem; margin-bottom: 0.5rem; }
        .meta { color: #718096; font-size: 0.9rem; word-break: break-all; }
        .stats-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 1rem;
            margin-bottom: 2rem;
        }
        .stat-card { padding: 1.5rem; }
        .stat-value { font-size: 2rem; font-weight: bold; margin-bottom: 0.25rem; }
        .stat-label { color: #718096; font-size: 0.875rem; }
        .stat-value.success { color: #48bb78; }
        .stat-value.error { color: #f56565; }
        .section { padding: 1.5rem; margin-bottom: 1rem; }
        .section-title { font-size: 1.25rem; font-weight: 600; margin-bottom: 1rem; }
        .record-head { display: flex; gap: 0.75rem; align-items: center; margin-bottom: 0.75rem; flex-wrap: wrap; }
        .badge {
            display: inline-block;
            padding: 0.25rem 0.75rem;
            border-radius: 9999px;
            font-size: 0.875rem;
            font-weight: 500;
        }
        .method-GET { background: #48bb78; color: white; }
        .method-POST { background: #4299e1; color: white; }
        .endpoint { background: #edf2f7; color: #2d3748; }
        .status-success { background: #c6f6d5; color: #22543d; }
        .status-warning { background: #feebc8; color: #7c2d12; }
        .status-error { background: #fed7d7; color: #742a2a; }
        .time { color: #718096; font-size: 0.85rem; margin-left: auto; }
        .label { font-weight: 600; font-size: 0.85rem; color: #4a5568; margin: 0.5rem 0 0.25rem; }
        pre {
            background: #f7fafc;
            padding: 0.75rem;
            border-radius: 4px;
            font-family: 'Menlo', 'Monaco', 'Courier New', monospace;
            font-size: 0.85rem;
            white-space: pre-wrap;
            word-break: break-all;
            max-height: 300px;
            overflow-y: auto;
        }
        .error-box { background: #fff5f5; border-left: 4px solid #f56565; padding: 0.75rem; border-radius: 4px; }
        .empty { color: #a0aec0; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Google Apps Script Webapp Tester</h1>
            <div class="meta">Generated: {{.GeneratedAt}}{{if .ScriptURL}} | Script: {{.ScriptURL}}{{end}}</div>
        </div>

        <div class="stats-grid">
            <div class="stat-card">
                <div class="stat-value">{{.Summary.TotalRequests}}</div>
                <div class="stat-label">Total Requests</div>
            </div>
            <div class="stat-card">
                <div class="stat-value success">{{.Summary.Succeeded}}</div>
                <div class="stat-label">Succeeded</div>
            </div>
            <div class="stat-card">
                <div class="stat-value error">{{.Summary.Failed}}</div>
                <div class="stat-label">Failed</div>
            </div>
            <div class="stat-card">
                <div class="stat-value">{{.Summary.Latency.Avg}}ms</div>
                <div class="stat-label">Average Latency</div>
            </div>
        </div>

        {{if not .Records}}
        <div class="section"><span class="empty">No results yet.</span></div>
        {{end}}

        {{range .Records}}
        <div class="section">
            <div class="record-head">
                <span class="badge method-{{.Method}}">{{.Method}}</span>
                <span class="badge endpoint">{{.Endpoint.Label}}</span>
                {{if .Success}}
                <span class="badge status-{{statusColor .StatusCode}}">Success {{status .StatusCode}}</span>
                {{else}}
                <span class="badge status-error">Failed</span>
                {{end}}
                <span class="time">{{.Timestamp}}</span>
            </div>
            {{if .Success}}
            <div class="label">Duration: {{duration .DurationMs}}ms</div>
            {{if .RequestData}}
            <div class="label">Request Data</div>
            <pre>{{prettyJSON .RequestData}}</pre>
            {{end}}
            <div class="label">Response Data</div>
            <pre>{{prettyJSON .ResponseData}}</pre>
            {{else}}
            <div class="error-box">{{message .ErrorMessage}}</div>
            {{end}}
        </div>
        {{end}}
    </div>
</body>
</html>`
