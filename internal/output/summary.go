package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/kx0101/scripttester/internal/models"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func PrintSummary(w io.Writer, summary models.Summary) {
	fmt.Fprintln(w, ColorBold+"==== Summary ===="+ColorReset)
	fmt.Fprintf(w, "Total Requests: %d\nSucceeded: %s%d%s\nFailed: %s%d%s\n",
		summary.TotalRequests, ColorGreen, summary.Succeeded, ColorReset, ColorRed, summary.Failed, ColorReset)

	if summary.Succeeded == 0 {
		return
	}

	fmt.Fprintln(w, "\nLatency (ms):")
	printLatencyStats(w, summary.Latency)

	if len(summary.ByEndpoint) > 1 {
		fmt.Fprintln(w, "\nPer-Endpoint Statistics:")

		names := make([]string, 0, len(summary.ByEndpoint))
		for name := range summary.ByEndpoint {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			es := summary.ByEndpoint[name]
			fmt.Fprintf(w, "\n%s%s:%s\n  Succeeded: %d\n  Failed: %d\n  Latency:\n", ColorCyan, name, ColorReset, es.Succeeded, es.Failed)
			printLatencyStats(w, es.Latency)
		}
	}
}

func printLatencyStats(w io.Writer, stats models.LatencyStats) {
	fmt.Fprintf(w, "  min: %d  avg: %d  p50: %d  p90: %d  p95: %d  p99: %d  max: %d\n", stats.Min, stats.Avg, stats.P50, stats.P90, stats.P95, stats.P99, stats.Max)
}

// PrintResults prints the log newest first, as it is stored.
func PrintResults(w io.Writer, records []models.Record) {
	fmt.Fprintln(w, ColorBold+"==== Results ===="+ColorReset)

	if len(records) == 0 {
		fmt.Fprintln(w, "No results yet. Send a GET or POST request to see output here.")
		return
	}

	for _, rec := range records {
		PrintRecord(w, rec)
	}
}

func PrintRecord(w io.Writer, rec models.Record) {
	methodColor := ColorGreen
	if rec.Method == models.MethodPost {
		methodColor = ColorBlue
	}

	outcome := ColorGreen + "Success" + ColorReset
	if !rec.Success {
		outcome = ColorRed + "Failed" + ColorReset
	}

	fmt.Fprintf(w, "\n%s%s%s %s%s%s  %s  %s\n", methodColor, rec.Method, ColorReset, ColorCyan, rec.Endpoint.Label(), ColorReset, outcome, rec.Timestamp)

	if !rec.Success {
		if rec.ErrorMessage != nil {
			fmt.Fprintf(w, "  Error: %s\n", *rec.ErrorMessage)
		}

		return
	}

	if rec.StatusCode != nil {
		status, color := formatStatus(rec.StatusCode)
		fmt.Fprintf(w, "  Status: %s%s%s\n", color, status, ColorReset)
	}

	if rec.DurationMs != nil {
		fmt.Fprintf(w, "  Duration: %dms\n", *rec.DurationMs)
	}

	if rec.RequestData != nil {
		if data, err := json.MarshalIndent(rec.RequestData, "  ", "  "); err == nil {
			fmt.Fprintf(w, "  Request Data:\n  %s\n", data)
		}
	}

	if len(rec.ResponseData) > 0 {
		fmt.Fprintf(w, "  Response Data:\n  %s\n", indentJSON(rec.ResponseData))
	}
}

func formatStatus(status *int) (string, string) {
	if status == nil {
		return "ERR", ColorRed
	}

	if *status < 400 {
		return fmt.Sprintf("%d", *status), ColorGreen
	} else if *status < 500 {
		return fmt.Sprintf("%d", *status), ColorYellow
	}

	return fmt.Sprintf("%d", *status), ColorRed
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return string(raw)
	}

	return buf.String()
}

func PrintJSONOutput(w io.Writer, records []models.Record, summary models.Summary) error {
	output := map[string]any{
		"results": records,
		"summary": summary,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}
