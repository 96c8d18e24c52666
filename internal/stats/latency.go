package stats

import (
	"slices"

	"github.com/kx0101/scripttester/internal/models"
)

func CalculateLatencyStats(latencies []int64) models.LatencyStats {
	if len(latencies) == 0 {
		return models.LatencyStats{}
	}

	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	slices.Sort(sorted)

	var sum int64
	for _, lat := range sorted {
		sum += lat
	}

	return models.LatencyStats{
		P50: Percentile(sorted, 50),
		P90: Percentile(sorted, 90),
		P95: Percentile(sorted, 95),
		P99: Percentile(sorted, 99),
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / int64(len(sorted)),
	}
}

// Percentile expects latencies to be sorted.
func Percentile(latencies []int64, p int) int64 {
	if len(latencies) == 0 {
		return 0
	}

	idx := (len(latencies) * p / 100)
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}

	return latencies[idx]
}

// Summarize aggregates a result log. Only successful records carry a
// duration, so latency stats cover successes only.
func Summarize(records []models.Record) models.Summary {
	summary := models.Summary{
		ByEndpoint: map[string]models.EndpointStats{},
	}

	var latencies []int64
	perEndpoint := map[string][]int64{}

	for _, r := range records {
		name := r.Endpoint.Name()
		es := summary.ByEndpoint[name]
		summary.TotalRequests++

		if r.Success {
			summary.Succeeded++
			es.Succeeded++
		} else {
			summary.Failed++
			es.Failed++
		}

		if r.DurationMs != nil {
			latencies = append(latencies, *r.DurationMs)
			perEndpoint[name] = append(perEndpoint[name], *r.DurationMs)
		}

		summary.ByEndpoint[name] = es
	}

	summary.Latency = CalculateLatencyStats(latencies)
	for name, es := range summary.ByEndpoint {
		es.Latency = CalculateLatencyStats(perEndpoint[name])
		summary.ByEndpoint[name] = es
	}

	return summary
}
