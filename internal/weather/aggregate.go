package weather

import "time"

// ProbeStats summarises a window of probe results for one city.
type ProbeStats struct {
	City        string        `json:"city"`
	Count       int           `json:"count"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"successRate"`
	AvgLatency  time.Duration `json:"avgLatencyNs"`
	MaxLatency  time.Duration `json:"maxLatencyNs"`
	Condition   string        `json:"condition,omitempty"` // most frequent among successful probes
	LastError   string        `json:"lastError,omitempty"`
	Newest      time.Time     `json:"newest"`
}

// AggregateProbes combines probe results into a single ProbeStats.
// Latencies are averaged; the condition is selected by majority (earliest seen if tied).
func AggregateProbes(city string, results []ProbeResult) ProbeStats {
	stats := ProbeStats{City: city, Count: len(results)}
	if len(results) == 0 {
		return stats
	}

	var sumLatency time.Duration
	conditionCounts := make(map[string]int)
	var conditionOrder []string

	for _, r := range results {
		sumLatency += r.Latency
		if r.Latency > stats.MaxLatency {
			stats.MaxLatency = r.Latency
		}

		if r.OK {
			stats.Succeeded++
			if r.Summary != nil {
				if _, seen := conditionCounts[r.Summary.Condition]; !seen {
					conditionOrder = append(conditionOrder, r.Summary.Condition)
				}
				conditionCounts[r.Summary.Condition]++
			}
		} else {
			stats.Failed++
		}

		if !r.Timestamp.Before(stats.Newest) {
			stats.Newest = r.Timestamp
			if !r.OK {
				stats.LastError = r.Error
			}
		}
	}

	n := len(results)
	stats.AvgLatency = sumLatency / time.Duration(n)
	stats.SuccessRate = float64(stats.Succeeded) / float64(n)

	// Pick majority condition.
	bestCount := 0
	for _, cond := range conditionOrder {
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			stats.Condition = cond
		}
	}

	return stats
}
