// Package benchcmp compares two benchmark history files written by the
// strmap benchmarks and reports per-metric regressions.
package benchcmp

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
)

// DefaultThreshold is the percent change at which a metric counts as
// significant.
const DefaultThreshold = 5.0

// Result is one benchmark entry of a history file.
type Result struct {
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Summary is a benchmark history file.
type Summary struct {
	Timestamp string   `json:"timestamp"`
	CommitID  string   `json:"commit_id"`
	Branch    string   `json:"branch"`
	GoVersion string   `json:"go_version"`
	Results   []Result `json:"results"`
}

// Load reads a history file.
func Load(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read %s: %w", path, err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Assessment is the overall verdict for one benchmark.
type Assessment string

const (
	Regression  Assessment = "REGRESSION"
	Improvement Assessment = "IMPROVEMENT"
	Neutral     Assessment = "NEUTRAL"
)

// MetricDelta compares one metric between the two runs.
type MetricDelta struct {
	Name          string  `json:"name"`
	Base          float64 `json:"base_value"`
	Current       float64 `json:"current_value"`
	PercentChange float64 `json:"percent_change"`
	IsRegression  bool    `json:"is_regression"`
	IsImprovement bool    `json:"is_improvement"`
	IsSignificant bool    `json:"is_significant"`
}

// BenchmarkDelta compares one benchmark present in both runs.
type BenchmarkDelta struct {
	Name       string        `json:"name"`
	Category   string        `json:"category"`
	Metrics    []MetricDelta `json:"metric_comparisons"`
	Assessment Assessment    `json:"overall_assessment"`
	Score      float64       `json:"score"`
}

// Report is the outcome of Compare.
type Report struct {
	BaseCommit    string           `json:"base_commit"`
	CurrentCommit string           `json:"current_commit"`
	Improved      int              `json:"improved_benchmarks"`
	Regressed     int              `json:"regression_benchmarks"`
	Benchmarks    []BenchmarkDelta `json:"benchmark_comparisons"`
}

// higherIsBetter lists metric name fragments where growth is good. Every
// other metric (ns/op, bytes_per_key, max_put_ns, ...) is lower-is-better.
var higherIsBetter = []string{"_rate", "ops_per_sec", "throughput"}

func isHigherBetter(metric string) bool {
	for _, frag := range higherIsBetter {
		if strings.Contains(metric, frag) {
			return true
		}
	}
	return false
}

// Compare matches benchmarks by name and compares the metrics both runs
// recorded. Benchmarks missing from either side are skipped. Results are
// ordered worst first.
func Compare(base, current Summary, threshold float64) Report {
	baseByName := make(map[string]Result, len(base.Results))
	for _, r := range base.Results {
		baseByName[r.Name] = r
	}

	report := Report{BaseCommit: base.CommitID, CurrentCommit: current.CommitID}
	for _, cur := range current.Results {
		old, ok := baseByName[cur.Name]
		if !ok {
			continue
		}

		bd := BenchmarkDelta{Name: cur.Name, Category: cur.Category, Assessment: Neutral}
		regressed := false
		total := 0.0
		for name, value := range cur.Metrics {
			prev, ok := old.Metrics[name]
			if !ok {
				continue
			}
			md := MetricDelta{Name: name, Base: prev, Current: value}
			if prev != 0 {
				md.PercentChange = (value - prev) / prev * 100
			}
			if isHigherBetter(name) {
				md.IsRegression, md.IsImprovement = md.PercentChange < 0, md.PercentChange > 0
			} else {
				md.IsRegression, md.IsImprovement = md.PercentChange > 0, md.PercentChange < 0
			}
			md.IsSignificant = math.Abs(md.PercentChange) >= threshold
			if md.IsRegression && md.IsSignificant {
				regressed = true
			}
			switch {
			case md.IsImprovement:
				total += math.Abs(md.PercentChange)
			case md.IsRegression:
				total -= math.Abs(md.PercentChange)
			}
			bd.Metrics = append(bd.Metrics, md)
		}
		if len(bd.Metrics) > 0 {
			bd.Score = total / float64(len(bd.Metrics))
		}
		slices.SortFunc(bd.Metrics, func(a, b MetricDelta) int {
			return cmp.Compare(math.Abs(b.PercentChange), math.Abs(a.PercentChange))
		})

		switch {
		case regressed:
			bd.Assessment = Regression
			report.Regressed++
		case bd.Score > 0:
			bd.Assessment = Improvement
			report.Improved++
		}
		report.Benchmarks = append(report.Benchmarks, bd)
	}

	slices.SortStableFunc(report.Benchmarks, func(a, b BenchmarkDelta) int {
		ar, br := a.Assessment == Regression, b.Assessment == Regression
		if ar != br {
			if ar {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Score, b.Score)
	})
	return report
}

// WriteText prints a human readable report.
func WriteText(w io.Writer, r Report) {
	fmt.Fprintf(w, "Benchmark comparison: %s vs %s\n", short(r.BaseCommit), short(r.CurrentCommit))
	fmt.Fprintf(w, "compared: %d, improved: %d, regressed: %d\n",
		len(r.Benchmarks), r.Improved, r.Regressed)

	if len(r.Benchmarks) == 0 {
		fmt.Fprintln(w, "no matching benchmarks")
		return
	}

	for _, b := range r.Benchmarks {
		fmt.Fprintf(w, "\n%-11s %s (%s)\n", b.Assessment, b.Name, b.Category)
		for _, m := range b.Metrics {
			if m.PercentChange == 0 {
				continue
			}
			mark := " "
			switch {
			case m.IsRegression && m.IsSignificant:
				mark = "-"
			case m.IsImprovement && m.IsSignificant:
				mark = "+"
			}
			fmt.Fprintf(w, "  %s %-24s %+8.2f%% (%g -> %g)\n",
				mark, m.Name, m.PercentChange, m.Base, m.Current)
		}
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func short(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
