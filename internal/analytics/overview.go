// Package analytics aggregates appeal outcomes across every stored case.
package analytics

import (
	"math"
	"slices"
	"strings"

	"github.com/ppiankov/gigshield/internal/model"
)

// Data source labels
const (
	SourceReal      = "real"
	SourceSimulated = "simulated"
	SourceMixed     = "mixed"
)

// reasonRule is checked in order; the first rule with a matching keyword wins
type reasonRule struct {
	label    string
	keywords []string
}

var reasonRules = []reasonRule{
	{"Ratings", []string{"rating", "review"}},
	{"Safety", []string{"safety", "incident"}},
	{"Completion Rate", []string{"completion", "acceptance"}},
	{"Fraud", []string{"fraud"}},
}

const unknownReason = "Unknown"

// accumulator is local to one Overview call
type accumulator struct {
	total     int
	simulated int
	cases     map[string]int
	outcomes  map[string]model.OutcomeCounts
	times     map[string][]int
	reasons   map[string]int
}

// Overview folds cases into platform, outcome, timing and reason statistics
func Overview(cases []model.Case) model.AnalyticsOverview {
	acc := accumulator{
		cases:    make(map[string]int),
		outcomes: make(map[string]model.OutcomeCounts),
		times:    make(map[string][]int),
		reasons:  make(map[string]int),
	}
	for _, c := range cases {
		acc.add(c)
	}
	return acc.result()
}

func (a *accumulator) add(c model.Case) {
	platform := c.PlatformName()
	status := c.Status
	if status == "" {
		status = model.StatusPending
	}

	a.total++
	a.cases[platform]++
	if c.IsSimulated {
		a.simulated++
	}

	switch status {
	case model.StatusApproved, model.StatusDenied, model.StatusPending:
		counts := a.outcomes[platform]
		switch status {
		case model.StatusApproved:
			counts.Approved++
		case model.StatusDenied:
			counts.Denied++
		default:
			counts.Pending++
		}
		a.outcomes[platform] = counts
	}

	if status == model.StatusApproved || status == model.StatusDenied {
		if days, ok := responseDays(c); ok {
			a.times[platform] = append(a.times[platform], days)
		}
	}

	a.reasons[CategorizeReason(c.ReasonText())]++
}

// responseDays is whole days from creation to the last update. Cases with
// missing, malformed or inverted timestamps are skipped.
func responseDays(c model.Case) (int, bool) {
	created, updated := c.CreatedAt.Time(), c.LastUpdated.Time()
	if created == nil || updated == nil {
		return 0, false
	}
	days := int(math.Floor(updated.Sub(*created).Hours() / 24))
	if days < 0 {
		return 0, false
	}
	return days, true
}

func (a *accumulator) result() model.AnalyticsOverview {
	overview := model.AnalyticsOverview{
		Summary: model.AnalyticsSummary{
			TotalCases:     a.total,
			SimulatedCount: a.simulated,
			DataSource:     dataSource(a.simulated, a.total),
		},
		CasesByPlatform:        a.cases,
		OutcomesByPlatform:     a.outcomes,
		AvgResponseTimeDays:    make(map[string]float64),
		MedianResponseTimeDays: make(map[string]float64),
		ResponseTimeBuckets:    make(map[string]int, len(model.ResponseTimeBuckets)),
		ReasonDistribution:     a.reasons,
	}

	for _, counts := range a.outcomes {
		overview.Summary.TotalApproved += counts.Approved
		overview.Summary.TotalDenied += counts.Denied
		overview.Summary.TotalPending += counts.Pending
	}

	for _, label := range model.ResponseTimeBuckets {
		overview.ResponseTimeBuckets[label] = 0
	}
	for platform, times := range a.times {
		if len(times) == 0 {
			continue
		}
		overview.AvgResponseTimeDays[platform] = Average(times)
		overview.MedianResponseTimeDays[platform] = Median(times)
		for _, t := range times {
			overview.ResponseTimeBuckets[Bucket(t)]++
		}
	}
	return overview
}

// CategorizeReason buckets a reason for the distribution chart
func CategorizeReason(reason string) string {
	lower := strings.ToLower(reason)
	for _, rule := range reasonRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return unknownReason
}

// Bucket returns the response-time bucket label for days (days >= 0)
func Bucket(days int) string {
	switch {
	case days <= 3:
		return model.ResponseTimeBuckets[0]
	case days <= 7:
		return model.ResponseTimeBuckets[1]
	case days <= 14:
		return model.ResponseTimeBuckets[2]
	case days <= 21:
		return model.ResponseTimeBuckets[3]
	default:
		return model.ResponseTimeBuckets[4]
	}
}

// Average returns the mean rounded to one decimal
func Average(values []int) float64 {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return math.Round(float64(sum)/float64(len(values))*10) / 10
}

// Median returns the middle value, or the mean of the two middle values
func Median(values []int) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

// dataSource labels a case set by how much of it is simulated.
// An empty store counts as real; the legacy dashboard reported it as simulated.
func dataSource(simulated, total int) string {
	switch {
	case simulated == 0:
		return SourceReal
	case simulated == total:
		return SourceSimulated
	default:
		return SourceMixed
	}
}
