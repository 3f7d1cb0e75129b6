package model

// AnalyticsSummary holds overall case totals
type AnalyticsSummary struct {
	TotalCases     int    `json:"totalCases"`
	TotalApproved  int    `json:"totalApproved"`
	TotalDenied    int    `json:"totalDenied"`
	TotalPending   int    `json:"totalPending"`
	SimulatedCount int    `json:"simulatedCount"`
	DataSource     string `json:"dataSource"` // real, simulated, mixed
}

// OutcomeCounts counts resolved and open cases for one platform
type OutcomeCounts struct {
	Approved int `json:"approved"`
	Denied   int `json:"denied"`
	Pending  int `json:"pending"`
}

// ResponseTimeBucket labels, in display order
var ResponseTimeBuckets = []string{"0-3 days", "4-7 days", "8-14 days", "15-21 days", "22+ days"}

// AnalyticsOverview aggregates all cases in the store
type AnalyticsOverview struct {
	Summary                AnalyticsSummary         `json:"summary"`
	CasesByPlatform        map[string]int           `json:"casesByPlatform"`
	OutcomesByPlatform     map[string]OutcomeCounts `json:"outcomesByPlatform"`
	AvgResponseTimeDays    map[string]float64       `json:"avgResponseTimeDays"`
	MedianResponseTimeDays map[string]float64       `json:"medianResponseTimeDays"`
	ResponseTimeBuckets    map[string]int           `json:"responseTimeBuckets"`
	ReasonDistribution     map[string]int           `json:"reasonDistribution"`
}
