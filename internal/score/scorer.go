package score

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ppiankov/gigshield/internal/model"
)

const (
	baseScore = 50

	// fallbackDeactivationAge is assumed when a case has no deactivation date
	fallbackDeactivationAge = 3 * 24 * time.Hour

	urgentWindow = 48 * time.Hour
	staleDays    = 7
)

// categoryWeights is the impact of each deactivation reason category
var categoryWeights = map[model.Category]int{
	model.CategorySafety:     -30,
	model.CategoryFraud:      -20,
	model.CategoryRatings:    -10,
	model.CategoryCompletion: -5,
	model.CategoryUnknown:    -5,
}

// Scorer computes the explainable likelihood-of-success score.
// It holds no state; the zero value is ready to use.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreCase scores a snapshot with a default scorer
func ScoreCase(snapshot model.CaseSnapshot, now time.Time) model.ScoreResult {
	return NewScorer().Calculate(snapshot, now)
}

// Calculate converts a case snapshot into a 0-100 score with a ranked factor breakdown
func (s *Scorer) Calculate(snapshot model.CaseSnapshot, now time.Time) model.ScoreResult {
	deactivatedAt := now.Add(-fallbackDeactivationAge)
	if snapshot.DeactivatedAt != nil {
		deactivatedAt = *snapshot.DeactivatedAt
	}
	evidenceCount := max(snapshot.EvidenceCount, 0)
	priorAppeals := max(snapshot.PriorAppealCount, 0)
	status := model.ParseScoreStatus(string(snapshot.Status))

	var factors []model.ScoreFactor

	// 1. Category impact
	category := CategorizeReason(snapshot.ReasonText)
	factors = append(factors, s.categoryFactor(category))

	// 2. Evidence count
	evidenceImpact, evidenceExplanation := ScoreEvidence(evidenceCount)
	factors = append(factors, model.ScoreFactor{
		Name:        fmt.Sprintf("Evidence: %d documents", evidenceCount),
		Impact:      evidenceImpact,
		Explanation: evidenceExplanation,
	})

	// 3. Timeliness
	timeImpact, timeExplanation := ScoreTimeliness(deactivatedAt, snapshot.SubmittedAt, now)
	factors = append(factors, model.ScoreFactor{
		Name:        "Response timing",
		Impact:      timeImpact,
		Explanation: timeExplanation,
	})

	// 4. Appeal history, only when it moves the score
	statusImpact, statusExplanation := ScoreStatusHistory(status, priorAppeals)
	if statusImpact != 0 {
		factors = append(factors, model.ScoreFactor{
			Name:        "Appeal history",
			Impact:      statusImpact,
			Explanation: statusExplanation,
		})
	}

	totalImpact := 0
	for _, f := range factors {
		totalImpact += f.Impact
	}
	finalScore := clamp(baseScore+totalImpact, 0, 100)
	label, band := Classify(finalScore)

	// Most significant first; ties keep computation order
	sort.SliceStable(factors, func(i, j int) bool {
		return abs(factors[i].Impact) > abs(factors[j].Impact)
	})

	return model.ScoreResult{
		Score:   finalScore,
		Label:   label,
		Band:    band,
		Factors: factors,
		Metadata: model.ScoreMetadata{
			Category:              category,
			EvidenceCount:         evidenceCount,
			DaysSinceDeactivation: wholeDays(now.Sub(deactivatedAt)),
			PriorAppealCount:      priorAppeals,
			Status:                status,
		},
	}
}

// categoryFactor builds the factor for a reason category
func (s *Scorer) categoryFactor(category model.Category) model.ScoreFactor {
	impact := categoryWeights[category]
	direction := "Easier"
	if impact < 0 {
		direction = "Harder"
	}
	return model.ScoreFactor{
		Name:        category.Title() + " category",
		Impact:      impact,
		Explanation: fmt.Sprintf("%s to reverse %s cases", direction, category),
	}
}

// ScoreEvidence scores the number of evidence items attached to a case
func ScoreEvidence(count int) (int, string) {
	switch {
	case count <= 0:
		return -15, "No evidence uploaded - weaker appeal"
	case count <= 2:
		return 5, "Some evidence provided - moderate support"
	default:
		return 15, "Strong evidence package - well documented"
	}
}

// ScoreTimeliness rewards prompt submission and penalizes long inaction
func ScoreTimeliness(deactivatedAt time.Time, submittedAt *time.Time, now time.Time) (int, string) {
	if submittedAt == nil {
		if wholeDays(now.Sub(deactivatedAt)) > staleDays {
			return -10, "No appeal submitted yet - waiting too long"
		}
		return 0, "Not yet submitted - time window still open"
	}

	if submittedAt.Sub(deactivatedAt) <= urgentWindow {
		return 10, "Appealed within 48 hours - shows urgency"
	}
	return 0, "Appeal submitted after 48 hours"
}

// ScoreStatusHistory adjusts for the current status and prior appeals
func ScoreStatusHistory(status model.ScoreStatus, priorAppeals int) (int, string) {
	switch {
	case status == model.ScoreDenied && priorAppeals > 0:
		return -15, "Previous denial on record - harder to overturn"
	case status == model.ScorePending && priorAppeals == 0:
		return 5, "First appeal - platform may be more receptive"
	case status == model.ScoreApproved:
		return 0, "Already approved - no action needed"
	default:
		return 0, ""
	}
}

// Classify maps a clamped score to its label and band
func Classify(score int) (model.Label, model.Band) {
	switch {
	case score < 40:
		return model.LabelLow, model.Band{Lower: 0, Upper: 40}
	case score < 70:
		return model.LabelMedium, model.Band{Lower: 40, Upper: 70}
	default:
		return model.LabelHigh, model.Band{Lower: 70, Upper: 100}
	}
}

// wholeDays floors a duration to days, rounding toward negative infinity
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
