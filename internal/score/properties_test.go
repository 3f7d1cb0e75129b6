package score

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gigshield/internal/model"
)

// snapshots enumerates a grid of inputs covering every factor branch
func snapshots() []model.CaseSnapshot {
	reasons := []string{"", "unsafe driving", "stolen order", "low star rating", "cancel rate", "Safety and rating issues", "other"}
	statuses := []model.ScoreStatus{model.ScorePending, model.ScoreApproved, model.ScoreDenied, "generated"}
	ages := []*time.Duration{nil, durationPtr(2 * time.Hour), durationPtr(5 * 24 * time.Hour), durationPtr(30 * 24 * time.Hour)}
	offsets := []*time.Duration{nil, durationPtr(time.Hour), durationPtr(72 * time.Hour)}

	var out []model.CaseSnapshot
	for _, reason := range reasons {
		for _, status := range statuses {
			for evidence := 0; evidence <= 4; evidence++ {
				for prior := 0; prior <= 2; prior++ {
					for _, age := range ages {
						for _, offset := range offsets {
							s := model.CaseSnapshot{
								ReasonText:       reason,
								Status:           status,
								EvidenceCount:    evidence,
								PriorAppealCount: prior,
							}
							if age != nil {
								d := testNow.Add(-*age)
								s.DeactivatedAt = &d
								if offset != nil {
									sub := d.Add(*offset)
									s.SubmittedAt = &sub
								}
							}
							out = append(out, s)
						}
					}
				}
			}
		}
	}
	return out
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func TestScoreCase_Properties(t *testing.T) {
	for i, snapshot := range snapshots() {
		name := fmt.Sprintf("%d/%q/%s/e%d/p%d", i, snapshot.ReasonText, snapshot.Status, snapshot.EvidenceCount, snapshot.PriorAppealCount)
		result := ScoreCase(snapshot, testNow)

		require.GreaterOrEqual(t, result.Score, 0, name)
		require.LessOrEqual(t, result.Score, 100, name)

		label, band := Classify(result.Score)
		assert.Equal(t, label, result.Label, name)
		assert.Equal(t, band, result.Band, name)
		assert.True(t, result.Score >= result.Band.Lower && (result.Score < result.Band.Upper || result.Band.Upper == 100), name)

		for j := 1; j < len(result.Factors); j++ {
			assert.GreaterOrEqual(t, abs(result.Factors[j-1].Impact), abs(result.Factors[j].Impact), name)
		}

		historyImpact, _ := ScoreStatusHistory(model.ParseScoreStatus(string(snapshot.Status)), snapshot.PriorAppealCount)
		hasHistory := false
		for _, f := range result.Factors {
			if f.Name == "Appeal history" {
				hasHistory = true
				assert.NotZero(t, f.Impact, name)
			}
		}
		assert.Equal(t, historyImpact != 0, hasHistory, name)

		assert.Equal(t, result, ScoreCase(snapshot, testNow), name)
	}
}

func TestScoreCase_TieOrderFollowsComputationOrder(t *testing.T) {
	// completion (-5), evidence 1 (+5), first pending appeal (+5): all tie on |5|
	deactivated := testNow.Add(-24 * time.Hour)
	submitted := deactivated.Add(72 * time.Hour)
	result := ScoreCase(model.CaseSnapshot{
		ReasonText:    "acceptance rate",
		Status:        model.ScorePending,
		EvidenceCount: 1,
		DeactivatedAt: &deactivated,
		SubmittedAt:   &submitted,
	}, testNow)

	require.Len(t, result.Factors, 4)
	assert.Equal(t, []string{"Completion category", "Evidence: 1 documents", "Appeal history", "Response timing"}, factorNames(result.Factors))
	assert.Equal(t, 55, result.Score)
}
