package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gigshield/internal/model"
)

func TestSnapshotFromCase(t *testing.T) {
	c := model.Case{
		DeactivationReason: "Customer rating",
		Status:             model.StatusGenerated,
		Evidence:           []model.EvidenceItem{{URL: "a"}, {URL: "b"}},
		PriorAppealCount:   -2,
		DeactivatedAt:      model.ISOInstant("2025-06-01T10:00:00Z"),
		SubmittedAt:        model.ISOInstant("not a date"),
	}

	s := SnapshotFromCase(c)

	assert.Equal(t, "Customer rating", s.ReasonText)
	assert.Equal(t, model.ScorePending, s.Status)
	assert.Equal(t, 2, s.EvidenceCount)
	assert.Equal(t, 0, s.PriorAppealCount)
	require.NotNil(t, s.DeactivatedAt)
	assert.True(t, s.DeactivatedAt.Equal(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))
	assert.Nil(t, s.SubmittedAt, "malformed submittedAt is treated as absent")
}

func TestScoreCase_MetadataStatusIsNormalized(t *testing.T) {
	for _, stored := range []model.Status{model.StatusGenerated, model.Status("archived")} {
		result := ScoreCase(SnapshotFromCase(model.Case{Status: stored}), testNow)
		assert.Equal(t, model.ScorePending, result.Metadata.Status, "stored status %q", stored)
	}

	result := ScoreCase(SnapshotFromCase(model.Case{Status: model.StatusApproved}), testNow)
	assert.Equal(t, model.ScoreApproved, result.Metadata.Status)
}

func TestSnapshotFromCase_PrefersReasonField(t *testing.T) {
	c := model.Case{Reason: "fraud", DeactivationReason: "rating"}
	assert.Equal(t, "fraud", SnapshotFromCase(c).ReasonText)
}

func TestSnapshotFromCase_MalformedDeactivationUsesFallback(t *testing.T) {
	c := model.Case{DeactivatedAt: model.ISOInstant("yesterday-ish")}
	s := SnapshotFromCase(c)
	require.Nil(t, s.DeactivatedAt)

	result := ScoreCase(s, testNow)
	assert.Equal(t, 3, result.Metadata.DaysSinceDeactivation)
}
