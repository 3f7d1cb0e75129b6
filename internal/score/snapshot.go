package score

import (
	"github.com/ppiankov/gigshield/internal/model"
)

// SnapshotFromCase builds the engine input from a stored case.
//
// Missing or malformed timestamps are dropped rather than failing: a bad
// deactivatedAt falls back to the engine default and a bad submittedAt is
// treated as "not submitted".
func SnapshotFromCase(c model.Case) model.CaseSnapshot {
	return model.CaseSnapshot{
		ReasonText:       c.ReasonText(),
		Status:           model.ParseScoreStatus(string(c.Status)),
		EvidenceCount:    len(c.Evidence),
		PriorAppealCount: max(c.PriorAppealCount, 0),
		DeactivatedAt:    c.DeactivatedAt.Time(),
		SubmittedAt:      c.SubmittedAt.Time(),
	}
}
