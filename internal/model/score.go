package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScoreStatus is the case status as the score engine sees it
type ScoreStatus string

const (
	ScorePending  ScoreStatus = "pending"
	ScoreApproved ScoreStatus = "approved"
	ScoreDenied   ScoreStatus = "denied"
)

// ParseScoreStatus maps any status string onto the three scoring states.
// Unknown values (including "generated") score as pending.
func ParseScoreStatus(s string) ScoreStatus {
	switch ScoreStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ScoreApproved:
		return ScoreApproved
	case ScoreDenied:
		return ScoreDenied
	default:
		return ScorePending
	}
}

// Category is the deactivation reason bucket used to weight scoring
type Category string

const (
	CategorySafety     Category = "safety"
	CategoryFraud      Category = "fraud"
	CategoryRatings    Category = "ratings"
	CategoryCompletion Category = "completion"
	CategoryUnknown    Category = "unknown"
)

// Title returns the category name with its first letter upper-cased
func (c Category) Title() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// CaseSnapshot is the normalized input to the score engine
type CaseSnapshot struct {
	ReasonText       string
	Status           ScoreStatus
	EvidenceCount    int
	PriorAppealCount int
	DeactivatedAt    *time.Time // nil means unknown; the engine substitutes a fallback
	SubmittedAt      *time.Time // nil means not submitted
}

// Label is the qualitative likelihood of success
type Label string

const (
	LabelLow    Label = "low"
	LabelMedium Label = "medium"
	LabelHigh   Label = "high"
)

// Band is the numeric interval that goes with a label
type Band struct {
	Lower int
	Upper int
}

// MarshalJSON writes the band as a two-element array
func (b Band) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{b.Lower, b.Upper})
}

// UnmarshalJSON reads a two-element array
func (b *Band) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("band must have 2 elements, got %d", len(pair))
	}
	b.Lower, b.Upper = pair[0], pair[1]
	return nil
}

// ScoreFactor is one signed, explained contribution to the score
type ScoreFactor struct {
	Name        string `json:"name"`
	Impact      int    `json:"impact"`
	Explanation string `json:"explanation"`
}

// ScoreMetadata echoes the normalized inputs the score was computed from.
// Status is the score status, not the stored case status: "generated" and
// unrecognized values both read as "pending".
type ScoreMetadata struct {
	Category              Category    `json:"category"`
	EvidenceCount         int         `json:"evidenceCount"`
	DaysSinceDeactivation int         `json:"daysSinceDeactivation"`
	PriorAppealCount      int         `json:"priorAppealCount"`
	Status                ScoreStatus `json:"status"`
}

// ScoreResult is the explainable likelihood-of-success score for a case
type ScoreResult struct {
	CaseID   string        `json:"caseId,omitempty"`
	Score    int           `json:"score"`
	Label    Label         `json:"label"`
	Band     Band          `json:"band"`
	Factors  []ScoreFactor `json:"factors"`
	Metadata ScoreMetadata `json:"metadata"`
}
