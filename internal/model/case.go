package model

import "strings"

// Status is the lifecycle state of an appeal case as stored
type Status string

const (
	StatusGenerated Status = "generated" // Letter drafted, not yet sent
	StatusPending   Status = "pending"   // Submitted to the platform
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
)

// Valid reports whether s is one of the stored lifecycle states
func (s Status) Valid() bool {
	switch s {
	case StatusGenerated, StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// Case is a deactivation-appeal record as kept in the case store.
// Field names follow the documents written by the web client.
type Case struct {
	ID                 string         `json:"id" bson:"_id" yaml:"id"`
	UserID             string         `json:"userId,omitempty" bson:"userId" yaml:"user_id"`
	Platform           string         `json:"platform" bson:"platform" yaml:"platform"`
	Reason             string         `json:"reason,omitempty" bson:"reason,omitempty" yaml:"reason,omitempty"`
	DeactivationReason string         `json:"deactivationReason,omitempty" bson:"deactivationReason,omitempty" yaml:"deactivation_reason,omitempty"`
	UserStory          string         `json:"userStory,omitempty" bson:"userStory,omitempty" yaml:"user_story,omitempty"`
	AccountTenure      string         `json:"accountTenure,omitempty" bson:"accountTenure,omitempty" yaml:"account_tenure,omitempty"`
	CurrentRating      string         `json:"currentRating,omitempty" bson:"currentRating,omitempty" yaml:"current_rating,omitempty"`
	CompletionRate     string         `json:"completionRate,omitempty" bson:"completionRate,omitempty" yaml:"completion_rate,omitempty"`
	TotalDeliveries    string         `json:"totalDeliveries,omitempty" bson:"totalDeliveries,omitempty" yaml:"total_deliveries,omitempty"`
	AppealTone         string         `json:"appealTone,omitempty" bson:"appealTone,omitempty" yaml:"appeal_tone,omitempty"`
	UserState          string         `json:"userState,omitempty" bson:"userState,omitempty" yaml:"user_state,omitempty"`
	GeneratedLetter    string         `json:"generatedLetter,omitempty" bson:"generatedLetter,omitempty" yaml:"generated_letter,omitempty"`
	Status             Status         `json:"status" bson:"status" yaml:"status"`
	Evidence           []EvidenceItem `json:"evidence" bson:"evidence" yaml:"evidence"`
	PriorAppealCount   int            `json:"priorAppealCount" bson:"priorAppealCount" yaml:"prior_appeal_count"`
	IsSimulated        bool           `json:"isSimulated,omitempty" bson:"isSimulated,omitempty" yaml:"is_simulated,omitempty"`

	DeactivatedAt  Instant `json:"deactivatedAt,omitempty" bson:"deactivatedAt" yaml:"deactivated_at"`
	SubmittedAt    Instant `json:"submittedAt,omitempty" bson:"submittedAt" yaml:"submitted_at"`
	CreatedAt      Instant `json:"createdAt,omitempty" bson:"createdAt" yaml:"created_at"`
	LastUpdated    Instant `json:"lastUpdated,omitempty" bson:"lastUpdated" yaml:"last_updated"`
	AppealDeadline Instant `json:"appealDeadline,omitempty" bson:"appealDeadline" yaml:"appeal_deadline"`
}

// ReasonText returns the deactivation reason, preferring the short "reason" field
func (c Case) ReasonText() string {
	if strings.TrimSpace(c.Reason) != "" {
		return c.Reason
	}
	return c.DeactivationReason
}

// PlatformName returns the platform or "Unknown"
func (c Case) PlatformName() string {
	if strings.TrimSpace(c.Platform) == "" {
		return "Unknown"
	}
	return c.Platform
}

// User is the profile record kept for an authenticated account
type User struct {
	ID           string `json:"id" bson:"_id"`
	Email        string `json:"email" bson:"email"`
	DisplayName  string `json:"displayName" bson:"displayName"`
	PhoneNumber  string `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	PasswordHash string `json:"-" bson:"passwordHash,omitempty"`
}
