package model

// NoticeAnalysis is the structured reading of a deactivation notice
type NoticeAnalysis struct {
	Platform        string   `json:"platform"`
	Reason          string   `json:"reason"`
	UrgencyLevel    string   `json:"urgency_level"` // URGENT, MODERATE, LOW
	DeadlineDays    *int     `json:"deadline_days"`
	RiskLevel       string   `json:"risk_level"` // Low, Medium, High
	MissingInfo     []string `json:"missing_info"`
	Recommendations []string `json:"recommendations"`
}

// AppealRequest is the user input for drafting an appeal letter
type AppealRequest struct {
	Platform           string `json:"platform" binding:"required"`
	DeactivationReason string `json:"deactivation_reason" binding:"required"`
	UserStory          string `json:"user_story" binding:"required"`
	AccountTenure      string `json:"account_tenure,omitempty"`
	CurrentRating      string `json:"current_rating,omitempty"`
	CompletionRate     string `json:"completion_rate,omitempty"`
	TotalDeliveries    string `json:"total_deliveries,omitempty"`
	AppealTone         string `json:"appeal_tone,omitempty"`
	UserState          string `json:"user_state,omitempty"`
	Evidence           string `json:"evidence,omitempty"`
	DeadlineDays       int    `json:"deadline_days,omitempty"`
}

// ChatMessage is one turn of a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// SuggestedAction points the user at a client feature
type SuggestedAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// ChatReply is the assistant's answer in the rights chatbot
type ChatReply struct {
	Response         string            `json:"response"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
}
