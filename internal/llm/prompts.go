package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/gigshield/internal/model"
)

const noticeSystemPrompt = "You are an expert in gig economy platform policies and worker rights. You answer with a single JSON object and nothing else."

// ChatSystemPrompt frames the rights chatbot
const ChatSystemPrompt = `You are a helpful assistant specializing in gig economy worker rights, platform policies, and appeal processes.

You help workers understand:
- Their rights under platform terms of service
- How to appeal deactivations
- What documentation they should gather
- Platform-specific policies (DoorDash, Uber, Lyft, Instacart, etc.)
- Labor laws relevant to gig workers

Be supportive, informative, and action-oriented. Give specific steps workers can take.`

const appealSystemPrompt = "You are an expert legal writer specializing in gig economy worker appeals."

// BuildNoticePrompt asks the model to read a deactivation notice into NoticeAnalysis JSON
func BuildNoticePrompt(noticeText, platformHint string) string {
	var b strings.Builder
	b.WriteString("Analyze this deactivation notice and extract the key facts a worker needs to appeal.\n\n")
	if platformHint != "" {
		fmt.Fprintf(&b, "The worker says the platform is %s.\n\n", platformHint)
	}
	fmt.Fprintf(&b, "DEACTIVATION NOTICE:\n%s\n\n", noticeText)
	b.WriteString(`Report:
1. Platform name (DoorDash, Uber, Lyft, Instacart, etc.) if mentioned
2. Specific reason for deactivation
3. Urgency level (URGENT, MODERATE, or LOW)
4. Deadline to appeal in days, if mentioned
5. Risk level (Low, Medium, or High) based on severity
6. Missing information that would help the appeal
7. Specific recommendations for the worker

Respond in JSON with exactly these keys:
{
    "platform": "platform name or Unknown",
    "reason": "specific deactivation reason",
    "urgency_level": "URGENT/MODERATE/LOW",
    "deadline_days": number or null,
    "risk_level": "Low/Medium/High",
    "missing_info": ["item1", "item2"],
    "recommendations": ["rec1", "rec2", "rec3"]
}`)
	return b.String()
}

// Contact is the worker's signature block
type Contact struct {
	Name  string
	Email string
	Phone string
}

// AppealDraft is everything needed to write an appeal letter
type AppealDraft struct {
	Request          model.AppealRequest
	Contact          Contact
	KnowledgeContext string
}

// BuildAppealPrompt asks the model for a complete appeal letter
func BuildAppealPrompt(d AppealDraft) string {
	r := d.Request
	var b strings.Builder

	b.WriteString("Write a professional, persuasive appeal letter for a gig worker whose account has been deactivated.\n\n")
	fmt.Fprintf(&b, "PLATFORM: %s\n", r.Platform)
	fmt.Fprintf(&b, "DEACTIVATION REASON: %s\n\n", r.DeactivationReason)

	b.WriteString("WORKER'S ACCOUNT DETAILS:\n")
	fmt.Fprintf(&b, "- Account Tenure: %s\n", orNotProvided(r.AccountTenure))
	fmt.Fprintf(&b, "- Rating: %s\n", orNotProvided(r.CurrentRating))
	fmt.Fprintf(&b, "- Completion Rate: %s\n", orNotProvided(r.CompletionRate))
	fmt.Fprintf(&b, "- Total Deliveries/Rides: %s\n", orNotProvided(r.TotalDeliveries))
	fmt.Fprintf(&b, "- State: %s\n", orNotProvided(r.UserState))
	if r.Evidence != "" {
		fmt.Fprintf(&b, "- Evidence available: %s\n", r.Evidence)
	}

	b.WriteString("\nWORKER'S CONTACT INFORMATION (use in the signature block):\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNotProvided(d.Contact.Name))
	fmt.Fprintf(&b, "- Email: %s\n", orNotProvided(d.Contact.Email))
	fmt.Fprintf(&b, "- Phone: %s\n", orNotProvided(d.Contact.Phone))

	fmt.Fprintf(&b, "\nWORKER'S EXPLANATION:\n%s\n\n", r.UserStory)

	if d.KnowledgeContext != "" {
		fmt.Fprintf(&b, "RELEVANT POLICIES AND LAWS (cite where they help, by source title):\n%s\n\n", d.KnowledgeContext)
	}

	fmt.Fprintf(&b, "TONE: %s\n\n", pick(r.AppealTone, "professional"))

	b.WriteString(`The letter must:
1. Use proper business letter structure with date, addressing and signature block
2. State its purpose in the opening
3. Highlight the worker's positive track record
4. Address the deactivation reason respectfully
5. Give context from the worker's perspective
6. Request specific information about the incident
7. Ask for reinstatement with clear justification
8. Keep the requested tone

Omit contact lines that are not provided. Be persuasive but respectful.`)
	return b.String()
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}
