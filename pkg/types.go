package pkg

import "time"

// MessageRole describes who authored a message. There are only two roles:
// the user and the assistant.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a conversation transcript. Messages are immutable
// once appended; insertion order is the transcript order. ID is zero until
// the repository persists the message.
type Message struct {
	ID        int64       `json:"id,omitempty"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// Specialty is a medical department label used to select a doctor.
type Specialty string

const (
	SpecialtyCardiology  Specialty = "Tim mạch"
	SpecialtyDermatology Specialty = "Da liễu"
	SpecialtyENT         Specialty = "Tai mũi họng"
	SpecialtyGeneral     Specialty = "Đa khoa"
)

// Doctor is read-mostly reference data looked up by specialty.
type Doctor struct {
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	Specialty       Specialty `json:"specialty"`
	Hospital        string    `json:"hospital,omitempty"`
	YearsExperience int       `json:"years_experience,omitempty"`
}

// ConversationMode is the conversational regime a conversation is in. It
// drives which branch of the engine handles the next message.
type ConversationMode string

const (
	// ModeGeneric is the default AI-nurse chat.
	ModeGeneric ConversationMode = "generic"
	// ModeDoctorPending means a handoff offer is outstanding and an
	// affirmative or negative message resolves it.
	ModeDoctorPending ConversationMode = "doctor_pending"
	// ModeDoctorActive means the bot answers in the assigned doctor's persona.
	ModeDoctorActive ConversationMode = "doctor_active"
)

// Conversation is the central mutable entity. AssignedDoctor is set iff Mode
// is ModeDoctorActive; PendingDoctor is set iff Mode is ModeDoctorPending.
type Conversation struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Mode           ConversationMode `json:"mode"`
	AssignedDoctor *Doctor          `json:"assigned_doctor,omitempty"`
	PendingDoctor  *Doctor          `json:"pending_doctor,omitempty"`
	Messages       []Message        `json:"messages"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Append adds a message to the transcript stamped with the current time.
// The message gets its ID when the conversation is saved.
func (c *Conversation) Append(role MessageRole, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// TriageRecord is an append-only audit entry written whenever symptom text
// is classified into a specialty.
type TriageRecord struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Symptoms  string    `json:"symptoms"`
	Specialty Specialty `json:"suggested_specialty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationPreview is returned when listing a user's conversations.
type ConversationPreview struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}

// ChatRequest is the body for posting a message into a conversation.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// ChatResult is what the engine returns for one chat turn.
type ChatResult struct {
	Reply            string           `json:"reply"`
	Mode             ConversationMode `json:"mode"`
	Doctor           *Doctor          `json:"doctor,omitempty"`
	Messages         []Message        `json:"messages"`
	HandoffConfirmed bool             `json:"-"`
}

// TriageRequest is the body for the standalone triage endpoint.
type TriageRequest struct {
	UserID   string `json:"user_id"`
	Symptoms string `json:"symptoms"`
}

// TriageResult pairs the written triage record with the matched doctor. The
// doctor is a placeholder record when no real doctor covers the specialty.
type TriageResult struct {
	Triage *TriageRecord `json:"triage"`
	Doctor *Doctor       `json:"doctor"`
}
