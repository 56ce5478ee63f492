package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"medichat/internal/llm"
	"medichat/internal/telemetry"
	"medichat/pkg"
)

// ConversationStore is the durable per-conversation state collaborator.
// Get returns ErrNotFound for unknown ids. Save persists mode, doctor
// references and any not-yet-persisted messages.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*pkg.Conversation, error)
	Save(ctx context.Context, conv *pkg.Conversation) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]pkg.Conversation, error)
	DeleteEmpty(ctx context.Context) (int64, error)
}

// DoctorDirectory looks up doctor records. Both methods return (nil, nil)
// when no doctor matches.
type DoctorDirectory interface {
	FindBySpecialty(ctx context.Context, specialty pkg.Specialty) (*pkg.Doctor, error)
	FindAny(ctx context.Context) (*pkg.Doctor, error)
}

// TriageLog is the append-only audit log of specialty classifications.
type TriageLog interface {
	Append(ctx context.Context, rec *pkg.TriageRecord) error
	History(ctx context.Context, userID string) ([]pkg.TriageRecord, error)
}

// Affirmative and negative tokens recognised while a handoff offer is
// pending. Matching is lowercase substring containment.
var (
	affirmativeTokens = []string{"có", "ok", "đúng", "yes"}
	negativeTokens    = []string{"không", "no", "từ chối"}
)

const previewLength = 30

// ChatEngine owns the conversation state machine. On each incoming message
// it consults the intent classifier, the specialty matcher, the doctor
// directory and the completion oracle to produce the next state and the
// assistant's reply. All collaborators are injected via the constructor.
type ChatEngine struct {
	store   ConversationStore
	doctors DoctorDirectory
	triage  TriageLog
	llm     llm.Client
	intent  *IntentClassifier
}

// NewChatEngine constructs the engine from its collaborators.
func NewChatEngine(store ConversationStore, doctors DoctorDirectory, triage TriageLog, client llm.Client) *ChatEngine {
	return &ChatEngine{
		store:   store,
		doctors: doctors,
		triage:  triage,
		llm:     client,
		intent:  NewIntentClassifier(client),
	}
}

// CreateConversation creates an empty generic-mode conversation owned by
// userID and persists it.
func (e *ChatEngine) CreateConversation(ctx context.Context, userID string) (*pkg.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "user_id"}
	}
	conv := &pkg.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
		Mode:   pkg.ModeGeneric,
	}
	if err := e.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// PostMessage runs one turn of the state machine: append the user message,
// evaluate exactly one branch, append the assistant reply, persist, return.
func (e *ChatEngine) PostMessage(ctx context.Context, convID, userID, text string) (*pkg.ChatResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "user_id"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "content"}
	}
	conv, err := e.store.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrNotFound
	}

	conv.Append(pkg.RoleUser, text)
	telemetry.MessagesTotal.WithLabelValues(string(pkg.RoleUser)).Inc()

	if conv.Mode == pkg.ModeDoctorPending {
		if res, handled, err := e.resolvePendingHandoff(ctx, conv, text); handled {
			return res, err
		}
		// Neither token matched: the offer stays outstanding and the
		// message is handled by the generic branch below.
	}

	if conv.Mode == pkg.ModeDoctorActive {
		return e.doctorTurn(ctx, conv)
	}
	return e.genericTurn(ctx, conv, text)
}

// resolvePendingHandoff handles the confirmation branch. It reports handled
// = false when the text contains neither an affirmative nor a negative
// token, in which case the caller falls through to the generic branch with
// the pending offer untouched.
func (e *ChatEngine) resolvePendingHandoff(ctx context.Context, conv *pkg.Conversation, text string) (*pkg.ChatResult, bool, error) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, affirmativeTokens):
		doc := conv.PendingDoctor
		conv.Mode = pkg.ModeDoctorActive
		conv.AssignedDoctor = doc
		conv.PendingDoctor = nil
		reply := fmt.Sprintf(handoffAcceptedFormat, doc.Specialty, doc.Name)
		res, err := e.finishTurn(ctx, conv, reply, doc)
		if err == nil {
			res.HandoffConfirmed = true
			telemetry.HandoffsTotal.WithLabelValues("accepted").Inc()
		}
		return res, true, err
	case containsAny(lower, negativeTokens):
		conv.Mode = pkg.ModeGeneric
		conv.PendingDoctor = nil
		res, err := e.finishTurn(ctx, conv, handoffDeclined, nil)
		if err == nil {
			telemetry.HandoffsTotal.WithLabelValues("declined").Inc()
		}
		return res, true, err
	default:
		return nil, false, nil
	}
}

// doctorTurn answers in the assigned doctor's persona using the full
// transcript for coherence.
func (e *ChatEngine) doctorTurn(ctx context.Context, conv *pkg.Conversation) (*pkg.ChatResult, error) {
	doc := conv.AssignedDoctor
	prompt := fmt.Sprintf(doctorPromptFormat, doc.Name, doc.Specialty, renderTranscript(conv.Messages))
	reply, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return e.finishTurn(ctx, conv, reply, doc)
}

// genericTurn runs the default branch: classify intent, possibly offer a
// doctor handoff, otherwise answer as the AI nurse.
func (e *ChatEngine) genericTurn(ctx context.Context, conv *pkg.Conversation, text string) (*pkg.ChatResult, error) {
	wants, err := e.intent.WantsDoctor(ctx, text)
	if err != nil {
		telemetry.OracleFailuresTotal.Inc()
		return nil, &UpstreamError{Op: "classify intent", Err: err}
	}
	if wants {
		specialty := MatchSpecialty(text)
		telemetry.TriageTotal.WithLabelValues(string(specialty)).Inc()
		if err := e.triage.Append(ctx, &pkg.TriageRecord{
			UserID:    conv.UserID,
			Symptoms:  text,
			Specialty: specialty,
		}); err != nil {
			return nil, &UpstreamError{Op: "append triage record", Err: err}
		}
		doc, err := e.doctors.FindBySpecialty(ctx, specialty)
		if err != nil {
			return nil, &UpstreamError{Op: "find doctor", Err: err}
		}
		if doc != nil {
			conv.Mode = pkg.ModeDoctorPending
			conv.PendingDoctor = doc
			reply := fmt.Sprintf(handoffQuestionFormat, doc.Name, doc.Specialty, doc.Hospital)
			res, err := e.finishTurn(ctx, conv, reply, doc)
			if err == nil {
				telemetry.HandoffsTotal.WithLabelValues("offered").Inc()
			}
			return res, err
		}
		// No doctor available: the chat turn still gets a nurse reply.
	}
	prompt := NursePrompt + "\n\n" + renderTranscript(conv.Messages) + "\nTrợ lý:"
	reply, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return e.finishTurn(ctx, conv, reply, nil)
}

// finishTurn appends the assistant reply, persists the conversation and
// builds the result. Persistence is the last side effect of every branch.
func (e *ChatEngine) finishTurn(ctx context.Context, conv *pkg.Conversation, reply string, doc *pkg.Doctor) (*pkg.ChatResult, error) {
	conv.Append(pkg.RoleAssistant, reply)
	telemetry.MessagesTotal.WithLabelValues(string(pkg.RoleAssistant)).Inc()
	if err := e.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return &pkg.ChatResult{
		Reply:    reply,
		Mode:     conv.Mode,
		Doctor:   doc,
		Messages: conv.Messages,
	}, nil
}

func (e *ChatEngine) complete(ctx context.Context, prompt string) (string, error) {
	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		telemetry.OracleFailuresTotal.Inc()
		return "", &UpstreamError{Op: "complete chat", Err: err}
	}
	return reply, nil
}

// GetConversation returns a conversation with its transcript and assigned
// doctor.
func (e *ChatEngine) GetConversation(ctx context.Context, id string) (*pkg.Conversation, error) {
	return e.store.Get(ctx, id)
}

// DeleteConversation removes a conversation and its transcript.
func (e *ChatEngine) DeleteConversation(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// ListConversations returns previews of a user's conversations: the first
// message truncated to 30 runes, or a placeholder for an empty transcript.
func (e *ChatEngine) ListConversations(ctx context.Context, userID string) ([]pkg.ConversationPreview, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "user_id"}
	}
	convs, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previews := make([]pkg.ConversationPreview, 0, len(convs))
	for _, c := range convs {
		preview := emptyPreview
		if len(c.Messages) > 0 {
			preview = truncate(c.Messages[0].Content, previewLength)
		}
		previews = append(previews, pkg.ConversationPreview{ID: c.ID, Preview: preview})
	}
	return previews, nil
}

// RunTriage classifies symptom text, writes an audit record and looks up a
// doctor for the suggested specialty. When no doctor covers the specialty a
// placeholder record is returned so the endpoint always names a doctor.
func (e *ChatEngine) RunTriage(ctx context.Context, userID, symptoms string) (*pkg.TriageResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "user_id"}
	}
	if strings.TrimSpace(symptoms) == "" {
		return nil, &ValidationError{Field: "symptoms"}
	}
	specialty := MatchSpecialty(symptoms)
	telemetry.TriageTotal.WithLabelValues(string(specialty)).Inc()
	rec := &pkg.TriageRecord{
		UserID:    userID,
		Symptoms:  symptoms,
		Specialty: specialty,
	}
	if err := e.triage.Append(ctx, rec); err != nil {
		return nil, &UpstreamError{Op: "append triage record", Err: err}
	}
	doc, err := e.doctors.FindBySpecialty(ctx, specialty)
	if err != nil {
		return nil, &UpstreamError{Op: "find doctor", Err: err}
	}
	if doc == nil {
		doc = &pkg.Doctor{Name: placeholderDoctorName, Specialty: specialty}
	}
	return &pkg.TriageResult{Triage: rec, Doctor: doc}, nil
}

// ListTriage returns a user's triage history, most recent first.
func (e *ChatEngine) ListTriage(ctx context.Context, userID string) ([]pkg.TriageRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "user_id"}
	}
	return e.triage.History(ctx, userID)
}

// PurgeEmptyConversations deletes conversations with no messages and
// reports how many were removed.
func (e *ChatEngine) PurgeEmptyConversations(ctx context.Context) (int64, error) {
	return e.store.DeleteEmpty(ctx)
}

func containsAny(text string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// renderTranscript flattens the transcript into labelled lines for prompt
// building.
func renderTranscript(messages []pkg.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		label := "Người dùng"
		if m.Role == pkg.RoleAssistant {
			label = "Trợ lý"
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
