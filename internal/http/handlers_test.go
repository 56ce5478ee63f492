package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medichat/internal/core"
	"medichat/pkg"
)

type stubLLM struct {
	fn func(prompt string) (string, error)
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	if s.fn == nil {
		return "", nil
	}
	return s.fn(prompt)
}

type memStore struct {
	convs map[string]*pkg.Conversation
}

func (s *memStore) Get(_ context.Context, id string) (*pkg.Conversation, error) {
	conv, ok := s.convs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return conv, nil
}

func (s *memStore) Save(_ context.Context, conv *pkg.Conversation) error {
	s.convs[conv.ID] = conv
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	if _, ok := s.convs[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.convs, id)
	return nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]pkg.Conversation, error) {
	var out []pkg.Conversation
	for _, c := range s.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) DeleteEmpty(_ context.Context) (int64, error) {
	var n int64
	for id, c := range s.convs {
		if len(c.Messages) == 0 {
			delete(s.convs, id)
			n++
		}
	}
	return n, nil
}

type fakeDirectory struct {
	doctor *pkg.Doctor
}

func (d *fakeDirectory) FindBySpecialty(_ context.Context, s pkg.Specialty) (*pkg.Doctor, error) {
	if d.doctor != nil && d.doctor.Specialty == s {
		return d.doctor, nil
	}
	return nil, nil
}

func (d *fakeDirectory) FindAny(_ context.Context) (*pkg.Doctor, error) {
	return d.doctor, nil
}

type fakeTriageLog struct {
	records []pkg.TriageRecord
}

func (l *fakeTriageLog) Append(_ context.Context, rec *pkg.TriageRecord) error {
	l.records = append(l.records, *rec)
	return nil
}

func (l *fakeTriageLog) History(_ context.Context, userID string) ([]pkg.TriageRecord, error) {
	var out []pkg.TriageRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].UserID == userID {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}

type fakeNotifier struct {
	notified chan string
}

func (n *fakeNotifier) NotifyHandoff(_ context.Context, conversationID string) error {
	n.notified <- conversationID
	return nil
}

func newTestServer(llm *stubLLM, doctor *pkg.Doctor) (*httptest.Server, *fakeNotifier) {
	store := &memStore{convs: map[string]*pkg.Conversation{}}
	engine := core.NewChatEngine(store, &fakeDirectory{doctor: doctor}, &fakeTriageLog{}, llm)
	notifier := &fakeNotifier{notified: make(chan string, 1)}
	return httptest.NewServer(NewServer(engine, notifier)), notifier
}

func scriptedLLM(intentReply, chatReply string) *stubLLM {
	return &stubLLM{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, `"yes"`) {
			return intentReply, nil
		}
		return chatReply, nil
	}}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(&stubLLM{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(&stubLLM{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "medichat_")
}

func TestCreateConversationValidation(t *testing.T) {
	srv, _ := newTestServer(&stubLLM{}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/conversations", map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownConversationIs404(t *testing.T) {
	srv, _ := newTestServer(&stubLLM{}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/conversations/nope/messages",
		pkg.ChatRequest{UserID: "u1", Content: "xin chào"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatHandoffFlow(t *testing.T) {
	doctor := &pkg.Doctor{
		ID:        "doc-tim-1",
		Name:      "BS. Nguyễn Văn An",
		Specialty: pkg.SpecialtyCardiology,
		Hospital:  "Bệnh viện Bạch Mai",
	}
	srv, notifier := newTestServer(scriptedLLM("yes", "unused"), doctor)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/conversations", map[string]string{"user_id": "u1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ConversationID string `json:"conversation_id"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ConversationID)

	msgURL := srv.URL + "/api/conversations/" + created.ConversationID + "/messages"
	resp = postJSON(t, msgURL, pkg.ChatRequest{UserID: "u1", Content: "tôi muốn khám tim"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var offer pkg.ChatResult
	decodeBody(t, resp, &offer)
	assert.Equal(t, pkg.ModeDoctorPending, offer.Mode)
	assert.Contains(t, offer.Reply, doctor.Name)

	resp = postJSON(t, msgURL, pkg.ChatRequest{UserID: "u1", Content: "có"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accepted pkg.ChatResult
	decodeBody(t, resp, &accepted)
	assert.Equal(t, pkg.ModeDoctorActive, accepted.Mode)

	select {
	case id := <-notifier.notified:
		assert.Equal(t, created.ConversationID, id)
	case <-time.After(time.Second):
		t.Fatal("expected a handoff notification")
	}
}

func TestGetAndDeleteConversation(t *testing.T) {
	srv, _ := newTestServer(scriptedLLM("no", "ok"), nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/conversations", map[string]string{"user_id": "u1"})
	var created struct {
		ConversationID string `json:"conversation_id"`
	}
	decodeBody(t, resp, &created)

	getURL := srv.URL + "/api/conversations/" + created.ConversationID
	resp2, err := http.Get(getURL)
	require.NoError(t, err)
	var conv pkg.Conversation
	decodeBody(t, resp2, &conv)
	assert.Equal(t, pkg.ModeGeneric, conv.Mode)

	req, err := http.NewRequest(http.MethodDelete, getURL, nil)
	require.NoError(t, err)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)

	resp4, err := http.Get(getURL)
	require.NoError(t, err)
	resp4.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp4.StatusCode)
}

func TestTriageEndpoint(t *testing.T) {
	srv, _ := newTestServer(&stubLLM{}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/triage",
		pkg.TriageRequest{UserID: "u1", Symptoms: "nổi mụn khắp lưng"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result pkg.TriageResult
	decodeBody(t, resp, &result)
	assert.Equal(t, pkg.SpecialtyDermatology, result.Triage.Specialty)
	require.NotNil(t, result.Doctor)
	assert.Equal(t, pkg.SpecialtyDermatology, result.Doctor.Specialty)

	resp2, err := http.Get(srv.URL + "/api/triage?user_id=u1")
	require.NoError(t, err)
	var records []pkg.TriageRecord
	decodeBody(t, resp2, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "nổi mụn khắp lưng", records[0].Symptoms)

	resp3 := postJSON(t, srv.URL+"/api/triage", pkg.TriageRequest{UserID: "u1"})
	resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestPurgeEndpoint(t *testing.T) {
	srv, _ := newTestServer(&stubLLM{}, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/conversations", map[string]string{"user_id": "u1"})
	resp.Body.Close()

	resp2, err := http.Post(srv.URL+"/api/admin/conversations/purge", "application/json", nil)
	require.NoError(t, err)
	var purged struct {
		Deleted int64 `json:"deleted"`
	}
	decodeBody(t, resp2, &purged)
	assert.EqualValues(t, 1, purged.Deleted)
}
