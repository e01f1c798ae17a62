package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranhealth/drai/internal/assistant"
	"github.com/pranhealth/drai/pkg/logging"
)

type fakePipeline struct {
	reply string
	sent  bool
	last  assistant.Inbound
}

func (f *fakePipeline) Handle(_ context.Context, in assistant.Inbound) (string, bool) {
	f.last = in
	return f.reply, f.sent
}

func newTestRouter(p *fakePipeline) http.Handler {
	return New(&Config{
		Logger:  logging.New("error"),
		Handler: NewHandler(p, logging.New("error")),
	})
}

func TestWebhookReturnsReply(t *testing.T) {
	p := &fakePipeline{reply: "Hello! I'm Dr. AI.", sent: true}
	r := newTestRouter(p)

	body := `{"sender_id":"user-1","message":"hi","metadata":{"patient_id":"PAT001"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/assistant", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Responses []struct {
			Text string `json:"text"`
		} `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Responses, 1)
	assert.Equal(t, "Hello! I'm Dr. AI.", resp.Responses[0].Text)

	assert.Equal(t, "user-1", p.last.SenderID)
	assert.Equal(t, "hi", p.last.Message)
	assert.Equal(t, "PAT001", p.last.PatientID)
}

func TestWebhookSuppressedReplyReturnsEmptyArray(t *testing.T) {
	p := &fakePipeline{sent: false}
	r := newTestRouter(p)

	body := `{"sender_id":"user-1","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/assistant", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"responses":[]}`, rec.Body.String())
}

func TestWebhookRejectsMissingSender(t *testing.T) {
	p := &fakePipeline{reply: "hello", sent: true}
	r := newTestRouter(p)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/assistant", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	p := &fakePipeline{}
	r := newTestRouter(p)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/assistant", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(&fakePipeline{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewHandlerPanicsOnNilPipeline(t *testing.T) {
	assert.PanicsWithValue(t, "httpapi: pipeline cannot be nil", func() {
		NewHandler(nil, nil)
	})
}
