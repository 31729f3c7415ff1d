package httpadapter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	httpadapter "github.com/PabloGalante/ledger/internal/adapters/http"
	"github.com/PabloGalante/ledger/internal/adapters/llm"
	"github.com/PabloGalante/ledger/internal/adapters/storage/memory"
	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/app/conversation"
	"github.com/PabloGalante/ledger/internal/app/dashboard"
	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

func newTestServer(t *testing.T) (http.Handler, domain.Store) {
	t.Helper()

	store := memory.NewRecordStore()
	convSvc := conversation.NewService(llm.NewMockLLM(), store,
		memory.NewFlowStore[coaching.OnboardingState](),
		memory.NewFlowStore[coaching.SessionState](),
		conversation.WithRand(firstRand{}),
	)
	dashSvc := dashboard.NewService(store)

	return httpadapter.NewServer(convSvc, dashSvc), store
}

func do(t *testing.T, srv http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Name", "Ana")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

type sseEvent struct {
	name string
	data map[string]any
}

func parseEvents(t *testing.T, w *httptest.ResponseRecorder) []sseEvent {
	t.Helper()
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"), "body=%s", w.Body.String())

	var out []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(w.Body.String()), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				ev.name = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				require.NoError(t, json.Unmarshal([]byte(v), &ev.data))
			}
		}
		out = append(out, ev)
	}
	return out
}

func lastEvent(t *testing.T, events []sseEvent) sseEvent {
	t.Helper()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMissingIdentityRedirectsToLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/dashboard", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/auth/login", decode(t, w)["redirect"])
}

func TestRequestLogCarriesUserID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := observability.Logger()
	observability.SetLogger(zap.New(core))
	t.Cleanup(func() { observability.SetLogger(prev) })

	srv, _ := newTestServer(t)
	do(t, srv, http.MethodGet, "/frameworks", "", "u-1")
	do(t, srv, http.MethodGet, "/healthz", "", "")
	do(t, srv, http.MethodGet, "/dashboard", "", "")

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 3)

	fields := entries[0].ContextMap()
	assert.Equal(t, "/frameworks", fields["path"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.NotEmpty(t, fields["request_id"])

	assert.NotContains(t, entries[1].ContextMap(), "user_id")
	assert.NotContains(t, entries[2].ContextMap(), "user_id")
	assert.EqualValues(t, http.StatusUnauthorized, entries[2].ContextMap()["status"])
}

func TestFrameworks(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/frameworks", "", "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["frameworks"], 7)
	assert.Len(t, body["wedges"], 5)
}

func TestOnboardingOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/dashboard", "", "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["needs_onboarding"])

	w = do(t, srv, http.MethodPost, "/onboarding", "", "u-1")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = do(t, srv, http.MethodPost, "/onboarding/"+id+"/messages", `{"text":""}`, "u-1")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var done sseEvent
	for _, text := range []string{"I stayed quiet when my report was blamed", "I wish I had backed them", "Yes"} {
		w = do(t, srv, http.MethodPost, "/onboarding/"+id+"/messages", `{"text":"`+text+`"}`, "u-1")
		require.Equal(t, http.StatusOK, w.Code)
		events := parseEvents(t, w)
		assert.Equal(t, "delta", events[0].name)
		done = lastEvent(t, events)
		require.Equal(t, "done", done.name)
	}

	assert.Equal(t, "confirmed", done.data["phase"])
	assert.Equal(t, "I speak up for my team, even when it feels risky.", done.data["principle"])
	assert.NotContains(t, done.data["reply"], coaching.PrincipleMarker)
	onboarding := done.data["onboarding"].(map[string]any)
	assert.Equal(t, true, onboarding["saved"])

	w = do(t, srv, http.MethodGet, "/dashboard", "", "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["needs_onboarding"])
	assert.Len(t, body["principles"], 1)

	w = do(t, srv, http.MethodGet, "/onboarding/"+id, "", "someone-else")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCoachingSessionOverHTTP(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.CreatePrinciple(context.Background(), &domain.Principle{
		ID:        "p-1",
		UserID:    "u-1",
		Text:      "I ask before I assume",
		CreatedAt: time.Now(),
	}))

	w := do(t, srv, http.MethodPost, "/sessions", "", "u-1")
	require.Equal(t, http.StatusCreated, w.Code)
	session := decode(t, w)
	id := session["id"].(string)
	assert.Equal(t, "select-principle", session["phase"])
	assert.Equal(t, "behavioral", session["framework"].(map[string]any)["id"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/principle", `{"principle_id":"p-1"}`, "u-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/situation", `{"text":"Honestly I just want to die"}`, "u-1")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, coaching.SafetyMessage, body["safety_message"])
	assert.Equal(t, true, body["session"].(map[string]any)["crisis_detected"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/situation", `{"text":"My peer took over my project"}`, "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "select-wedge", decode(t, w)["phase"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/wedge", `{"wedge":"Conflict"}`, "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	done := lastEvent(t, parseEvents(t, w))
	require.Equal(t, "done", done.name)
	assert.Equal(t, "commitment", done.data["phase"])
	options := done.data["options"].([]any)
	require.Len(t, options, 3)
	assert.NotContains(t, done.data["reply"], coaching.CommitmentMarker)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"more please"}`, "u-1")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/commitment", `{"option":"`+options[0].(string)+`"}`, "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "feedback", decode(t, w)["phase"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/feedback", `{}`, "u-1")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/feedback", `{"value":1}`, "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	final := decode(t, w)
	assert.Equal(t, "done", final["phase"])
	csID := final["coaching_session_id"].(string)

	w = do(t, srv, http.MethodGet, "/dashboard", "", "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["pending_follow_ups"], 1)

	w = do(t, srv, http.MethodPost, "/coaching-sessions/"+csID+"/follow-up", `{"status":"yes","note":"went well"}`, "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "yes", decode(t, w)["follow_up_status"])

	w = do(t, srv, http.MethodPost, "/coaching-sessions/"+csID+"/follow-up", `{"status":"no"}`, "u-1")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodGet, "/dashboard", "", "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["pending_follow_ups"])
}

func TestUnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/sessions/nope", "", "u-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
