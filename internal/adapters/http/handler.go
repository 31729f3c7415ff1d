package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/app/conversation"
	"github.com/PabloGalante/ledger/internal/app/dashboard"
	"github.com/PabloGalante/ledger/internal/domain"
)

type Server struct {
	conv *conversation.Service
	dash *dashboard.Service
}

func NewServer(conv *conversation.Service, dash *dashboard.Service) http.Handler {
	s := &Server{conv: conv, dash: dash}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /principles", s.handleListPrinciples)
	mux.HandleFunc("GET /frameworks", s.handleFrameworks)
	mux.HandleFunc("POST /coaching-sessions/{id}/follow-up", s.handleFollowUp)

	mux.HandleFunc("POST /onboarding", s.handleStartOnboarding)
	mux.HandleFunc("GET /onboarding/{id}", s.handleGetOnboarding)
	mux.HandleFunc("POST /onboarding/{id}/messages", s.handleOnboardingMessage)
	mux.HandleFunc("POST /onboarding/{id}/confirm", s.handleConfirmOnboarding)

	mux.HandleFunc("POST /sessions", s.handleStartSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/principle", s.handleSelectPrinciple)
	mux.HandleFunc("POST /sessions/{id}/situation", s.handleSubmitSituation)
	mux.HandleFunc("POST /sessions/{id}/wedge", s.handleSelectWedge)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handleSessionMessage)
	mux.HandleFunc("POST /sessions/{id}/commitment", s.handleSelectCommitment)
	mux.HandleFunc("POST /sessions/{id}/feedback", s.handleFeedback)

	return chainMiddlewares(mux,
		withIdentity,
		withLogging,
		withRequestID,
		withCORS,
	)
}

// ─────────────────────────────────────────────
// Request bodies
// ─────────────────────────────────────────────

type textRequest struct {
	Text string `json:"text"`
}

type selectPrincipleRequest struct {
	PrincipleID string `json:"principle_id"`
}

type selectWedgeRequest struct {
	Wedge string `json:"wedge"`
}

type selectCommitmentRequest struct {
	Option string `json:"option"`
}

type feedbackRequest struct {
	Value *int `json:"value"`
}

type followUpRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ─────────────────────────────────────────────
// Dashboard handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	d, err := s.dash.GetDashboard(r.Context(), who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardResponse(d))
}

func (s *Server) handleListPrinciples(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	principles, err := s.dash.ListPrinciples(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"principles": toPrincipleResponses(principles)})
}

func (s *Server) handleFrameworks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, frameworksResponse{
		Frameworks: coaching.Frameworks(),
		Wedges:     domain.WedgeLabels,
	})
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req followUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cs, err := s.dash.RecordFollowUp(r.Context(), who.UserID, domain.CoachingSessionID(r.PathValue("id")), req.Status, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoachingSessionResponse(cs))
}

// ─────────────────────────────────────────────
// Onboarding handlers
// ─────────────────────────────────────────────

func (s *Server) handleStartOnboarding(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	view, err := s.conv.StartOnboarding(r.Context(), who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOnboardingResponse(view))
}

func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	view, err := s.conv.GetOnboarding(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingResponse(view))
}

func (s *Server) handleOnboardingMessage(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stream := newEventStream(w)
	turn, err := s.conv.SendOnboardingMessage(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), req.Text, stream.delta)
	if turn != nil {
		v := toOnboardingResponse(turn.View)
		stream.done(turnDoneEvent{
			Reply:      turn.Reply,
			Phase:      string(turn.View.Phase),
			Principle:  turn.View.PrincipleText,
			Onboarding: &v,
		})
	}
	if err != nil {
		stream.fail(w, r, err)
	}
}

func (s *Server) handleConfirmOnboarding(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	view, err := s.conv.ConfirmOnboarding(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingResponse(view))
}

// ─────────────────────────────────────────────
// Coaching session handlers
// ─────────────────────────────────────────────

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	view, err := s.conv.StartCoachingSession(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(view))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	view, err := s.conv.GetCoachingSession(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")))
	s.writeSession(w, r, view, err)
}

func (s *Server) handleSelectPrinciple(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req selectPrincipleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.conv.SelectPrinciple(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), domain.PrincipleID(req.PrincipleID))
	s.writeSession(w, r, view, err)
}

func (s *Server) handleSubmitSituation(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.conv.SubmitSituation(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), req.Text)
	s.writeSession(w, r, view, err)
}

func (s *Server) handleSelectWedge(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req selectWedgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stream := newEventStream(w)
	turn, err := s.conv.SelectWedge(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), req.Wedge, stream.delta)
	s.finishCoachingTurn(w, r, stream, turn, err)
}

func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stream := newEventStream(w)
	turn, err := s.conv.SendCoachingMessage(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), req.Text, stream.delta)
	s.finishCoachingTurn(w, r, stream, turn, err)
}

func (s *Server) finishCoachingTurn(w http.ResponseWriter, r *http.Request, stream *eventStream, turn *conversation.CoachingTurn, err error) {
	if err != nil {
		stream.fail(w, r, err)
		return
	}
	v := toSessionResponse(turn.View)
	stream.done(turnDoneEvent{
		Reply:   turn.Reply,
		Phase:   string(turn.View.Phase),
		Options: turn.View.Options,
		Session: &v,
	})
}

func (s *Server) handleSelectCommitment(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req selectCommitmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.conv.SelectCommitment(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), req.Option)
	s.writeSession(w, r, view, err)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	who, _ := identityFrom(r.Context())
	var req feedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, r, domain.ErrInvalidRating)
		return
	}
	view, err := s.conv.SubmitFeedback(r.Context(), who.UserID, domain.FlowID(r.PathValue("id")), domain.Feedback(*req.Value))
	s.writeSession(w, r, view, err)
}

// writeSession writes view, or the error. A crisis rejection carries the
// session so the client can show the banner in place.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, view *conversation.SessionView, err error) {
	if err != nil {
		if view != nil && errors.Is(err, domain.ErrCrisisDetected) {
			resp := errorBody(err)
			v := toSessionResponse(view)
			resp.Session = &v
			writeErrorResponse(w, r, err, resp)
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}
