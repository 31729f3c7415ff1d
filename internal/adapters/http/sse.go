package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/PabloGalante/ledger/internal/observability"
)

// eventStream writes a server-sent event response. Headers go out with the
// first event, so a request that fails before streaming can still be
// answered with a plain JSON error.
type eventStream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	return &eventStream{w: w, rc: http.NewResponseController(w)}
}

func (s *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *eventStream) delta(chunk string) error {
	return s.send("delta", map[string]string{"text": chunk})
}

func (s *eventStream) done(ev turnDoneEvent) {
	_ = s.send("done", ev)
}

// fail answers with a JSON error if nothing has been streamed yet and with an
// error event otherwise.
func (s *eventStream) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !s.started {
		writeError(w, r, err)
		return
	}
	if status := statusFor(err); status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("stream failed",
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	_ = s.send("error", errorBody(err))
}
