package handlers

import (
	"context"
	"net/http"

	"github.com/iskaald/icecold/pkg/service"
)

// Quitter starts a quit negotiation.
type Quitter interface {
	RequestQuit(ctx context.Context) service.QuitResult
}

// QuitHandler exposes the quit coordinator.
type QuitHandler struct {
	quitter Quitter
}

func NewQuitHandler(quitter Quitter) *QuitHandler {
	return &QuitHandler{quitter: quitter}
}

// QuitResponse is the outcome of POST /quit.
type QuitResponse struct {
	Outcome       string         `json:"outcome"`
	NegotiationID string         `json:"negotiation_id,omitempty"`
	Consulted     int            `json:"consulted"`
	Vetoes        []service.Veto `json:"vetoes,omitempty"`
	ShutdownError string         `json:"shutdown_error,omitempty"`
}

// Request handles POST /quit.
//
// The negotiation runs to completion before the response is written:
// 200 OK when the quit was granted and teardown ran, 409 Conflict when a
// voter vetoed it or another negotiation was already in progress.
func (h *QuitHandler) Request(w http.ResponseWriter, r *http.Request) {
	// A client hanging up must not count as a veto.
	res := h.quitter.RequestQuit(context.WithoutCancel(r.Context()))

	body := QuitResponse{
		Outcome:       res.Outcome.String(),
		NegotiationID: res.NegotiationID,
		Consulted:     res.Consulted,
		Vetoes:        res.Vetoes,
	}
	if res.ShutdownErr != nil {
		body.ShutdownError = res.ShutdownErr.Error()
	}

	if res.Granted() {
		writeJSON(w, http.StatusOK, okResponse(body))
		return
	}
	writeJSON(w, http.StatusConflict, Response{
		Status:    "error",
		Timestamp: okResponse(nil).Timestamp,
		Data:      body,
		Error:     "quit " + body.Outcome,
	})
}
