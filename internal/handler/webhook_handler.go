// internal/handler/webhook_handler.go
package handler

import (
	"net/http"

	"github.com/unclebandit/donorcall-backend/internal/service"
	"github.com/unclebandit/donorcall-backend/internal/twiml"
)

// WebhookHandler holds the dependencies for the endpoints Twilio calls back
// into. These are consumed by the gateway, not by end users.
type WebhookHandler struct {
	Service *service.CampaignService

	// GatherURL is where Twilio posts the collected digit.
	GatherURL string
}

func NewWebhookHandler(svc *service.CampaignService, gatherURL string) *WebhookHandler {
	return &WebhookHandler{
		Service:   svc,
		GatherURL: gatherURL,
	}
}

// Voice returns the initial interactive prompt for a just-answered call.
func (h *WebhookHandler) Voice(w http.ResponseWriter, r *http.Request) {
	writeTwiML(w, twiml.InitialPrompt(h.GatherURL))
}

// ProcessDigits handles the keypress Twilio gathered.
func (h *WebhookHandler) ProcessDigits(w http.ResponseWriter, r *http.Request) {
	digit := r.FormValue("Digits")
	to := r.FormValue("To")

	doc := h.Service.HandleDigit(r.Context(), to, digit)
	writeTwiML(w, doc)
}

// Status handles the call-status callback. Backend notification only, no
// voice document in the response.
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	to := r.FormValue("To")
	callStatus := r.FormValue("CallStatus")

	h.Service.HandleStatus(r.Context(), to, callStatus)
	w.WriteHeader(http.StatusNoContent)
}

func writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(doc))
}
