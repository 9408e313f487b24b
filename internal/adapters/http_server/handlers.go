package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"replydesk/internal/app"
	"replydesk/internal/domain"
)

type Handlers struct {
	Responder *app.ResponderService
	Publisher *app.PublishService
	Q         *app.QueryService
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Group(func(m chi.Router) {
		m.Use(RequireOrg)
		m.Post("/v1/reviews/{id}/response", h.generate)
		m.Post("/v1/responses/{id}/publish", h.publish)
		m.Get("/v1/locations/{id}/reviews", h.listReviews)
	})
}

type responseBody struct {
	ID            string `json:"id"`
	ReviewID      string `json:"reviewId"`
	GeneratedText string `json:"generatedText"`
	Status        string `json:"status"`
	TokensUsed    int    `json:"tokensUsed"`
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	orgID := orgFrom(r)
	reviewID := chi.URLParam(r, "id")

	rsp, err := h.Responder.Generate(r.Context(), orgID, reviewID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responseBody{
		ID:            rsp.ID,
		ReviewID:      rsp.ReviewID,
		GeneratedText: rsp.GeneratedText,
		Status:        string(rsp.Status),
		TokensUsed:    rsp.TokensUsed,
	})
}

func (h *Handlers) publish(w http.ResponseWriter, r *http.Request) {
	orgID := orgFrom(r)
	responseID := chi.URLParam(r, "id")

	var body struct {
		Text string `json:"text"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.Publisher.Publish(r.Context(), orgID, responseID, body.Text); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "response published"})
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	orgID := orgFrom(r)
	locationID := chi.URLParam(r, "id")

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	items, err := h.Q.ListReviews(r.Context(), orgID, locationID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// statusFor maps the error taxonomy to HTTP. Not-connected is a 400 (setup
// problem the caller must fix, not a retry), timeouts are 504, rate limits
// 429, the remaining upstream classes 502.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindNotConnected:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case domain.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case domain.KindUpstreamConfig, domain.KindUpstreamUnavailable, domain.KindPublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status >= 500 {
		log.Error().Err(err).Str("kind", string(kind)).Msg("request failed")
	} else {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("request rejected")
	}
	writeError(w, status, domain.PublicMessage(err))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}
