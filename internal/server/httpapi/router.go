// Package httpapi exposes the engine's HTTP surface: the one-click activity
// verification endpoint linked from every notification email, the activity
// signal and settings endpoints used by the vault application, and a pair of
// demo endpoints that stay unregistered unless explicitly enabled.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ActivityAPI is the slice of the activity service the HTTP layer needs.
type ActivityAPI interface {
	RedeemToken(ctx context.Context, token string) (string, error)
	RecordActivity(ctx context.Context, userID string) error
	UpdateSettings(ctx context.Context, userID string, periodDays int) error
	SimulateInactivity(ctx context.Context, userID string, days int) error
	AuditTrail(ctx context.Context, userID string, limit int) ([]*models.ActivityLog, error)
}

// Ticker triggers one scheduler pass on demand. Demo tooling only.
type Ticker interface {
	Tick(ctx context.Context) error
}

type Handlers struct {
	cfg      *config.Config
	activity ActivityAPI
	ticker   Ticker
	logger   logging.Logger
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func NewRouter(cfg *config.Config, activity ActivityAPI, ticker Ticker, log logging.Logger) http.Handler {
	h := &Handlers{cfg: cfg, activity: activity, ticker: ticker, logger: log.With("module", "httpapi")}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AppBaseURL},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// The verification link must work from an email client, so GET is
		// accepted alongside POST.
		r.Get("/activity/verify/{token}", h.VerifyActivity)
		r.Post("/activity/verify/{token}", h.VerifyActivity)

		r.Post("/activity/record", h.RecordActivity)
		r.Put("/settings/{userID}", h.UpdateSettings)
		r.Get("/activity/log/{userID}", h.AuditTrail)

		if cfg.DemoEnabled {
			r.Post("/demo/simulate", h.SimulateInactivity)
			r.Post("/demo/tick", h.ForceTick)
		}
	})

	return r
}

// VerifyActivity redeems a confirmation token. The response never reveals
// whether a failed token was unknown, consumed, or expired.
func (h *Handlers) VerifyActivity(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	userID, err := h.activity.RedeemToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			writeJSON(w, http.StatusBadRequest, statusResponse{
				Status:  "error",
				Message: "This verification link is invalid or has expired.",
			})
			return
		}
		h.logger.Error(r.Context(), "verification failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, statusResponse{
			Status: "error", Message: "Something went wrong. Please try again.",
		})
		return
	}

	h.logger.Info(r.Context(), "activity verified", "user", userID)
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Thank you! Your activity has been confirmed and your timer has been reset.",
	})
}

// RecordActivity registers a direct activity signal forwarded by the vault
// application, typically on login.
func (h *Handlers) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "user_id is required"})
		return
	}

	if err := h.activity.RecordActivity(r.Context(), req.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeJSON(w, http.StatusNotFound, statusResponse{Status: "error", Message: "unknown user"})
			return
		}
		h.logger.Error(r.Context(), "record activity failed", "user", req.UserID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "activity recorded"})
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		InactivityPeriodDays int `json:"inactivity_period_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid request body"})
		return
	}

	if err := h.activity.UpdateSettings(r.Context(), userID, req.InactivityPeriodDays); err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidSettings):
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "inactivity period out of range"})
		case errors.Is(err, common.ErrorNotFound):
			writeJSON(w, http.StatusNotFound, statusResponse{Status: "error", Message: "unknown user"})
		default:
			h.logger.Error(r.Context(), "settings update failed", "user", userID, "error", err.Error())
			writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "settings updated"})
}

func (h *Handlers) AuditTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.activity.AuditTrail(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error(r.Context(), "audit trail lookup failed", "user", userID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "internal error"})
		return
	}

	type entryResponse struct {
		Action    string `json:"action"`
		Details   string `json:"details"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handlers) SimulateInactivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Days   int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "user_id is required"})
		return
	}

	if err := h.activity.SimulateInactivity(r.Context(), req.UserID, req.Days); err != nil {
		if errors.Is(err, common.ErrInvalidSettings) {
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "days must be non-negative"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "inactivity simulated"})
}

func (h *Handlers) ForceTick(w http.ResponseWriter, r *http.Request) {
	if err := h.ticker.Tick(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "tick failed"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "tick completed"})
}
