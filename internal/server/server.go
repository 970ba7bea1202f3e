// ABOUTME: chi-based HTTP API exposing the streak card to a dashboard frontend.
// ABOUTME: Routes status, calendar, resolve, reset, and history onto the streak service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/card"
	"github.com/2389-research/streakhub/internal/errs"
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/models"
	"github.com/2389-research/streakhub/internal/services"
	"github.com/2389-research/streakhub/internal/storage"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// StreakService is what the handlers call.
type StreakService interface {
	Status(ctx context.Context) (*services.Status, error)
	Calendar(ctx context.Context, month string) (*services.CalendarMonth, error)
	Reset(ctx context.Context, req services.ResetRequest) (*services.ResetResult, error)
	DismissError()
	History(opts storage.ListOptions) ([]*models.ResetRecord, error)
}

// Server is the HTTP API.
type Server struct {
	svc      StreakService
	registry *card.Registry
	router   chi.Router
}

// New builds the router. A nil base logger falls back to the global one.
func New(svc StreakService, registry *card.Registry, base *log.Logger) *Server {
	if base == nil {
		base = logger.FromContext(context.Background())
	}
	if registry == nil {
		registry = card.NewRegistry()
	}
	s := &Server{svc: svc, registry: registry}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(base))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/streak", s.getStreak)
		r.Get("/calendar", s.getCalendar)
		r.Post("/resolve", s.postResolve)
		r.Post("/reset", s.postReset)
		r.Delete("/reset/error", s.dismissError)
		r.Get("/resets", s.listResets)
		r.Get("/cards", s.listCards)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("http api listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) getStreak(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, st)
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	month, err := s.svc.Calendar(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, month)
}

type resolveRequest struct {
	Date string `json:"date"`
}

func (s *Server) postResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	d, err := services.ParseEventDate(req.Date)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, services.Resolve(d))
}

func (s *Server) postReset(w http.ResponseWriter, r *http.Request) {
	var req services.ResetRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.svc.Reset(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("streak reset", "target", res.Target, "start", res.StreakStart)
	writeSuccess(w, r, http.StatusOK, res)
}

func (s *Server) dismissError(w http.ResponseWriter, r *http.Request) {
	s.svc.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

type resetRecordResponse struct {
	ID          string        `json:"id"`
	EntityID    string        `json:"entity_id"`
	Source      string        `json:"source"`
	EventDate   calendar.Date `json:"event_date"`
	StreakStart calendar.Date `json:"streak_start"`
	Outcome     string        `json:"outcome"`
	Error       string        `json:"error,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (s *Server) listResets(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{EntityID: r.URL.Query().Get("entity")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			handleError(w, r, errs.NewValidationError("limit must be a positive integer, got %q", raw))
			return
		}
		opts.Limit = n
	}

	recs, err := s.svc.History(opts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]resetRecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, resetRecordResponse{
			ID:          rec.ID.String(),
			EntityID:    rec.EntityID,
			Source:      rec.Source,
			EventDate:   rec.EventDate,
			StreakStart: rec.StreakStart,
			Outcome:     rec.Outcome,
			Error:       rec.Error,
			DurationMS:  rec.Duration.Milliseconds(),
			CreatedAt:   rec.CreatedAt,
		})
	}
	writeSuccess(w, r, http.StatusOK, out)
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	cards := s.registry.Cards()
	if cards == nil {
		cards = []card.Info{}
	}
	writeSuccess(w, r, http.StatusOK, cards)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.NewValidationError("invalid request body: %v", err)
	}
	return nil
}
