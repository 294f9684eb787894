package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/solinlabs/persona_bot_platform/internal/history_filter"
	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/internal/middleware"
	"github.com/solinlabs/persona_bot_platform/internal/monitoring"
	"github.com/solinlabs/persona_bot_platform/internal/orchestrator"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
	"github.com/solinlabs/persona_bot_platform/pkg/metrics"
)

// API serves the platform's HTTP surface.
type API struct {
	orch    *orchestrator.Orchestrator
	filter  *history_filter.Filter
	archive *history_filter.Archive
	metrics *metrics.Metrics
	health  *monitoring.HealthMonitor
	// corsOrigins and maxRequestSize come from the security config.
	corsOrigins    []string
	maxRequestSize int64
	log            logger.Logger
}

// APIConfig holds the API's collaborators.
type APIConfig struct {
	Orchestrator   *orchestrator.Orchestrator
	Filter         *history_filter.Filter
	Archive        *history_filter.Archive
	Metrics        *metrics.Metrics
	Health         *monitoring.HealthMonitor
	CORSOrigins    []string
	MaxRequestSize int64
	Logger         logger.Logger
}

// NewAPI creates the HTTP API.
func NewAPI(cfg APIConfig) *API {
	return &API{
		orch:           cfg.Orchestrator,
		filter:         cfg.Filter,
		archive:        cfg.Archive,
		metrics:        cfg.Metrics,
		health:         cfg.Health,
		corsOrigins:    cfg.CORSOrigins,
		maxRequestSize: cfg.MaxRequestSize,
		log:            cfg.Logger,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(a.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
	}))
	r.Use(a.log.HTTPMiddleware)
	if a.metrics != nil {
		r.Use(a.metrics.HTTPMiddleware())
	}
	if a.maxRequestSize > 0 {
		r.Use(a.limitRequestSize)
	}

	if a.health != nil {
		r.Get("/healthz", a.health.LivenessHandler())
		r.Get("/readyz", a.health.ReadinessHandler())
	} else {
		r.Get("/healthz", a.handleHealth)
	}
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/{botID}", a.handleChat)
		r.Get("/personas", a.handlePersonas)

		r.Route("/sessions/{botID}/{userID}", func(r chi.Router) {
			r.Get("/history", a.handleGetHistory)
			r.Delete("/history", a.handleClearHistory)
		})

		r.Post("/filter", a.handleFilter)
		r.Get("/archive", a.handleArchive)

		r.Post("/memory/analyze", a.handleMemoryAnalyze)
		r.Get("/memory/{botID}/{userID}", a.handleGetMemories)

		r.Post("/reminders/parse", a.handleReminderParse)
		r.Get("/reminders/{userID}", a.handleGetReminders)
	})

	return r
}

func (a *API) limitRequestSize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxRequestSize)
		next.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply           string `json:"reply"`
	ReminderCreated bool   `json:"reminder_created"`
	Analysis        any    `json:"analysis,omitempty"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		a.writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}
	if req.ChatID == "" {
		req.ChatID = req.UserID
	}

	botID := chi.URLParam(r, "botID")
	reply, err := a.orch.HandleMessage(r.Context(), botID, req.UserID, req.ChatID, req.Message)
	if err != nil {
		a.log.Error("Chat request failed",
			logger.StringField("bot_id", botID),
			logger.ErrorField(err))
		a.writeError(w, http.StatusBadGateway, "failed to generate reply")
		return
	}

	resp := chatResponse{Reply: reply.Text, ReminderCreated: reply.ReminderCreated}
	if reply.Analysis != nil {
		resp.Analysis = reply.Analysis
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	ids, err := a.orch.Personas().List()
	if err != nil {
		a.log.Error("Failed to list personas", logger.ErrorField(err))
		a.writeError(w, http.StatusInternalServerError, "failed to list personas")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string][]string{"personas": ids})
}

func (a *API) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			a.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history := a.orch.History(chi.URLParam(r, "userID"), chi.URLParam(r, "botID"), limit)
	a.writeJSON(w, http.StatusOK, map[string][]history_service.Turn{"history": history})
}

func (a *API) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	a.orch.ClearHistory(chi.URLParam(r, "userID"), chi.URLParam(r, "botID"))
	w.WriteHeader(http.StatusNoContent)
}

type filterRequest struct {
	ChatID  string                 `json:"chat_id"`
	UserID  string                 `json:"user_id"`
	History []history_service.Turn `json:"history"`
}

type filterResponse struct {
	FilteredHistory []history_service.Turn           `json:"filtered_history"`
	FilteredOut     []history_filter.FilteredContent `json:"filtered_out"`
	StoragePath     string                           `json:"storage_path,omitempty"`
}

func (a *API) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := a.filter.FilterHistory(r.Context(), req.History, req.ChatID, req.UserID)
	a.writeJSON(w, http.StatusOK, filterResponse{
		FilteredHistory: result.FilteredHistory,
		FilteredOut:     result.FilteredOut,
		StoragePath:     result.StoragePath,
	})
}

func (a *API) handleArchive(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		a.writeError(w, http.StatusNotFound, "archive is disabled")
		return
	}
	records, err := a.archive.Retrieve(r.Context(), r.URL.Query().Get("chat_id"), r.URL.Query().Get("user_id"))
	if err != nil {
		a.log.Error("Failed to retrieve archive", logger.ErrorField(err))
		a.writeError(w, http.StatusInternalServerError, "failed to retrieve archive")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string][]history_filter.Record{"records": records})
}

type analyzeRequest struct {
	Content string `json:"content"`
}

func (a *API) handleMemoryAnalyze(w http.ResponseWriter, r *http.Request) {
	memory := a.orch.Memory()
	if memory == nil {
		a.writeError(w, http.StatusNotFound, "memory is disabled")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a.writeJSON(w, http.StatusOK, memory.Analyze(r.Context(), req.Content))
}

func (a *API) handleGetMemories(w http.ResponseWriter, r *http.Request) {
	memory := a.orch.Memory()
	if memory == nil {
		a.writeError(w, http.StatusNotFound, "memory is disabled")
		return
	}

	records, err := memory.GetMemories(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "botID"))
	if err != nil {
		a.log.Error("Failed to load memories", logger.ErrorField(err))
		a.writeError(w, http.StatusInternalServerError, "failed to load memories")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"memories": records})
}

type reminderParseRequest struct {
	Message string `json:"message"`
}

type reminderParseResponse struct {
	IsReminder bool   `json:"is_reminder"`
	Minutes    int    `json:"minutes,omitempty"`
	Content    string `json:"content,omitempty"`
}

func (a *API) handleReminderParse(w http.ResponseWriter, r *http.Request) {
	reminders := a.orch.Reminders()
	if reminders == nil {
		a.writeError(w, http.StatusNotFound, "reminders are disabled")
		return
	}

	var req reminderParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, ok := reminders.Parse(req.Message)
	if !ok {
		a.writeJSON(w, http.StatusOK, reminderParseResponse{IsReminder: false})
		return
	}
	a.writeJSON(w, http.StatusOK, reminderParseResponse{
		IsReminder: true,
		Minutes:    parsed.Minutes,
		Content:    parsed.Content,
	})
}

func (a *API) handleGetReminders(w http.ResponseWriter, r *http.Request) {
	reminders := a.orch.Reminders()
	if reminders == nil {
		a.writeError(w, http.StatusNotFound, "reminders are disabled")
		return
	}

	list, err := reminders.GetUserReminders(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		a.log.Error("Failed to load reminders", logger.ErrorField(err))
		a.writeError(w, http.StatusInternalServerError, "failed to load reminders")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"reminders": list})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("Failed to encode response", logger.ErrorField(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}
