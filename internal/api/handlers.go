package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/maltedev/sku-price-scraper/internal/records"
	"github.com/maltedev/sku-price-scraper/internal/runs"
	"github.com/maltedev/sku-price-scraper/internal/sink"
)

// Runner executes a batch of records. *scraper.Scheduler satisfies it.
type Runner interface {
	Run(ctx context.Context, recs []models.ProductRecord) ([]models.Outcome, error)
}

// SinkFactory returns the publish sink for a run, or nil when none is configured.
type SinkFactory func(runID string) sink.Sink

type Handlers struct {
	runner          Runner
	registry        *runs.Registry
	sinks           SinkFactory
	baseURLTemplate string
	logger          *slog.Logger

	// runs share one browser, so they execute one at a time to keep the
	// concurrency cap process-wide.
	runMu sync.Mutex
	wg    sync.WaitGroup
	// ctx outlives requests and bounds background runs.
	ctx context.Context
}

func NewHandlers(ctx context.Context, runner Runner, registry *runs.Registry, sinks SinkFactory, baseURLTemplate string, logger *slog.Logger) *Handlers {
	if sinks == nil {
		sinks = func(string) sink.Sink { return nil }
	}
	return &Handlers{
		runner:          runner,
		registry:        registry,
		sinks:           sinks,
		baseURLTemplate: baseURLTemplate,
		logger:          logger.With("component", "api"),
		ctx:             ctx,
	}
}

// Routes mounts the health check and the /api/v1 endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", h.Scrape)
		r.Post("/runs", h.CreateRun)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{runID}", h.GetRun)
		r.Get("/stats", h.GetStats)
	})
}

// Wait blocks until all background runs have finished.
func (h *Handlers) Wait() {
	h.wg.Wait()
}

// ScrapeRequest is the body accepted by both scrape endpoints.
type ScrapeRequest struct {
	Records []RecordInput `json:"records"`
}

type RecordInput struct {
	SKU string `json:"sku"`
	URL string `json:"url"`
}

// ScrapeResponse is returned by the synchronous endpoint.
type ScrapeResponse struct {
	RunID    string           `json:"run_id"`
	Outcomes []models.Outcome `json:"outcomes"`
	Summary  models.Summary   `json:"summary"`
}

// CreateRunResponse represents the run creation response
type CreateRunResponse struct {
	RunID   string      `json:"run_id"`
	Status  runs.Status `json:"status"`
	Message string      `json:"message"`
}

// Scrape runs the batch inside the request and returns every outcome.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.decodeRecords(w, r)
	if !ok {
		return
	}

	run := h.registry.Create(len(recs))
	outcomes, err := h.execute(r.Context(), run.ID, recs)
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "run aborted: "+err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, ScrapeResponse{
		RunID:    run.ID,
		Outcomes: outcomes,
		Summary:  models.Summarize(outcomes),
	})
}

// CreateRun starts the batch in the background and returns its ID.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.decodeRecords(w, r)
	if !ok {
		return
	}

	run := h.registry.Create(len(recs))
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.execute(h.ctx, run.ID, recs)
	}()

	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{
		RunID:   run.ID,
		Status:  run.Status,
		Message: "Run accepted",
	})
}

// GetRun handles run status retrieval
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, exists := h.registry.Get(runID)
	if !exists {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.GetStats()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": stats[string(runs.StatusRunning)],
		"pending": stats[string(runs.StatusPending)],
	})
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.registry.GetStats())
}

func (h *Handlers) decodeRecords(w http.ResponseWriter, r *http.Request) ([]models.ProductRecord, bool) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if len(req.Records) == 0 {
		h.respondError(w, http.StatusBadRequest, "records are required")
		return nil, false
	}

	raws := make([]records.Raw, len(req.Records))
	for i, in := range req.Records {
		raws[i] = records.Raw{Row: i + 1, SKU: in.SKU, URL: in.URL}
	}

	recs, err := records.Build(raws, h.baseURLTemplate)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return recs, true
}

func (h *Handlers) execute(ctx context.Context, runID string, recs []models.ProductRecord) ([]models.Outcome, error) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	logger := h.logger.With("run_id", runID)
	h.registry.Start(runID)
	logger.Info("run started", "records", len(recs))

	outcomes, err := h.runner.Run(ctx, recs)
	if err != nil {
		logger.Error("run aborted", "error", err, "completed", len(outcomes))
		h.registry.Fail(runID, outcomes, err)
		return outcomes, err
	}

	if s := h.sinks(runID); s != nil {
		// Publishing is best effort; the run already has its outcomes.
		if err := s.Write(context.WithoutCancel(ctx), outcomes); err != nil {
			logger.Error("failed to publish outcomes", "error", err)
		}
	}

	h.registry.Complete(runID, outcomes)
	summary := models.Summarize(outcomes)
	logger.Info("run completed",
		"total", summary.Total,
		"ok", summary.OK,
		"not_available", summary.NotAvailable,
		"errors", summary.Errors,
	)
	return outcomes, nil
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
