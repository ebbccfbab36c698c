package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/repository"
	"github.com/nomadica/circuit-sync/internal/syncer"
)

// SourceHandler exposes operator endpoints for external source
// configuration and manual sync triggers.
type SourceHandler struct {
	Sources    *repository.SourceRepo
	Departures *repository.DepartureRepo
	Engine     *syncer.Orchestrator
}

type sourceBody struct {
	CircuitID   uint64            `json:"circuit_id"`
	DepartureID uint64            `json:"departure_id"`
	URL         string            `json:"url"`
	Kind        string            `json:"kind"`
	Frequency   string            `json:"frequency"`
	Rules       map[string]string `json:"rules"`
	Active      *bool             `json:"active"`
}

func (b sourceBody) validate() string {
	if !model.ValidKind(b.Kind) {
		return "kind must be one of web_scraping, api, manual"
	}
	if !model.ValidFrequency(b.Frequency) {
		return "frequency must be one of hourly, daily, weekly, manual"
	}
	if b.Kind != model.SourceManual && strings.TrimSpace(b.URL) == "" {
		return "url is required for web_scraping and api sources"
	}
	if b.CircuitID == 0 || b.DepartureID == 0 {
		return "circuit_id and departure_id are required"
	}
	return ""
}

// Create handles POST /v1/sources.
func (h *SourceHandler) Create(c echo.Context) error {
	var body sourceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	ctx := c.Request().Context()
	dep, err := h.Departures.GetByID(ctx, body.DepartureID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "departure not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	if dep.CircuitID != body.CircuitID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "departure does not belong to circuit"})
	}

	src := &model.ExternalSource{
		CircuitID:   body.CircuitID,
		DepartureID: body.DepartureID,
		URL:         strings.TrimSpace(body.URL),
		Kind:        body.Kind,
		Frequency:   body.Frequency,
		Rules:       body.Rules,
		Active:      body.Active == nil || *body.Active,
	}
	if err := h.Sources.Create(ctx, src); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "circuit already has a source"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create source"})
	}
	return c.JSON(http.StatusCreated, src)
}

// List handles GET /v1/sources. The response includes the outcome
// fields so the operator can spot sources needing attention.
func (h *SourceHandler) List(c echo.Context) error {
	srcs, err := h.Sources.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, srcs)
}

// Get handles GET /v1/sources/:id.
func (h *SourceHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	src, err := h.Sources.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, src)
}

// Update handles PUT /v1/sources/:id, rewriting the operator-owned
// fields only; outcome fields stay with the orchestrator.
func (h *SourceHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body sourceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	src, err := h.Sources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}

	if body.CircuitID == 0 {
		body.CircuitID = src.CircuitID
	}
	if body.DepartureID == 0 {
		body.DepartureID = src.DepartureID
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	if body.CircuitID != src.CircuitID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "circuit_id cannot change"})
	}

	src.DepartureID = body.DepartureID
	src.URL = strings.TrimSpace(body.URL)
	src.Kind = body.Kind
	src.Frequency = body.Frequency
	src.Rules = body.Rules
	if body.Active != nil {
		src.Active = *body.Active
	}
	if err := h.Sources.Update(ctx, src); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, src)
}

// Delete handles DELETE /v1/sources/:id.
func (h *SourceHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.Sources.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// TriggerSync handles POST /v1/sources/:id/sync: an operator-initiated
// re-check. It runs the exact same state machine as a scheduled cycle,
// synchronously, and returns the outcome instead of only persisting it.
func (h *SourceHandler) TriggerSync(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	src, err := h.Sources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}

	if src.Kind == model.SourceManual {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "manual sources are not fetched; update the departure directly"})
	}

	outcome := h.Engine.SyncSource(ctx, src)
	return c.JSON(http.StatusOK, outcome)
}
