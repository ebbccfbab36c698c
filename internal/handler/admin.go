package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/repository"
)

// AdminHandler exposes minimal record creation for circuits and
// departures. The full editing screens live elsewhere; these endpoints
// exist so the engine can be operated and seeded over its own API.
type AdminHandler struct {
	Circuits   *repository.CircuitRepo
	Departures *repository.DepartureRepo
}

// CreateCircuit handles POST /v1/circuits.
func (h *AdminHandler) CreateCircuit(c echo.Context) error {
	var body struct {
		Title          string `json:"title"`
		BasePriceCents uint32 `json:"base_price_cents"`
		DurationDays   uint32 `json:"duration_days"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}
	if body.DurationDays == 0 {
		body.DurationDays = 1
	}
	circuit := &model.Circuit{
		Title:          title,
		BasePriceCents: body.BasePriceCents,
		DurationDays:   body.DurationDays,
	}
	if err := h.Circuits.Create(c.Request().Context(), circuit); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create circuit"})
	}
	return c.JSON(http.StatusCreated, circuit)
}

// CreateDeparture handles POST /v1/circuits/:id/departures.
func (h *AdminHandler) CreateDeparture(c echo.Context) error {
	cid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		StartDate  string  `json:"start_date"`
		TotalSeats int     `json:"total_seats"`
		PriceCents *uint32 `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.TotalSeats < 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "total_seats must be >= 1"})
	}
	start, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
	}

	ctx := c.Request().Context()
	if _, err := h.Circuits.GetByID(ctx, cid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "circuit not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}

	dep := &model.Departure{
		CircuitID:  cid,
		StartDate:  start,
		TotalSeats: body.TotalSeats,
		PriceCents: body.PriceCents,
		Status:     model.DepartureOpen,
	}
	if err := h.Departures.Create(ctx, dep); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create departure"})
	}
	return c.JSON(http.StatusCreated, dep)
}
