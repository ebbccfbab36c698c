// This file defines the public browse API: circuits, their departures
// and last-known availability. Figures shown here come from the stored
// departure rows, so after a failed sync a stale-but-previously-valid
// figure is shown in preference to no figure at all. Sync errors are
// never exposed on these routes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/repository"
)

// PublicHandler aggregates the repositories needed for unauthenticated
// browsing. Responses carry only safe fields.
type PublicHandler struct {
	Circuits   *repository.CircuitRepo
	Departures *repository.DepartureRepo
}

// PublicCircuit is a circuit as exposed on the public API.
type PublicCircuit struct {
	ID             uint64 `json:"id"`
	Title          string `json:"title"`
	BasePriceCents uint32 `json:"base_price_cents"`
	DurationDays   uint32 `json:"duration_days"`
}

// PublicDeparture is a departure with its current availability view.
type PublicDeparture struct {
	ID             uint64    `json:"id"`
	StartDate      time.Time `json:"start_date"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Status         string    `json:"status"`
	PriceCents     uint32    `json:"price_cents"`
}

func publicDeparture(d model.Departure, basePrice uint32) PublicDeparture {
	price := basePrice
	if d.PriceCents != nil {
		price = *d.PriceCents
	}
	return PublicDeparture{
		ID:             d.ID,
		StartDate:      d.StartDate,
		TotalSeats:     d.TotalSeats,
		AvailableSeats: d.AvailableSeats(),
		Status:         d.Status,
		PriceCents:     price,
	}
}

// GetCircuits handles GET /v1/circuits.
func (h *PublicHandler) GetCircuits(c echo.Context) error {
	circuits, err := h.Circuits.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	out := make([]PublicCircuit, 0, len(circuits))
	for _, ci := range circuits {
		out = append(out, PublicCircuit{
			ID:             ci.ID,
			Title:          ci.Title,
			BasePriceCents: ci.BasePriceCents,
			DurationDays:   ci.DurationDays,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// GetCircuitDepartures handles GET /v1/circuits/:id/departures.
func (h *PublicHandler) GetCircuitDepartures(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	circuit, err := h.Circuits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "circuit not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	deps, err := h.Departures.ListByCircuit(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	out := make([]PublicDeparture, 0, len(deps))
	for _, d := range deps {
		out = append(out, publicDeparture(d, circuit.BasePriceCents))
	}
	return c.JSON(http.StatusOK, out)
}

// GetDeparture handles GET /v1/departures/:id.
func (h *PublicHandler) GetDeparture(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	dep, err := h.Departures.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "departure not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	circuit, err := h.Circuits.GetByID(ctx, dep.CircuitID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, publicDeparture(*dep, circuit.BasePriceCents))
}
