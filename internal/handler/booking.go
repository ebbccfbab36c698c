package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nomadica/circuit-sync/internal/repository"
	"github.com/nomadica/circuit-sync/internal/syncer"
)

// BookingHandler feeds internal reservations into the engine. A booking
// recorded here raises a new_booking event straight into the dispatcher
// without going through fetch/extract/detect.
type BookingHandler struct {
	Engine *syncer.Orchestrator
}

// RecordBooking handles POST /v1/departures/:id/bookings. A negative
// seats value records a cancellation of previously booked seats.
func (h *BookingHandler) RecordBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body struct {
		Seats int `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.Seats == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "seats must be non-zero"})
	}

	dep, err := h.Engine.RecordInternalBooking(c.Request().Context(), id, body.Seats)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "departure not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "not enough seats"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not record booking"})
	}
	return c.JSON(http.StatusOK, dep)
}
