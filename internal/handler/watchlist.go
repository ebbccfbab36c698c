package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/repository"
)

// WatchlistHandler exposes the agency watchlist endpoints. An agency
// opts in per circuit and toggles its three notify flags independently;
// flag edits take effect from the next dispatched event.
type WatchlistHandler struct {
	Watchlists *repository.WatchlistRepo
	Circuits   *repository.CircuitRepo
}

type watchlistBody struct {
	CircuitID            uint64 `json:"circuit_id"`
	NotifyOnBooking      *bool  `json:"notify_on_booking"`
	NotifyOnAvailability *bool  `json:"notify_on_availability_change"`
	NotifyOnPriceChange  *bool  `json:"notify_on_price_change"`
}

func agencyID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("agencyID"), 10, 64)
}

// Subscribe handles POST /v1/agencies/:agencyID/watchlist.
func (h *WatchlistHandler) Subscribe(c echo.Context) error {
	aid, err := agencyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid agency id"})
	}
	var body watchlistBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.CircuitID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "circuit_id is required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Circuits.GetByID(ctx, body.CircuitID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "circuit not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}

	sub := &model.WatchlistSubscription{
		AgencyID:             aid,
		CircuitID:            body.CircuitID,
		NotifyOnBooking:      body.NotifyOnBooking != nil && *body.NotifyOnBooking,
		NotifyOnAvailability: body.NotifyOnAvailability == nil || *body.NotifyOnAvailability,
		NotifyOnPriceChange:  body.NotifyOnPriceChange != nil && *body.NotifyOnPriceChange,
	}
	if err := h.Watchlists.Subscribe(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "circuit already on watchlist"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not subscribe"})
	}
	return c.JSON(http.StatusCreated, sub)
}

// List handles GET /v1/agencies/:agencyID/watchlist.
func (h *WatchlistHandler) List(c echo.Context) error {
	aid, err := agencyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid agency id"})
	}
	subs, err := h.Watchlists.ListByAgency(c.Request().Context(), aid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, subs)
}

// UpdateFlags handles PATCH /v1/agencies/:agencyID/watchlist/:circuitID.
// Absent flags keep their current value.
func (h *WatchlistHandler) UpdateFlags(c echo.Context) error {
	aid, err := agencyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid agency id"})
	}
	cid, err := strconv.ParseUint(c.Param("circuitID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid circuit id"})
	}
	var body watchlistBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	subs, err := h.Watchlists.ListByAgency(ctx, aid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	var cur *model.WatchlistSubscription
	for i := range subs {
		if subs[i].CircuitID == cid {
			cur = &subs[i]
			break
		}
	}
	if cur == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "subscription not found"})
	}

	booking := cur.NotifyOnBooking
	availability := cur.NotifyOnAvailability
	price := cur.NotifyOnPriceChange
	if body.NotifyOnBooking != nil {
		booking = *body.NotifyOnBooking
	}
	if body.NotifyOnAvailability != nil {
		availability = *body.NotifyOnAvailability
	}
	if body.NotifyOnPriceChange != nil {
		price = *body.NotifyOnPriceChange
	}
	if err := h.Watchlists.UpdateFlags(ctx, aid, cid, booking, availability, price); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "subscription not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}
	cur.NotifyOnBooking = booking
	cur.NotifyOnAvailability = availability
	cur.NotifyOnPriceChange = price
	return c.JSON(http.StatusOK, cur)
}

// Unsubscribe handles DELETE /v1/agencies/:agencyID/watchlist/:circuitID.
func (h *WatchlistHandler) Unsubscribe(c echo.Context) error {
	aid, err := agencyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid agency id"})
	}
	cid, err := strconv.ParseUint(c.Param("circuitID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid circuit id"})
	}
	if err := h.Watchlists.Unsubscribe(c.Request().Context(), aid, cid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "subscription not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "unsubscribe failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
