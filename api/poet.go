package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// EvolvePoet runs one evolution cycle and returns the committed poem.
// POST /v1/poet/evolve
func (h *Handler) EvolvePoet(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cycle, err := h.engine.Evolve(c.Request().Context(), h.now())
	if err != nil {
		log.Printf("ERROR: evolution failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, cycle)
}

// GetCurrentPoem returns the highest-numbered committed poem.
// GET /v1/poet/current
func (h *Handler) GetCurrentPoem(c echo.Context) error {
	poem, err := h.store.GetCurrentPoem(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to get current poem: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get current poem"})
	}
	if poem == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no poems yet"})
	}
	return c.JSON(http.StatusOK, poem)
}

// ListPoems returns every committed cycle in cycle order.
// GET /v1/poet/cycles
func (h *Handler) ListPoems(c echo.Context) error {
	poems, err := h.store.ListAllPoems(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to list poems: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list poems"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cycles": poems,
	})
}

// GetPoemByCycle returns the poem for one cycle number.
// GET /v1/poet/cycles/:n
func (h *Handler) GetPoemByCycle(c echo.Context) error {
	n, err := cycleNumber(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cycle number"})
	}

	poem, err := h.store.GetPoemByCycle(c.Request().Context(), n)
	if err != nil {
		log.Printf("ERROR: failed to get poem: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get poem"})
	}
	if poem == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "cycle not found"})
	}
	return c.JSON(http.StatusOK, poem)
}

// GetRawResponse returns the stored raw model output for one cycle.
// GET /v1/poet/cycles/:n/raw
func (h *Handler) GetRawResponse(c echo.Context) error {
	n, err := cycleNumber(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cycle number"})
	}

	raw, err := h.store.GetRawResponse(c.Request().Context(), n)
	if err != nil {
		log.Printf("ERROR: failed to get raw response: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get raw response"})
	}
	if raw == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "cycle not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"raw_response": *raw})
}

// GetPoetState returns the poet state singleton.
// GET /v1/poet/state
func (h *Handler) GetPoetState(c echo.Context) error {
	state, err := h.store.GetPoetState(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to get poet state: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get poet state"})
	}
	if state == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "poet not initialized"})
	}
	return c.JSON(http.StatusOK, state)
}

// ResetPoet clears all poem cycles and poet state.
// POST /v1/poet/reset
func (h *Handler) ResetPoet(c echo.Context) error {
	h.mu.Lock()
	cleared, err := h.engine.Reset(c.Request().Context())
	h.mu.Unlock()
	if err != nil {
		log.Printf("ERROR: failed to reset poet: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reset poet"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"cleared": cleared})
}

func cycleNumber(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("n"), 10, 64)
}
