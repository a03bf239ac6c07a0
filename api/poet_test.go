package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"poetloop/domain"
)

func TestEvolvePoetAndReads(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, domain.AssistantMessage{
		Content: "POEM: the ashtray fills\nTITLE: Monday\nNEXT: write about rain",
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/poet/evolve", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.EvolvePoet(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var cycle domain.PoemCycle
	if err := json.Unmarshal(rec.Body.Bytes(), &cycle); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cycle.CycleNumber != 1 || cycle.Title != "Monday" {
		t.Fatalf("unexpected cycle: %+v", cycle)
	}
	if cycle.CreatedAt != 12345 {
		t.Errorf("expected handler clock timestamp, got %d", cycle.CreatedAt)
	}

	// Current poem matches.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/current", nil), rec)
	if err := h.GetCurrentPoem(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var current domain.PoemCycle
	json.Unmarshal(rec.Body.Bytes(), &current)
	if current.CycleNumber != 1 || current.Poem != cycle.Poem {
		t.Errorf("current poem mismatch: %+v", current)
	}

	// State advanced.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/state", nil), rec)
	if err := h.GetPoetState(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var state domain.PoetState
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state.CurrentCycle != 1 || state.TotalPoems != 1 {
		t.Errorf("unexpected state: %+v", state)
	}

	// By cycle number.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/cycles/1", nil), rec)
	c.SetParamNames("n")
	c.SetParamValues("1")
	if err := h.GetPoemByCycle(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Raw response survives.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/cycles/1/raw", nil), rec)
	c.SetParamNames("n")
	c.SetParamValues("1")
	if err := h.GetRawResponse(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var raw map[string]string
	json.Unmarshal(rec.Body.Bytes(), &raw)
	if raw["raw_response"] == "" {
		t.Error("expected stored raw response")
	}
}

func TestEvolvePoetGenerationFailure(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t) // no scripted replies, generation fails

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/poet/evolve", nil), rec)

	if err := h.EvolvePoet(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	// Nothing committed.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/state", nil), rec)
	if err := h.GetPoetState(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetCurrentPoemEmpty(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/current", nil), rec)

	if err := h.GetCurrentPoem(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetPoemByCycleInvalidNumber(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/cycles/x", nil), rec)
	c.SetParamNames("n")
	c.SetParamValues("x")

	if err := h.GetPoemByCycle(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListPoems(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t,
		domain.AssistantMessage{Content: "POEM: one\nTITLE: One\nNEXT: write two"},
		domain.AssistantMessage{Content: "POEM: two\nTITLE: Two\nNEXT: write three"},
	)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/poet/evolve", nil), rec)
		if err := h.EvolvePoet(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("evolve %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/poet/cycles", nil), rec)
	if err := h.ListPoems(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Cycles []domain.PoemCycle `json:"cycles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(resp.Cycles))
	}
	if resp.Cycles[0].CycleNumber != 1 || resp.Cycles[1].CycleNumber != 2 {
		t.Errorf("cycles out of order: %+v", resp.Cycles)
	}
}

func TestResetPoet(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, domain.AssistantMessage{
		Content: "POEM: p\nTITLE: t\nNEXT: write on",
	})

	// Reset before any cycles reports false.
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/poet/reset", nil), rec)
	if err := h.ResetPoet(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["cleared"] {
		t.Error("expected cleared=false on empty store")
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/poet/evolve", nil), rec)
	if err := h.EvolvePoet(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/poet/reset", nil), rec)
	if err := h.ResetPoet(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["cleared"] {
		t.Error("expected cleared=true")
	}
}
