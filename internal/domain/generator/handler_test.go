package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Entity(t *testing.T) {
	g, _ := newTestGenerator(t)
	h := NewHandler(g)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/?frequency=12", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("17")

	require.NoError(t, h.entity(g.GenerateDiagnosisFlow)(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var gf GeneratedFlow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gf))
	assert.Equal(t, "Flow E11 - Type 2 diabetes", gf.Name)
	assert.Equal(t, 12, gf.Frequency)
}

func TestHandler_BadFrequency(t *testing.T) {
	g, _ := newTestGenerator(t)
	h := NewHandler(g)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/?frequency=-2", nil), httptest.NewRecorder())

	err := h.volume(g.GenerateLaboratoryFlow)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestHandler_Comprehensive(t *testing.T) {
	g, _ := newTestGenerator(t)
	h := NewHandler(g)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, h.Comprehensive(c))
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 9, report.TotalCreated)
}
