package stepsync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_SyncFromFlows(t *testing.T) {
	fx := newFixture()
	fx.addFlow(t, "Cardio", node("Initial Consultation", "consultation", 35, 20))
	h := NewHandler(fx.sync)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	require.NoError(t, h.SyncFromFlows(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.TotalCreated)
	assert.Contains(t, res.Message, "1 steps created")
}

func TestHandler_SyncDiagnoses(t *testing.T) {
	fx := newFixture()
	h := NewHandler(fx.sync)

	e := echo.New()
	body := `[{"id":"7","code":"E11","display_name":"E11 - Type 2 diabetes"}]`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.SyncDiagnoses(e.NewContext(req, rec)))

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Created, 1)
	assert.Equal(t, "Diagnosis E11 - Type 2 diabetes", res.Created[0].Name)
}

func TestHandler_SyncDiagnoses_BadBody(t *testing.T) {
	h := NewHandler(newFixture().sync)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"not":"a list"`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.SyncDiagnoses(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
