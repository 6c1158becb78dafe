package db

import (
	"errors"
	"net/http"
	"testing"
)

func TestHealthResponse_Healthy(t *testing.T) {
	stats := &PoolStats{TotalConns: 5, IdleConns: 4, AcquiredConns: 1, MaxConns: 20, Healthy: true}

	status, body := healthResponse(nil, stats)
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}
	if _, ok := body["error"]; ok {
		t.Error("expected no error key on a healthy response")
	}
}

func TestHealthResponse_PingFailure(t *testing.T) {
	stats := &PoolStats{TotalConns: 5, MaxConns: 20, Healthy: true}

	status, body := healthResponse(errors.New("connection refused"), stats)
	if status != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", status)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("expected unhealthy status, got %v", body["status"])
	}
	if body["error"] != "connection refused" {
		t.Errorf("unexpected error %v", body["error"])
	}
	if stats.Healthy {
		t.Error("expected pool stats to be marked unhealthy")
	}
}
