package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return stderrors.New("connection refused") }

	tests := []struct {
		name     string
		database PingFunc
		redis    PingFunc
		want     HealthResponse
	}{
		{"memory mode", nil, nil, HealthResponse{Status: "healthy", Database: "disabled", Redis: "disabled"}},
		{"all up", ok, ok, HealthResponse{Status: "healthy", Database: "connected", Redis: "connected"}},
		{"redis down", ok, down, HealthResponse{Status: "degraded", Database: "connected", Redis: "disconnected"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.database, tt.redis).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			got.Timestamp = ""
			if got != tt.want {
				t.Errorf("health = %+v, want %+v", got, tt.want)
			}
		})
	}
}
