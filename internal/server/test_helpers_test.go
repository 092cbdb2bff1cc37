package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/database"
	"github.com/MarcoPoloResearchLab/filmlog/internal/export"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type testEnvironment struct {
	handler    http.Handler
	service    *logbook.Service
	store      *logbook.Store
	dispatcher *RealtimeDispatcher
	exportDir  string
}

func newTestEnvironment(t *testing.T) testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(t.TempDir(), "filmlog.db")
	db, err := database.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	dates := codec.NewDateCodec(time.UTC)
	store := logbook.NewStore(logbook.StoreConfig{Database: db, Dates: dates, Logger: zap.NewNop()})
	t.Cleanup(func() {
		_ = store.Close()
	})
	return newEnvironmentForStore(t, store, dates)
}

func newEnvironmentForStore(t *testing.T, store *logbook.Store, dates *codec.DateCodec) testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service, err := logbook.NewService(logbook.ServiceConfig{
		Store:      store,
		IDProvider: logbook.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	exportDir := t.TempDir()
	exporter, err := export.NewExporter(export.Config{
		Rolls:     service.Rolls(),
		Frames:    service.Frames(),
		Directory: exportDir,
		Dates:     dates,
	})
	if err != nil {
		t.Fatalf("failed to build exporter: %v", err)
	}
	dispatcher := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		Logbook:           service,
		Exporter:          exporter,
		Realtime:          dispatcher,
		Logger:            zap.NewNop(),
		HeartbeatInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return testEnvironment{
		handler:    handler,
		service:    service,
		store:      store,
		dispatcher: dispatcher,
		exportDir:  exportDir,
	}
}

func performJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	request := httptest.NewRequest(method, target, &payload)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func startTestRoll(t *testing.T, handler http.Handler) rollPayload {
	t.Helper()
	recorder := performJSON(t, handler, http.MethodPost, "/rolls", map[string]any{
		"film_stock": "Kodak Portra 400",
		"iso":        400,
		"camera":     "Leica M6",
		"lens":       "50mm Summicron",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected roll creation, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var roll rollPayload
	decodeJSON(t, recorder, &roll)
	return roll
}
