package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportRollWritesFile(t *testing.T) {
	env := newTestEnvironment(t)
	roll := startTestRoll(t, env.handler)
	performJSON(t, env.handler, http.MethodPost, "/rolls/"+roll.RollID+"/frames", map[string]any{"voice_transcript": `He said "go"`})

	recorder := performJSON(t, env.handler, http.MethodPost, "/rolls/"+roll.RollID+"/export?format=csv", nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response exportResponse
	decodeJSON(t, recorder, &response)
	if response.Format != "csv" || response.Frames != 1 {
		t.Fatalf("unexpected export response %#v", response)
	}
	if filepath.Dir(response.Path) != env.exportDir || !strings.HasPrefix(response.Filename, "roll-"+roll.RollID+"-") {
		t.Fatalf("unexpected export location %#v", response)
	}
	content, err := os.ReadFile(response.Path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.Contains(string(content), `"He said ""go"""`) {
		t.Fatalf("expected escaped transcript in %q", string(content))
	}
}

func TestExportRollErrors(t *testing.T) {
	env := newTestEnvironment(t)
	roll := startTestRoll(t, env.handler)

	if code := performJSON(t, env.handler, http.MethodPost, "/rolls/"+roll.RollID+"/export?format=pdf", nil).Code; code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", code)
	}
	if code := performJSON(t, env.handler, http.MethodPost, "/rolls/missing/export", nil).Code; code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown roll, got %d", code)
	}
	if code := performJSON(t, env.handler, http.MethodPost, "/rolls/"+roll.RollID+"/export", nil).Code; code != http.StatusCreated {
		t.Fatalf("expected default json export to succeed, got %d", code)
	}
}
