package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRollEventsStreamEmitsFrameLoggedEvents(t *testing.T) {
	env := newTestEnvironment(t)
	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)

	createResp, err := http.Post(server.URL+"/rolls", "application/json",
		bytes.NewBufferString(`{"film_stock":"Ilford HP5","iso":400,"camera":"Nikon FM2","lens":"35mm"}`))
	if err != nil {
		t.Fatalf("failed to create roll: %v", err)
	}
	var roll rollPayload
	if err := json.NewDecoder(createResp.Body).Decode(&roll); err != nil {
		t.Fatalf("failed to decode roll: %v", err)
	}
	_ = createResp.Body.Close()

	streamRequest, err := http.NewRequest(http.MethodGet, server.URL+"/rolls/"+roll.RollID+"/events", http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if !strings.HasPrefix(streamResp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("unexpected content type %q", streamResp.Header.Get("Content-Type"))
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.dispatcher.SubscriberCount(roll.RollID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	frameResp, err := http.Post(server.URL+"/rolls/"+roll.RollID+"/frames", "application/json",
		bytes.NewBufferString(`{"shutter":"1/250","aperture":"f/11"}`))
	if err != nil {
		t.Fatalf("frame request failed: %v", err)
	}
	_ = frameResp.Body.Close()
	if frameResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected frame status: %d", frameResp.StatusCode)
	}

	streamReader := bufio.NewReader(streamResp.Body)
	currentEventType := ""
	timeout := time.After(5 * time.Second)
	type readResult struct {
		line string
		err  error
	}
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := streamReader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-timeout:
			t.Fatal("timed out waiting for realtime event")
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != RealtimeEventFrameLogged {
				continue
			}
			var payload realtimeEventPayload
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &payload); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if payload.RollID != roll.RollID || payload.FrameNumber != 1 || payload.Source != realtimeSourceBackend {
				t.Fatalf("unexpected event payload %#v", payload)
			}
			return
		}
	}
}
