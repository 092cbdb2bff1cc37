package logbook

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestService(t *testing.T, ids []string, clock func() time.Time) (*Service, *Store) {
	t.Helper()
	store := newTestStore(t)
	service, err := NewService(ServiceConfig{
		Store:      store,
		Clock:      clock,
		IDProvider: &staticIDProvider{ids: ids},
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, store
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceConfig{IDProvider: NewUUIDProvider()}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewService(ServiceConfig{Store: NewStore(StoreConfig{})}); err == nil {
		t.Fatalf("expected error without id provider")
	}
}

func TestStartRollCreatesActiveRoll(t *testing.T) {
	now := time.Date(2024, time.April, 20, 10, 15, 30, 500, time.UTC)
	service, _ := newTestService(t, []string{"roll-abc"}, func() time.Time { return now })

	roll, err := service.StartRoll(t.Context(), RollDraft{
		FilmStock: "Kodak Portra 400",
		ISO:       400,
		Camera:    "Leica M6",
		Lens:      "50mm Summicron",
	})
	if err != nil {
		t.Fatalf("start roll failed: %v", err)
	}
	if roll.ID != "roll-abc" || roll.Notes != nil {
		t.Fatalf("unexpected roll %#v", roll)
	}

	rolls, err := service.Rolls().FetchRolls(t.Context())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(rolls) != 1 {
		t.Fatalf("expected one roll, got %d", len(rolls))
	}
	if !rolls[0].IsActive() {
		t.Fatalf("expected new roll to be active")
	}
	if rolls[0].FilmStock != "Kodak Portra 400" || rolls[0].ISO != 400 || rolls[0].Camera != "Leica M6" || rolls[0].Lens != "50mm Summicron" {
		t.Fatalf("unexpected stored roll %#v", rolls[0])
	}
	if !rolls[0].StartTime.Equal(now.Truncate(time.Second)) || !roll.StartTime.Equal(rolls[0].StartTime) {
		t.Fatalf("unexpected start time %s", rolls[0].StartTime)
	}
}

func TestStartRollRejectsInvalidDraft(t *testing.T) {
	service, _ := newTestService(t, []string{"roll-1"}, time.Now)
	_, err := service.StartRoll(t.Context(), RollDraft{FilmStock: "HP5", ISO: 0, Camera: "FM2", Lens: "35mm"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStartRollSurfacesIDFailure(t *testing.T) {
	service, _ := newTestService(t, nil, time.Now)
	_, err := service.StartRoll(t.Context(), RollDraft{FilmStock: "HP5", ISO: 400, Camera: "FM2", Lens: "35mm"})
	if !errors.Is(err, errExhaustedIDs) {
		t.Fatalf("expected id provider failure, got %v", err)
	}
}

func TestEndRollUsesClock(t *testing.T) {
	current := time.Date(2024, time.April, 20, 10, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, []string{"roll-1"}, func() time.Time { return current })
	roll, err := service.StartRoll(t.Context(), RollDraft{FilmStock: "HP5", ISO: 400, Camera: "FM2", Lens: "35mm"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	current = current.Add(3 * time.Hour)
	ended, err := service.EndRoll(t.Context(), roll.ID)
	if err != nil || !ended {
		t.Fatalf("expected roll to end, ended=%v err=%v", ended, err)
	}
	fetched, _, err := service.Rolls().FetchRoll(t.Context(), roll.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if fetched.EndTime == nil || !fetched.EndTime.Equal(current) {
		t.Fatalf("unexpected end time %v", fetched.EndTime)
	}

	ended, err = service.EndRoll(t.Context(), "missing")
	if err != nil || ended {
		t.Fatalf("expected silent no-op for unknown roll, ended=%v err=%v", ended, err)
	}
}

func TestLogFrameMapsCollaboratorInputs(t *testing.T) {
	now := time.Date(2024, time.April, 20, 10, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, []string{"roll-1"}, func() time.Time { return now })
	roll, err := service.StartRoll(t.Context(), RollDraft{FilmStock: "HP5", ISO: 400, Camera: "FM2", Lens: "35mm"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	captured := now.Add(5 * time.Minute)
	first, err := service.LogFrame(t.Context(), roll.ID, FrameCapture{
		CapturedAt:      captured,
		Location:        &LocationFix{Latitude: 40.7, Longitude: -74.0},
		VoiceTranscript: "  corner of Grand and Mott  ",
		Keywords:        []string{" street ", "", "night"},
		Shutter:         "1/60",
		Aperture:        "",
	})
	if err != nil {
		t.Fatalf("log frame failed: %v", err)
	}
	if first.FrameNumber != 1 {
		t.Fatalf("expected frame 1, got %d", first.FrameNumber)
	}
	if first.Latitude == nil || *first.Latitude != 40.7 || first.Longitude == nil || *first.Longitude != -74.0 {
		t.Fatalf("unexpected location %#v %#v", first.Latitude, first.Longitude)
	}
	if first.VoiceNoteRaw == nil || *first.VoiceNoteRaw != "corner of Grand and Mott" {
		t.Fatalf("unexpected transcript %#v", first.VoiceNoteRaw)
	}
	if first.VoiceNoteParsed != nil {
		t.Fatalf("parsed voice note should be absent")
	}
	if first.Aperture != nil || first.Shutter == nil || *first.Shutter != "1/60" {
		t.Fatalf("unexpected exposure fields %#v", first)
	}
	if !reflect.DeepEqual(first.Keywords, []string{"street", "night"}) {
		t.Fatalf("unexpected keywords %#v", first.Keywords)
	}
	if !first.Timestamp.Equal(captured) {
		t.Fatalf("unexpected timestamp %s", first.Timestamp)
	}

	second, err := service.LogFrame(t.Context(), roll.ID, FrameCapture{})
	if err != nil {
		t.Fatalf("second log failed: %v", err)
	}
	if second.FrameNumber != 2 || second.Latitude != nil || !second.Timestamp.Equal(now) {
		t.Fatalf("unexpected second frame %#v", second)
	}
}

func TestServiceStatusReflectsStore(t *testing.T) {
	store := NewUnavailableStore(errors.New("permission denied"), nil)
	service, err := NewService(ServiceConfig{Store: store, IDProvider: NewUUIDProvider()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if service.Status().Available {
		t.Fatalf("expected unavailable status")
	}
	if _, err := service.StartRoll(t.Context(), RollDraft{FilmStock: "HP5", ISO: 400, Camera: "FM2", Lens: "35mm"}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected unavailable start, got %v", err)
	}
	if _, err := service.LogFrame(t.Context(), "roll-1", FrameCapture{}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected unavailable log, got %v", err)
	}
}

func TestUUIDProviderIssuesDistinctIDs(t *testing.T) {
	provider := NewUUIDProvider()
	first, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second || len(first) != 36 {
		t.Fatalf("unexpected ids %q %q", first, second)
	}
}
