package logbook

import (
	"errors"
	"testing"
	"time"
)

func TestInsertRollRoundTripsWithSecondPrecision(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)
	startTime := time.Date(2024, time.March, 9, 14, 30, 15, 750000000, time.UTC)

	roll := Roll{
		ID:        mustRollID(t, "roll-1"),
		FilmStock: "Kodak Portra 400",
		ISO:       400,
		Camera:    "Leica M6",
		Lens:      "50mm Summicron",
		Notes:     stringPointer("pushed one stop"),
		StartTime: startTime,
	}
	if err := repository.InsertRoll(t.Context(), roll); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}

	fetched, found, err := repository.FetchRoll(t.Context(), roll.ID)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if !found {
		t.Fatalf("expected roll to be found")
	}
	if fetched.ID != roll.ID || fetched.FilmStock != roll.FilmStock || fetched.ISO != roll.ISO ||
		fetched.Camera != roll.Camera || fetched.Lens != roll.Lens {
		t.Fatalf("unexpected roll fields: %#v", fetched)
	}
	if fetched.Notes == nil || *fetched.Notes != "pushed one stop" {
		t.Fatalf("unexpected notes: %#v", fetched.Notes)
	}
	if !fetched.StartTime.Equal(startTime.Truncate(time.Second)) {
		t.Fatalf("expected start time truncated to seconds, got %s", fetched.StartTime)
	}
	if fetched.StartTime.Location() != testLocation {
		t.Fatalf("expected start time in codec location, got %s", fetched.StartTime.Location())
	}
	if fetched.EndTime != nil || !fetched.IsActive() {
		t.Fatalf("expected new roll to be active")
	}
}

func TestInsertRollStoresEmptyNotesAsAbsent(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)
	roll := Roll{
		ID:        mustRollID(t, "roll-1"),
		FilmStock: "Ilford HP5",
		ISO:       400,
		Camera:    "Nikon FM2",
		Lens:      "35mm",
		Notes:     stringPointer(""),
		StartTime: time.Now(),
	}
	if err := repository.InsertRoll(t.Context(), roll); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}

	var record RollRecord
	if err := store.db.Where("roll_id = ?", "roll-1").Take(&record).Error; err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if record.Notes != nil {
		t.Fatalf("expected NULL notes column, got %q", *record.Notes)
	}
}

func TestInsertRollRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)
	mustInsertRoll(t, repository, "roll-1", time.Now())

	err := repository.InsertRoll(t.Context(), Roll{
		ID:        mustRollID(t, "roll-1"),
		FilmStock: "Fuji Superia",
		ISO:       200,
		Camera:    "Olympus XA",
		Lens:      "35mm",
		StartTime: time.Now(),
	})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "logbook.insert_roll.constraint_violation" {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestInsertRollValidation(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)
	valid := Roll{
		ID:        mustRollID(t, "roll-1"),
		FilmStock: "Kodak Tri-X",
		ISO:       400,
		Camera:    "Pentax K1000",
		Lens:      "50mm",
		StartTime: time.Now(),
	}

	testCases := []struct {
		name   string
		mutate func(*Roll)
	}{
		{name: "missing-id", mutate: func(roll *Roll) { roll.ID = "" }},
		{name: "blank-film-stock", mutate: func(roll *Roll) { roll.FilmStock = "  " }},
		{name: "blank-camera", mutate: func(roll *Roll) { roll.Camera = "" }},
		{name: "blank-lens", mutate: func(roll *Roll) { roll.Lens = "" }},
		{name: "zero-iso", mutate: func(roll *Roll) { roll.ISO = 0 }},
		{name: "negative-iso", mutate: func(roll *Roll) { roll.ISO = -100 }},
		{name: "missing-start", mutate: func(roll *Roll) { roll.StartTime = time.Time{} }},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			roll := valid
			testCase.mutate(&roll)
			if err := repository.InsertRoll(t.Context(), roll); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestEndRollLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)
	roll := mustInsertRoll(t, repository, "roll-1", time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC))

	firstEnd := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)
	secondEnd := time.Date(2024, time.May, 3, 18, 45, 30, 0, time.UTC)

	for _, endTime := range []time.Time{firstEnd, secondEnd} {
		affected, err := repository.EndRoll(t.Context(), roll.ID, endTime)
		if err != nil {
			t.Fatalf("unexpected end error: %v", err)
		}
		if affected != 1 {
			t.Fatalf("expected one affected row, got %d", affected)
		}
	}

	fetched, found, err := repository.FetchRoll(t.Context(), roll.ID)
	if err != nil || !found {
		t.Fatalf("expected roll, found=%v err=%v", found, err)
	}
	if fetched.IsActive() {
		t.Fatalf("expected ended roll to be inactive")
	}
	if !fetched.EndTime.Equal(secondEnd) {
		t.Fatalf("expected last end time %s, got %s", secondEnd, fetched.EndTime)
	}
}

func TestEndRollUnknownIDIsSilentNoOp(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)

	affected, err := repository.EndRoll(t.Context(), mustRollID(t, "missing"), time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected zero affected rows, got %d", affected)
	}
}

func TestFetchRollsOrdersByStartTimeDescending(t *testing.T) {
	store := newTestStore(t)
	repository := NewRollRepository(store)
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	mustInsertRoll(t, repository, "roll-middle", base.Add(24*time.Hour))
	mustInsertRoll(t, repository, "roll-oldest", base)
	mustInsertRoll(t, repository, "roll-newest", base.Add(48*time.Hour))

	rolls, err := repository.FetchRolls(t.Context())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	expected := []RollID{"roll-newest", "roll-middle", "roll-oldest"}
	if len(rolls) != len(expected) {
		t.Fatalf("expected %d rolls, got %d", len(expected), len(rolls))
	}
	for index, id := range expected {
		if rolls[index].ID != id {
			t.Fatalf("unexpected order at %d: got %s want %s", index, rolls[index].ID, id)
		}
	}
}

func TestFetchRollsEmptyIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	rolls, err := NewRollRepository(store).FetchRolls(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rolls == nil || len(rolls) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rolls)
	}
}

func TestFetchRollNotFound(t *testing.T) {
	store := newTestStore(t)
	roll, found, err := NewRollRepository(store).FetchRoll(t.Context(), mustRollID(t, "missing"))
	if err != nil {
		t.Fatalf("absence should not be an error: %v", err)
	}
	if found {
		t.Fatalf("expected not found, got %#v", roll)
	}
}

func TestFetchRollsReportsCorruptTimestamps(t *testing.T) {
	store := newTestStore(t)
	record := RollRecord{RollID: "roll-1", FilmStock: "HP5", ISO: 400, Camera: "FM2", Lens: "35mm", StartTime: "yesterday"}
	if err := store.db.Create(&record).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	rolls, err := NewRollRepository(store).FetchRolls(t.Context())
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected corrupt record error, got %v", err)
	}
	if len(rolls) != 0 {
		t.Fatalf("expected no rolls on decode failure")
	}
}
