package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

func TestEventDefinitions_CRUD(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	list, err := ListEventDefinitions(ctx, db)
	if err != nil || len(list) != 5 || list[0].ID != "evt-def-001" {
		t.Fatalf("list = %+v, err=%v", list, err)
	}

	byName, err := FindEventDefinitionByName(ctx, db, "Order Placed")
	if err != nil || byName.Code != "OP" {
		t.Fatalf("by name = %+v, err=%v", byName, err)
	}
	if _, err := FindEventDefinitionByName(ctx, db, "LR"); err == nil {
		t.Fatalf("lookup by name must not match a code")
	}

	dup := &domain.EventDefinition{ID: "x", Name: "Dup", Code: "PA", Description: "d"}
	if err := CreateEventDefinition(ctx, db, dup); !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	taken, err := EventCodeTaken(ctx, db, "PA", "")
	if err != nil || !taken {
		t.Fatalf("PA should be taken: %v %v", taken, err)
	}
	taken, _ = EventCodeTaken(ctx, db, "PA", "evt-def-001")
	if taken {
		t.Fatalf("own code must not count as taken")
	}

	d, _ := GetEventDefinition(ctx, db, "evt-def-003")
	d.Description = "changed"
	if err := SaveEventDefinition(ctx, db, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	d2, _ := GetEventDefinition(ctx, db, "evt-def-003")
	if d2.Description != "changed" {
		t.Fatalf("save not persisted: %+v", d2)
	}
	if err := SaveEventDefinition(ctx, db, &domain.EventDefinition{ID: "missing"}); err != ErrNotFound {
		t.Fatalf("save missing: %v", err)
	}

	if err := DeleteEventDefinition(ctx, db, "evt-def-003"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := DeleteEventDefinition(ctx, db, "evt-def-003"); err != ErrNotFound {
			t.Fatalf("delete #%d of absent id: %v", i, err)
		}
	}
}

func TestErrorDefinitions_StepsOrderedAndByCode(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	list, err := ListErrorDefinitions(ctx, db)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %d, err=%v", len(list), err)
	}
	for _, d := range list {
		for i, s := range d.SolutionSteps {
			if s.Order != i+1 {
				t.Fatalf("%s: step %d has order %d", d.ID, i, s.Order)
			}
		}
	}

	pa, err := ListErrorDefinitionsByCode(ctx, db, "PA")
	if err != nil || len(pa) != 1 || pa[0].ID != "err-def-002" {
		t.Fatalf("by code PA = %+v, err=%v", pa, err)
	}
	if none, _ := ListErrorDefinitionsByCode(ctx, db, "LR"); len(none) != 0 {
		t.Fatalf("expected no LR definitions, got %d", len(none))
	}

	// Replace steps in reverse order and read them back ordered by position.
	steps := []domain.SolutionStep{
		{ID: "r2", Description: "second", Order: 1},
		{ID: "r1", Description: "first", Order: 2},
	}
	if err := ReplaceSolutionSteps(ctx, db, "err-def-001", steps); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := GetErrorDefinition(ctx, db, "err-def-001")
	if err != nil || len(got.SolutionSteps) != 2 || got.SolutionSteps[0].ID != "r2" {
		t.Fatalf("after replace = %+v, err=%v", got, err)
	}

	got.Name = "Renamed"
	got.AssociatedEventCodes = []string{"OP", "LR"}
	if err := SaveErrorDefinition(ctx, db, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	lr, _ := ListErrorDefinitionsByCode(ctx, db, "LR")
	if len(lr) != 1 || lr[0].Name != "Renamed" {
		t.Fatalf("by code LR after save = %+v", lr)
	}

	if err := DeleteErrorDefinition(ctx, db, "err-def-001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	db.Model(&domain.SolutionStep{}).Where("error_definition_id = ?", "err-def-001").Count(&n)
	if n != 0 {
		t.Fatalf("orphan steps left: %d", n)
	}
	if err := DeleteErrorDefinition(ctx, db, "err-def-001"); err != ErrNotFound {
		t.Fatalf("second delete: %v", err)
	}
}

func TestVisitsAndKpiSamples(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	if _, err := UpsertPatientVisit(ctx, db, "John Doe", domain.VisitAdmitted); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := UpsertPatientVisit(ctx, db, "John Doe", domain.VisitDischarged); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	got, err := VisitStatuses(ctx, db, []string{"John Doe", "Jane Smith"})
	if err != nil {
		t.Fatalf("statuses: %v", err)
	}
	if got["John Doe"] != domain.VisitDischarged {
		t.Fatalf("last write should win: %v", got)
	}
	if _, ok := got["Jane Smith"]; ok {
		t.Fatalf("no record expected for Jane Smith")
	}
	if empty, _ := VisitStatuses(ctx, db, nil); len(empty) != 0 {
		t.Fatalf("nil input must yield empty map")
	}

	base := fixtureTime("10:00")
	for i := 0; i < 10; i++ {
		if _, err := CreateKpiSample(ctx, db, float64(i), base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
	}
	recent, err := RecentKpiSamples(ctx, db, 7)
	if err != nil || len(recent) != 7 {
		t.Fatalf("recent = %d, err=%v", len(recent), err)
	}
	if recent[0].SuccessRate != 3 || recent[6].SuccessRate != 9 {
		t.Fatalf("expected oldest-first 3..9, got %v..%v", recent[0].SuccessRate, recent[6].SuccessRate)
	}
	if none, _ := RecentKpiSamples(ctx, db, 0); len(none) != 0 {
		t.Fatalf("n=0 must be empty")
	}
}

func TestPruneKpiSamples_KeepsNewest(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	base := fixtureTime("12:00")
	for i := 0; i < 12; i++ {
		if _, err := CreateKpiSample(ctx, db, float64(i), base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
	}

	n, err := PruneKpiSamples(ctx, db, 5)
	if err != nil || n != 7 {
		t.Fatalf("pruned %d, err=%v; want 7", n, err)
	}
	left, _ := RecentKpiSamples(ctx, db, 100)
	if len(left) != 5 || left[0].SuccessRate != 7 || left[4].SuccessRate != 11 {
		t.Fatalf("kept %d samples: %+v", len(left), left)
	}

	if n, err := PruneKpiSamples(ctx, db, 5); err != nil || n != 0 {
		t.Fatalf("second prune removed %d, err=%v", n, err)
	}
	if n, _ := PruneKpiSamples(ctx, db, 0); n != 5 {
		t.Fatalf("keep=0 removed %d; want all 5", n)
	}
}

func TestSeedFixtures_OnlyOnce(t *testing.T) {
	db := newSeededDB(t)
	wrote, err := SeedFixtures(context.Background(), db)
	if err != nil || wrote {
		t.Fatalf("second seed: wrote=%v err=%v", wrote, err)
	}
	n, _ := CountMessages(context.Background(), db)
	if n != 20 {
		t.Fatalf("messages = %d; want 20", n)
	}
}
