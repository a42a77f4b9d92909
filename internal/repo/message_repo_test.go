package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

func ids(ms []domain.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestListMessages_StatusError_KeepsNativeOrder(t *testing.T) {
	db := newSeededDB(t)
	got, err := ListMessages(context.Background(), db, "", domain.MessageFilter{Status: domain.StatusError})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	want := []string{"msg-002", "msg-005", "msg-007", "msg-010", "msg-012", "msg-017", "msg-019"}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("got %v; want %v", ids(got), want)
		}
	}
}

// The SQL filter must select exactly what the in-memory predicate accepts.
func TestListMessages_AgreesWithPredicate(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()
	all := FixtureMessages()

	statuses := []domain.MessageStatus{"", domain.StatusSuccess, domain.StatusError, domain.StatusPending}
	eventNames := []string{"Patient Admit", "Order Placed", "Lab Result", "Patient Discharge", "Medication Dispense"}
	d := func(s string) time.Time {
		ts, _ := time.Parse("2006-01-02", s)
		return ts
	}
	ranges := []domain.DateRange{
		{},
		{From: d("2024-07-10"), To: d("2024-07-10")},
		{From: d("2024-07-11")},
		{To: d("2024-07-09")},
		{From: d("2024-07-01"), To: d("2024-07-31")},
	}

	for _, st := range statuses {
		for mask := 0; mask < 1<<len(eventNames); mask++ {
			var evs []string
			for i, e := range eventNames {
				if mask&(1<<i) != 0 {
					evs = append(evs, e)
				}
			}
			for _, r := range ranges {
				f := domain.MessageFilter{Status: st, Events: evs, Range: r}
				got, err := ListMessages(ctx, db, "", f)
				if err != nil {
					t.Fatalf("ListMessages(%+v): %v", f, err)
				}
				var want []string
				for _, m := range all {
					if f.Matches(m) {
						want = append(want, m.ID)
					}
				}
				if len(got) != len(want) {
					t.Fatalf("filter %+v: got %v; want %v", f, ids(got), want)
				}
				for i := range want {
					if got[i].ID != want[i] {
						t.Fatalf("filter %+v: got %v; want %v", f, ids(got), want)
					}
				}
			}
		}
	}
}

func TestListMessages_PatientScope(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	got, err := ListMessages(ctx, db, "John Doe", domain.MessageFilter{})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 9 || got[0].ID != "msg-001" || got[8].ID != "msg-020" {
		t.Fatalf("John Doe timeline = %v", ids(got))
	}

	none, err := ListMessages(ctx, db, "Nobody", domain.MessageFilter{})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestGetMessage(t *testing.T) {
	db := newSeededDB(t)
	m, err := GetMessage(context.Background(), db, "msg-002")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if m.MRN == nil || *m.MRN != "MRN-12345" || m.Count == nil || *m.Count != 3 {
		t.Fatalf("unexpected message: %+v", m)
	}
	if _, err := GetMessage(context.Background(), db, "msg-999"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPatients_HasError(t *testing.T) {
	db := newSeededDB(t)
	ctx := context.Background()

	for _, facility := range []string{"", "Facility A", "Facility B", "Facility C", "Facility Z"} {
		rows, err := ListPatients(ctx, db, facility)
		if err != nil {
			t.Fatalf("ListPatients(%q): %v", facility, err)
		}
		want := map[string]bool{}
		for _, m := range FixtureMessages() {
			if facility != "" && m.Facility != facility {
				continue
			}
			want[m.Patient] = want[m.Patient] || m.Status == domain.StatusError
		}
		if len(rows) != len(want) {
			t.Fatalf("%q: %d rows; want %d", facility, len(rows), len(want))
		}
		for _, r := range rows {
			if w, ok := want[r.Patient]; !ok || w != r.HasError {
				t.Fatalf("%q: %s has_error=%v; want %v", facility, r.Patient, r.HasError, w)
			}
		}
	}
}

func TestStatusCounts(t *testing.T) {
	db := newSeededDB(t)
	got, err := StatusCounts(context.Background(), db)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if got[domain.StatusSuccess] != 11 || got[domain.StatusError] != 7 || got[domain.StatusPending] != 2 {
		t.Fatalf("counts = %v", got)
	}
}

func TestCountMessages_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CountMessages(context.Background(), db); err == nil {
		t.Fatalf("expected error without messages table")
	}
}
