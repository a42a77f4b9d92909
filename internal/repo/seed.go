// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file loads the demonstration data set: a 20-message
// interface log and the default event/error catalogs.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func fixtureTime(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-07-10 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// FixtureMessages returns the demonstration log in native order (newest first).
func FixtureMessages() []domain.Message {
	type row struct {
		id, at, event string
		status        domain.MessageStatus
		facility      string
		patient       string
		detail        string
		count         int
	}
	rows := []row{
		{"msg-001", "10:00", "Patient Admit", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
		{"msg-002", "09:55", "Order Placed", domain.StatusError, "Facility B", "Jane Smith", "Invalid order ID format.", 3},
		{"msg-003", "09:50", "Lab Result", domain.StatusPending, "Facility A", "Peter Jones", "", 1},
		{"msg-004", "09:45", "Patient Discharge", domain.StatusSuccess, "Facility C", "Alice Brown", "", 1},
		{"msg-005", "09:40", "Patient Admit", domain.StatusError, "Facility A", "Bob White", "Missing required patient demographics.", 5},
		{"msg-006", "09:35", "Medication Dispense", domain.StatusSuccess, "Facility B", "Charlie Green", "", 1},
		{"msg-007", "09:30", "Order Placed", domain.StatusError, "Facility C", "Diana Prince", "Database connection timeout.", 2},
		{"msg-008", "09:25", "Lab Result", domain.StatusSuccess, "Facility A", "Eve Adams", "", 1},
		{"msg-009", "09:20", "Patient Admit", domain.StatusPending, "Facility B", "Frank Black", "", 1},
		{"msg-010", "09:15", "Patient Discharge", domain.StatusError, "Facility A", "Grace Kelly", "Facility ID not recognized.", 1},
		{"msg-011", "09:10", "Order Placed", domain.StatusSuccess, "Facility C", "Harry Potter", "", 1},
		{"msg-012", "09:05", "Lab Result", domain.StatusError, "Facility B", "Ivy Queen", "Result parsing error.", 4},
		{"msg-013", "09:00", "Patient Admit", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
		{"msg-014", "08:55", "Order Placed", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
		{"msg-015", "08:50", "Lab Result", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
		{"msg-016", "08:45", "Patient Discharge", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
		{"msg-017", "08:40", "Patient Admit", domain.StatusError, "Facility A", "John Doe", "Duplicate admission record.", 1},
		{"msg-018", "08:35", "Medication Dispense", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
		{"msg-019", "08:30", "Order Placed", domain.StatusError, "Facility A", "John Doe", "Medication not in formulary.", 1},
		{"msg-020", "08:25", "Lab Result", domain.StatusSuccess, "Facility A", "John Doe", "", 1},
	}
	out := make([]domain.Message, len(rows))
	for i, r := range rows {
		m := domain.Message{
			ID:        r.id,
			Timestamp: fixtureTime(r.at),
			Event:     r.event,
			Status:    r.status,
			Facility:  r.facility,
			Patient:   r.patient,
			Count:     intPtr(r.count),
		}
		if r.detail != "" {
			m.ErrorMessage = strPtr(r.detail)
		}
		out[i] = m
	}
	out[1].MRN = strPtr("MRN-12345")
	out[1].CaseNumber = strPtr("CASE-67890")
	return out
}

// FixtureEventDefinitions returns the default event catalog.
func FixtureEventDefinitions() []domain.EventDefinition {
	return []domain.EventDefinition{
		{ID: "evt-def-001", Name: "Patient Admit", Code: "PA", Description: "A patient was admitted to a facility."},
		{ID: "evt-def-002", Name: "Order Placed", Code: "OP", Description: "A clinical order was placed for a patient."},
		{ID: "evt-def-003", Name: "Lab Result", Code: "LR", Description: "A laboratory result was received."},
		{ID: "evt-def-004", Name: "Patient Discharge", Code: "PD", Description: "A patient was discharged from a facility."},
		{ID: "evt-def-005", Name: "Medication Dispense", Code: "MD", Description: "Medication was dispensed to a patient."},
	}
}

// FixtureErrorDefinitions returns the default error catalog.
func FixtureErrorDefinitions() []domain.ErrorDefinition {
	return []domain.ErrorDefinition{
		{
			ID:                   "err-def-001",
			Name:                 "Invalid Order ID",
			AssociatedEventCodes: []string{"OP"},
			SolutionSteps: []domain.SolutionStep{
				{ID: "err-def-001-step-1", Description: "Check the order ID format.", Order: 1},
				{ID: "err-def-001-step-2", Description: "Ensure the order ID belongs to a valid order.", Order: 2},
				{ID: "err-def-001-step-3", Description: "Reprocess the order manually if needed.", Order: 3},
			},
		},
		{
			ID:                   "err-def-002",
			Name:                 "Missing Patient Demographics",
			AssociatedEventCodes: []string{"PA", "PD"},
			SolutionSteps: []domain.SolutionStep{
				{ID: "err-def-002-step-1", Description: "Verify patient demographics in the EHR.", Order: 1},
				{ID: "err-def-002-step-2", Description: "Enter the missing demographic information.", Order: 2},
				{ID: "err-def-002-step-3", Description: "Reprocess the message.", Order: 3},
			},
		},
	}
}

// SeedFixtures loads the fixture data when the message log is empty. It is a
// no-op on a populated store, so it is safe to call on every start. The
// boolean reports whether anything was written.
func SeedFixtures(ctx context.Context, db *gorm.DB) (bool, error) {
	n, err := CountMessages(ctx, db)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := time.Now().UTC()
		for _, m := range FixtureMessages() {
			m := m
			if err := CreateMessage(ctx, tx, &m); err != nil {
				return err
			}
		}
		for i, d := range FixtureEventDefinitions() {
			d := d
			d.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
			if err := CreateEventDefinition(ctx, tx, &d); err != nil {
				return err
			}
		}
		for i, d := range FixtureErrorDefinitions() {
			d := d
			d.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
			if err := CreateErrorDefinition(ctx, tx, &d); err != nil {
				return err
			}
		}
		return nil
	})
	return err == nil, err
}
