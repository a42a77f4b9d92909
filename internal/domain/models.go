// Package domain defines the persistence models for the interface message log
// and the reference catalogs (event definitions, error definitions and their
// remediation steps). These types are mapped with GORM and form the core data
// layer of the monitor backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// MessageStatus is the processing outcome of an interface message.
type MessageStatus string

const (
	StatusSuccess MessageStatus = "success"
	StatusError   MessageStatus = "error"
	StatusPending MessageStatus = "pending"
)

// Valid reports whether s is one of the known statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusError, StatusPending:
		return true
	}
	return false
}

// Message is one observed transaction in the interface traffic log.
// Rows are append-only: the log is never updated or deleted through the API.
//
// Fields:
//   - ID: stable identifier assigned by the ingestion side (e.g. "msg-017").
//   - Timestamp: when the message was observed (UTC); drives native ordering.
//   - Event: event *name* (e.g. "Patient Admit"), resolvable to an
//     EventDefinition code through the catalog.
//   - Status: success | error | pending (enforced by DB constraint).
//   - ErrorMessage: detail text, only meaningful when Status is error.
//   - Count: how many times the same message repeated.
type Message struct {
	ID           string        `json:"id"                      gorm:"type:varchar(64);primaryKey"`
	Timestamp    time.Time     `json:"timestamp"               gorm:"not null;index:idx_msg_ts"`
	Event        string        `json:"event"                   gorm:"type:varchar(128);not null;index"`
	Status       MessageStatus `json:"status"                  gorm:"type:varchar(16);not null;index;check:chk_messages_status,status IN ('success','error','pending')"`
	Facility     string        `json:"facility"                gorm:"type:varchar(128);not null;index:idx_msg_facility_patient,priority:1"`
	Patient      string        `json:"patient"                 gorm:"type:varchar(255);not null;index:idx_msg_facility_patient,priority:2;index"`
	ErrorMessage *string       `json:"error_message,omitempty" gorm:"type:text"`
	Count        *int          `json:"count,omitempty"`
	MRN          *string       `json:"mrn,omitempty"           gorm:"column:mrn;type:varchar(64)"`
	CaseNumber   *string       `json:"case_number,omitempty"   gorm:"type:varchar(64)"`
	CreatedAt    time.Time     `json:"-"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// EventDefinition is a catalog entry describing a known event type. Code is
// the short key referenced by ErrorDefinition.AssociatedEventCodes and must be
// unique among live rows.
type EventDefinition struct {
	ID          string    `json:"id"          gorm:"type:varchar(64);primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Code        string    `json:"code"        gorm:"type:varchar(32);not null;uniqueIndex:ux_event_def_code"`
	Description string    `json:"description" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for EventDefinition.
func (EventDefinition) TableName() string { return "event_definitions" }

// ErrorDefinition maps one or more event codes to a named error class and an
// ordered remediation procedure. It exclusively owns its steps: deleting the
// definition cascades to them.
type ErrorDefinition struct {
	ID                   string                      `json:"id"                     gorm:"type:varchar(64);primaryKey"`
	Name                 string                      `json:"name"                   gorm:"type:varchar(255);not null"`
	AssociatedEventCodes datatypes.JSONSlice[string] `json:"associated_event_codes" gorm:"not null"`
	SolutionSteps        []SolutionStep              `json:"solution_steps"         gorm:"foreignKey:ErrorDefinitionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// TableName returns the database table name for ErrorDefinition.
func (ErrorDefinition) TableName() string { return "error_definitions" }

// SolutionStep is one ordered remediation action. Order is dense and 1-based
// within its parent; it is a persisted rendering of array position.
type SolutionStep struct {
	ID                string `json:"id"          gorm:"type:varchar(64);primaryKey"`
	ErrorDefinitionID string `json:"-"           gorm:"type:varchar(64);not null;index:idx_step_parent_pos,priority:1"`
	Description       string `json:"description" gorm:"type:text;not null"`
	Order             int    `json:"order"       gorm:"column:position;not null;index:idx_step_parent_pos,priority:2"`
}

// TableName returns the database table name for SolutionStep.
func (SolutionStep) TableName() string { return "solution_steps" }

// VisitStatus classifies a patient's current visit.
type VisitStatus string

const (
	VisitAdmitted   VisitStatus = "Admitted"
	VisitDischarged VisitStatus = "Discharged"
	VisitInpatient  VisitStatus = "Inpatient"
	VisitOutpatient VisitStatus = "Outpatient"
	VisitPending    VisitStatus = "Pending"

	// VisitUnknown is reported when no visit record exists for a patient.
	// It is never stored.
	VisitUnknown VisitStatus = "Unknown"
)

// Valid reports whether v may be stored as a patient's visit status.
func (v VisitStatus) Valid() bool {
	switch v {
	case VisitAdmitted, VisitDischarged, VisitInpatient, VisitOutpatient, VisitPending:
		return true
	}
	return false
}

// PatientVisit holds the externally supplied visit status for a patient,
// keyed by the same patient name that groups messages.
type PatientVisit struct {
	Patient   string      `json:"patient"    gorm:"type:varchar(255);primaryKey"`
	Status    VisitStatus `json:"status"     gorm:"type:varchar(16);not null"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName returns the database table name for PatientVisit.
func (PatientVisit) TableName() string { return "patient_visits" }

// KpiSample is a point-in-time success rate used to draw the trend sparkline.
type KpiSample struct {
	ID          uint      `json:"-"            gorm:"primaryKey;autoIncrement"`
	SuccessRate float64   `json:"success_rate" gorm:"not null"`
	TakenAt     time.Time `json:"taken_at"     gorm:"not null;index"`
}

// TableName returns the database table name for KpiSample.
func (KpiSample) TableName() string { return "kpi_samples" }
