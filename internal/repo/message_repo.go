// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: the append-only interface traffic log.
//
// There is no update or delete path. CreateMessage exists for fixtures and
// tests; in production the log is filled by an external ingestion process.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// nativeOrder is the store's native order: most recent first, id breaking ties.
const nativeOrder = "timestamp DESC, id ASC"

// CreateMessage inserts a message. Timestamp is normalized to UTC so that
// stored values compare correctly as text.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	m.Timestamp = m.Timestamp.UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(m).Error
}

// ApplyMessageFilter composes f onto q. Each set field adds one AND clause.
func ApplyMessageFilter(q *gorm.DB, f domain.MessageFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if lo, ok := f.Range.Lower(); ok {
		q = q.Where("timestamp >= ?", lo)
	}
	if hi, ok := f.Range.Upper(); ok {
		q = q.Where("timestamp < ?", hi)
	}
	if len(f.Events) > 0 {
		q = q.Where("event IN ?", f.Events)
	}
	return q
}

// ListMessages returns messages matching f in native order. A non-empty
// patient restricts the result to that exact patient name.
func ListMessages(ctx context.Context, db *gorm.DB, patient string, f domain.MessageFilter) ([]domain.Message, error) {
	out := []domain.Message{}
	q := db.WithContext(ctx).Model(&domain.Message{})
	if patient != "" {
		q = q.Where("patient = ?", patient)
	}
	err := ApplyMessageFilter(q, f).Order(nativeOrder).Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// PatientErrorRow is one grouped patient with its error flag.
type PatientErrorRow struct {
	Patient  string
	HasError bool
}

// ListPatients groups messages by patient name. HasError is set when at least
// one grouped message has status error. An empty facility spans all
// facilities. Rows come back in no particular order.
func ListPatients(ctx context.Context, db *gorm.DB, facility string) ([]PatientErrorRow, error) {
	var rows []struct {
		Patient  string
		HasError int
	}
	q := db.WithContext(ctx).Model(&domain.Message{}).
		Select("patient, MAX(CASE WHEN status = ? THEN 1 ELSE 0 END) AS has_error", domain.StatusError)
	if facility != "" {
		q = q.Where("facility = ?", facility)
	}
	if err := q.Group("patient").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]PatientErrorRow, len(rows))
	for i, r := range rows {
		out[i] = PatientErrorRow{Patient: r.Patient, HasError: r.HasError == 1}
	}
	return out, nil
}

// StatusCounts returns the number of messages per status. Statuses with no
// messages are absent from the map.
func StatusCounts(ctx context.Context, db *gorm.DB) (map[domain.MessageStatus]int64, error) {
	var rows []struct {
		Status domain.MessageStatus
		N      int64
	}
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.MessageStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages").Scan(&total).Error
	return total, err
}
