package reminder

import (
	"context"
	"time"

	"clinic-app-server/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store owns the reminder work-item rows. The scheduler replaces pending
// rows, the sweeper claims due batches and moves items to a terminal state;
// nothing else writes to the table.
type Store interface {
	// ReplacePending deletes every pending item for the appointment and
	// inserts the given items as one transaction, so there is never a window
	// where old and new pending items coexist.
	ReplacePending(ctx context.Context, appointmentID string, items []models.AppointmentReminder) error
	// DeleteAll removes every item for the appointment, terminal rows
	// included. Called before the appointment row itself is deleted.
	DeleteAll(ctx context.Context, appointmentID string) error
	// ClaimDueBatch atomically claims up to limit pending items with
	// send_at <= now, earliest-due first. Claimed items stay pending but are
	// invisible to other claims until the claim TTL elapses.
	ClaimDueBatch(ctx context.Context, limit int, now time.Time) ([]models.AppointmentReminder, error)
	MarkSent(ctx context.Context, id string, now time.Time) error
	MarkError(ctx context.Context, id string, now time.Time) error
}

// DueAppointment is the joined read the sweeper needs to deliver one item:
// the appointment timing plus the patient and clinic display data.
type DueAppointment struct {
	AppointmentID string
	StartDatetime time.Time
	PatientName   string
	PatientPhone  string
	ClinicName    string
}

// AppointmentReader resolves the appointment/patient/clinic join for a due
// reminder. The appointment data is owned by the CRUD layer; the reminder
// core only reads it.
type AppointmentReader interface {
	DueAppointment(ctx context.Context, appointmentID string) (*DueAppointment, error)
}

// GormStore implements Store and AppointmentReader on the shared database.
type GormStore struct {
	db       *gorm.DB
	claimTTL time.Duration
}

// NewGormStore builds a GormStore. claimTTL bounds how long a claimed item
// stays invisible; a sweep that crashed mid-run releases its items after the
// TTL instead of stranding them.
func NewGormStore(db *gorm.DB, claimTTL time.Duration) *GormStore {
	return &GormStore{db: db, claimTTL: claimTTL}
}

func (s *GormStore) ReplacePending(ctx context.Context, appointmentID string, items []models.AppointmentReminder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("appointment_id = ? AND status = ?", appointmentID, models.ReminderPending).
			Delete(&models.AppointmentReminder{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *GormStore) DeleteAll(ctx context.Context, appointmentID string) error {
	return s.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Delete(&models.AppointmentReminder{}).Error
}

func (s *GormStore) ClaimDueBatch(ctx context.Context, limit int, now time.Time) ([]models.AppointmentReminder, error) {
	token := uuid.New().String()
	staleBefore := now.Add(-s.claimTTL)

	var claimed []models.AppointmentReminder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select-for-update plus the claim stamp in the same transaction:
		// a concurrent sweep blocks here and then no longer matches the
		// unclaimed predicate, so a row is handed to exactly one run.
		// SQLite serializes writing transactions on its own and rejects
		// the FOR UPDATE syntax.
		q := tx.Model(&models.AppointmentReminder{})
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var ids []string
		if err := q.
			Where("status = ? AND send_at <= ?", models.ReminderPending, now).
			Where("claim_token IS NULL OR claimed_at < ?", staleBefore).
			Order("send_at asc").
			Limit(limit).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(&models.AppointmentReminder{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"claim_token": token,
				"claimed_at":  now,
			}).Error; err != nil {
			return err
		}

		return tx.
			Where("claim_token = ?", token).
			Order("send_at asc").
			Find(&claimed).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *GormStore) MarkSent(ctx context.Context, id string, now time.Time) error {
	return s.markTerminal(ctx, id, models.ReminderSent, now)
}

func (s *GormStore) MarkError(ctx context.Context, id string, now time.Time) error {
	return s.markTerminal(ctx, id, models.ReminderError, now)
}

func (s *GormStore) markTerminal(ctx context.Context, id string, status models.ReminderStatus, now time.Time) error {
	return s.db.WithContext(ctx).Model(&models.AppointmentReminder{}).
		Where("id = ? AND status = ?", id, models.ReminderPending).
		Updates(map[string]interface{}{
			"status":      status,
			"sent_at":     now,
			"sent_count":  gorm.Expr("sent_count + 1"),
			"claim_token": nil,
			"claimed_at":  nil,
		}).Error
}

// DueAppointment performs the joined read for one reminder item. Missing
// patient or clinic rows surface as empty strings, which the sweeper treats
// as an undeliverable item.
func (s *GormStore) DueAppointment(ctx context.Context, appointmentID string) (*DueAppointment, error) {
	var row DueAppointment
	err := s.db.WithContext(ctx).
		Table("appointments").
		Select("appointments.id AS appointment_id, appointments.start_datetime, "+
			"patients.full_name AS patient_name, patients.phone AS patient_phone, "+
			"users.name AS clinic_name").
		Joins("LEFT JOIN patients ON appointments.patient_id = patients.id").
		Joins("LEFT JOIN users ON appointments.user_id = users.id").
		Where("appointments.id = ?", appointmentID).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
