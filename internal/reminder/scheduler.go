package reminder

import (
	"context"
	"time"

	"clinic-app-server/internal/models"

	"go.uber.org/zap"
)

// Scheduling policy. Appointments far enough out get a day-ahead and an
// hours-ahead nudge; appointments booked on short notice get one emergency
// reminder shortly after booking; anything under 30 minutes away gets none.
const (
	longLead       = 24 * time.Hour
	shortLead      = 2 * time.Hour
	emergencyDelay = 20 * time.Minute

	longLeadThresholdHours  = 12.0
	shortLeadThresholdHours = 2.0
	minNoticeMinutes        = 30.0
)

// Scheduler derives reminder work items from appointment timing. It is
// invoked synchronously from the appointment create/update path.
type Scheduler struct {
	store Store
	clock Clock
	log   *zap.Logger
}

func NewScheduler(store Store, clock Clock, log *zap.Logger) *Scheduler {
	return &Scheduler{store: store, clock: clock, log: log}
}

// Recompute replaces the pending reminder set for an appointment. It always
// clears previously scheduled-but-unsent items first, which makes it
// idempotent and doubles as the "reminders disabled" path (startAt nil or
// enabled false schedules nothing). Terminal items are left untouched as an
// audit trail.
func (s *Scheduler) Recompute(ctx context.Context, appointmentID string, startAt *time.Time, remindersEnabled bool) error {
	if !remindersEnabled || startAt == nil {
		return s.store.ReplacePending(ctx, appointmentID, nil)
	}

	now := s.clock.Now()
	start := startAt.In(now.Location())
	hoursUntil := start.Sub(now).Hours()
	minutesUntil := start.Sub(now).Minutes()

	var items []models.AppointmentReminder
	switch {
	case hoursUntil < shortLeadThresholdHours:
		if minutesUntil >= minNoticeMinutes {
			items = append(items, newItem(appointmentID, models.Reminder2h, now.Add(emergencyDelay)))
		}
		// Under 30 minutes of notice there is no useful time left to remind.
	default:
		if hoursUntil >= longLeadThresholdHours {
			items = append(items, newItem(appointmentID, models.Reminder24h, start.Add(-longLead)))
		}
		items = append(items, newItem(appointmentID, models.Reminder2h, start.Add(-shortLead)))
	}

	if err := s.store.ReplacePending(ctx, appointmentID, items); err != nil {
		return err
	}

	s.log.Debug("reminder schedule recomputed",
		zap.String("appointment_id", appointmentID),
		zap.Int("items", len(items)),
		zap.Float64("hours_until", hoursUntil),
	)
	return nil
}

func newItem(appointmentID string, kind models.ReminderKind, sendAt time.Time) models.AppointmentReminder {
	return models.AppointmentReminder{
		AppointmentID: appointmentID,
		SendAt:        sendAt,
		Status:        models.ReminderPending,
		TemplateKind:  kind,
		SentCount:     0,
	}
}
