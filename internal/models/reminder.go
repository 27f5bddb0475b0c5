package models

import (
	"time"
)

// ReminderStatus is the work-item state. A reminder is created pending and
// ends up sent or error; terminal rows are never mutated again, they stay
// behind as an audit trail.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderError   ReminderStatus = "error"
)

// ReminderKind is the logical template category. The external provider's
// template identifier is resolved from configuration at send time, so
// provider-side identifiers can rotate without touching stored rows.
type ReminderKind string

const (
	Reminder24h ReminderKind = "reminder_24h"
	Reminder2h  ReminderKind = "reminder_2h"
)

// AppointmentReminder is a durable reminder work item. Rows are created only
// by the scheduler (which replaces all pending rows for an appointment in one
// transaction) and moved to a terminal state only by the sweeper.
//
// ClaimToken and ClaimedAt mark a row as in flight for exactly one sweep:
// the due-batch query stamps them in the same transaction that selects the
// rows, so two overlapping sweeps can never pick up the same item. A claim
// older than the configured TTL is considered abandoned and may be reclaimed.
type AppointmentReminder struct {
	BaseModel
	AppointmentID string         `gorm:"size:36;index;not null" json:"appointmentId"`
	SendAt        time.Time      `gorm:"index:idx_reminders_status_send_at,priority:2;not null" json:"sendAt"`
	Status        ReminderStatus `gorm:"size:50;default:'pending';index:idx_reminders_status_send_at,priority:1" json:"status"`
	TemplateKind  ReminderKind   `gorm:"size:50;not null" json:"templateKind"`
	SentCount     int            `gorm:"default:0" json:"sentCount"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`
	ClaimToken    *string        `gorm:"size:36" json:"-"`
	ClaimedAt     *time.Time     `json:"-"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
