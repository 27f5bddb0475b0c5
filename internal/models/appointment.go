package models

import (
	"time"
)

// AppointmentType distinguishes patient consultations from free-form
// commitments (meetings, personal blocks). Reminders only apply to
// consultations.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeCommitment   AppointmentType = "commitment"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Appointment represents a calendar entry owned by a clinic user.
type Appointment struct {
	BaseModel
	UserID          string            `gorm:"size:36;index;not null" json:"userId"`
	PatientID       *string           `gorm:"size:36;index" json:"patientId"`
	Type            AppointmentType   `gorm:"size:50;not null" json:"type"`
	Title           string            `gorm:"size:255;not null" json:"title"`
	Description     string            `gorm:"type:text" json:"description,omitempty"`
	StartDatetime   time.Time         `json:"startDatetime"`
	EndDatetime     time.Time         `json:"endDatetime"`
	Status          AppointmentStatus `gorm:"size:50;default:'scheduled'" json:"status"`
	DurationMinutes *int              `json:"durationMinutes,omitempty"`
	RecurrenceID    *string           `gorm:"size:36" json:"recurrenceId,omitempty"`
	Observation     string            `gorm:"type:text" json:"observation,omitempty"`
	FollowUpDate    string            `gorm:"size:100" json:"followUpDate,omitempty"`
	SendReminder    bool              `gorm:"default:false" json:"sendReminder"`
	LabelID         *string           `gorm:"size:36" json:"labelId,omitempty"`

	// Relations
	User       User                   `gorm:"foreignKey:UserID" json:"-"`
	Patient    *Patient               `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Label      *Label                 `gorm:"foreignKey:LabelID" json:"label,omitempty"`
	Recurrence *AppointmentRecurrence `gorm:"foreignKey:RecurrenceID" json:"recurrence,omitempty"`
}

// AppointmentRecurrence describes a repeating pattern shared by a series
// of appointments.
type AppointmentRecurrence struct {
	BaseModel
	Frequency     string     `gorm:"size:50;not null" json:"frequency"`
	IntervalValue int        `gorm:"default:1" json:"intervalValue"`
	DaysOfWeek    string     `gorm:"size:50" json:"daysOfWeek,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
}
