package handlers

import (
	"net/http"
	"testing"
	"time"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/reminder"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newAppointmentRouter(t *testing.T, db *gorm.DB, userID string, now time.Time) *gin.Engine {
	t.Helper()
	store := reminder.NewGormStore(db, 15*time.Minute)
	scheduler := reminder.NewScheduler(store, fixedClock{now: now}, zap.NewNop())
	h := NewAppointmentHandler(db, scheduler, store)

	r := gin.New()
	r.Use(asUser(userID))
	r.POST("/appointments", h.CreateAppointment)
	r.GET("/appointments", h.GetAppointments)
	r.PUT("/appointments/:id", h.UpdateAppointment)
	r.DELETE("/appointments/:id", h.DeleteAppointment)
	return r
}

func pendingReminders(t *testing.T, db *gorm.DB, appointmentID string) []models.AppointmentReminder {
	t.Helper()
	var rows []models.AppointmentReminder
	if err := db.Where("appointment_id = ? AND status = ?", appointmentID, models.ReminderPending).
		Order("send_at asc").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestCreateAppointment(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("consultation with reminders schedules both kinds", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		patient := seedPatient(t, db, user.ID, "Maria Silva", "11987654321")
		r := newAppointmentRouter(t, db, user.ID, now)

		start := now.Add(30 * time.Hour)
		w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
			"type":            "consultation",
			"patientId":       patient.ID,
			"startDatetime":   start,
			"durationMinutes": 60,
			"sendReminder":    true,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var appt models.Appointment
		decodeData(t, w, &appt)
		if appt.Title != "Maria Silva" {
			t.Errorf("title = %q, want the patient name as default", appt.Title)
		}
		if !appt.EndDatetime.Equal(start.Add(time.Hour)) {
			t.Errorf("endDatetime = %v, want start + 60m", appt.EndDatetime)
		}

		rows := pendingReminders(t, db, appt.ID)
		if len(rows) != 2 {
			t.Fatalf("got %d pending reminders, want 2", len(rows))
		}
		if rows[0].TemplateKind != models.Reminder24h || rows[1].TemplateKind != models.Reminder2h {
			t.Errorf("kinds = %s, %s", rows[0].TemplateKind, rows[1].TemplateKind)
		}
	})

	t.Run("consultation without sendReminder schedules nothing", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		patient := seedPatient(t, db, user.ID, "Maria Silva", "11987654321")
		r := newAppointmentRouter(t, db, user.ID, now)

		w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
			"type":            "consultation",
			"patientId":       patient.ID,
			"startDatetime":   now.Add(30 * time.Hour),
			"durationMinutes": 60,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var appt models.Appointment
		decodeData(t, w, &appt)
		if rows := pendingReminders(t, db, appt.ID); len(rows) != 0 {
			t.Fatalf("got %d pending reminders, want 0", len(rows))
		}
	})

	t.Run("commitment never gets reminders", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		r := newAppointmentRouter(t, db, user.ID, now)

		start := now.Add(30 * time.Hour)
		end := start.Add(time.Hour)
		w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
			"type":          "commitment",
			"title":         "Congresso",
			"startDatetime": start,
			"endDatetime":   end,
			"sendReminder":  true,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var appt models.Appointment
		decodeData(t, w, &appt)
		if rows := pendingReminders(t, db, appt.ID); len(rows) != 0 {
			t.Fatalf("got %d pending reminders, want 0", len(rows))
		}
	})

	t.Run("consultation requires a patient", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		r := newAppointmentRouter(t, db, user.ID, now)

		w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
			"type":            "consultation",
			"startDatetime":   now.Add(30 * time.Hour),
			"durationMinutes": 60,
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("another user's patient is not visible", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		other := seedUser(t, db, "other@example.com")
		foreign := seedPatient(t, db, other.ID, "Outro Paciente", "11987654321")
		r := newAppointmentRouter(t, db, user.ID, now)

		w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
			"type":            "consultation",
			"patientId":       foreign.ID,
			"startDatetime":   now.Add(30 * time.Hour),
			"durationMinutes": 60,
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

func TestUpdateAppointmentReschedulesReminders(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	patient := seedPatient(t, db, user.ID, "Maria Silva", "11987654321")
	r := newAppointmentRouter(t, db, user.ID, now)

	start := now.Add(30 * time.Hour)
	w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
		"type":            "consultation",
		"patientId":       patient.ID,
		"startDatetime":   start,
		"durationMinutes": 60,
		"sendReminder":    true,
	})
	var appt models.Appointment
	decodeData(t, w, &appt)

	t.Run("moving the start recomputes send times", func(t *testing.T) {
		newStart := now.Add(48 * time.Hour)
		w := doJSON(t, r, http.MethodPut, "/appointments/"+appt.ID, gin.H{
			"startDatetime": newStart,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		rows := pendingReminders(t, db, appt.ID)
		if len(rows) != 2 {
			t.Fatalf("got %d pending reminders, want 2", len(rows))
		}
		if !rows[0].SendAt.Equal(newStart.Add(-24 * time.Hour)) {
			t.Errorf("24h sendAt = %v, want %v", rows[0].SendAt, newStart.Add(-24*time.Hour))
		}
		if !rows[1].SendAt.Equal(newStart.Add(-2 * time.Hour)) {
			t.Errorf("2h sendAt = %v, want %v", rows[1].SendAt, newStart.Add(-2*time.Hour))
		}
	})

	t.Run("disabling reminders clears pending items", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/appointments/"+appt.ID, gin.H{
			"sendReminder": false,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if rows := pendingReminders(t, db, appt.ID); len(rows) != 0 {
			t.Fatalf("got %d pending reminders, want 0", len(rows))
		}
	})
}

func TestDeleteAppointmentRemovesReminders(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	patient := seedPatient(t, db, user.ID, "Maria Silva", "11987654321")
	r := newAppointmentRouter(t, db, user.ID, now)

	w := doJSON(t, r, http.MethodPost, "/appointments", gin.H{
		"type":            "consultation",
		"patientId":       patient.ID,
		"startDatetime":   now.Add(30 * time.Hour),
		"durationMinutes": 60,
		"sendReminder":    true,
	})
	var appt models.Appointment
	decodeData(t, w, &appt)

	del := doJSON(t, r, http.MethodDelete, "/appointments/"+appt.ID, nil)
	if del.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", del.Code, del.Body.String())
	}

	var count int64
	if err := db.Model(&models.AppointmentReminder{}).
		Where("appointment_id = ?", appt.ID).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("reminder rows remaining = %d, want 0", count)
	}
	if err := db.First(&models.Appointment{}, "id = ?", appt.ID).Error; err != gorm.ErrRecordNotFound {
		t.Fatalf("appointment row still present (err = %v)", err)
	}
}
