package handlers

import (
	"time"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/reminder"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AppointmentHandler handles appointment related requests. Every create or
// update that can affect reminder timing recomputes the reminder schedule
// synchronously; the sweeper picks the resulting work items up on its own
// cadence.
type AppointmentHandler struct {
	DB        *gorm.DB
	Scheduler *reminder.Scheduler
	Store     reminder.Store
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, scheduler *reminder.Scheduler, store reminder.Store) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Scheduler: scheduler, Store: store}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	Type            string     `json:"type" binding:"required,oneof=consultation commitment"`
	PatientID       *string    `json:"patientId"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartDatetime   time.Time  `json:"startDatetime" binding:"required"`
	EndDatetime     *time.Time `json:"endDatetime"`
	DurationMinutes *int       `json:"durationMinutes"`
	Observation     string     `json:"observation"`
	FollowUpDate    string     `json:"followUpDate"`
	SendReminder    bool       `json:"sendReminder"`
	LabelID         *string    `json:"labelId"`
	RecurrenceID    *string    `json:"recurrenceId"`
}

// CreateAppointment handles creating a new appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	apptType := models.AppointmentType(req.Type)
	if apptType == models.TypeConsultation {
		if req.PatientID == nil {
			utils.BadRequest(c, "patientId is required for consultations")
			return
		}
		if req.DurationMinutes == nil && req.EndDatetime == nil {
			utils.BadRequest(c, "durationMinutes or endDatetime is required for consultations")
			return
		}
	} else {
		if req.Title == "" {
			utils.BadRequest(c, "title is required for commitments")
			return
		}
		if req.EndDatetime == nil {
			utils.BadRequest(c, "endDatetime is required for commitments")
			return
		}
	}

	endDatetime, ok := resolveEnd(c, req.StartDatetime, req.EndDatetime, req.DurationMinutes)
	if !ok {
		return
	}

	title := req.Title
	var patientID *string
	if apptType == models.TypeConsultation {
		var patient models.Patient
		if err := h.DB.Where("id = ? AND user_id = ?", *req.PatientID, userID).First(&patient).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Patient not found")
			} else {
				utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
			}
			return
		}
		patientID = req.PatientID
		if title == "" {
			title = patient.FullName
		}
	}

	appointment := models.Appointment{
		UserID:          userID,
		PatientID:       patientID,
		Type:            apptType,
		Title:           title,
		Description:     req.Description,
		StartDatetime:   req.StartDatetime,
		EndDatetime:     endDatetime,
		DurationMinutes: req.DurationMinutes,
		Observation:     req.Observation,
		FollowUpDate:    req.FollowUpDate,
		SendReminder:    req.SendReminder,
		LabelID:         req.LabelID,
		RecurrenceID:    req.RecurrenceID,
		Status:          models.StatusScheduled,
	}

	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	// Reminders only exist for consultations
	if appointment.Type == models.TypeConsultation {
		start := appointment.StartDatetime
		if err := h.Scheduler.Recompute(c.Request.Context(), appointment.ID, &start, appointment.SendReminder); err != nil {
			utils.InternalServerError(c, "Failed to schedule reminders: "+err.Error())
			return
		}
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointments lists the user's appointments, optionally filtered by
// date range, type and patient.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Preload("Patient").Preload("Label").
		Where("user_id = ?", userID).
		Order("start_datetime asc")

	if startDate := c.Query("startDate"); startDate != "" {
		query = query.Where("start_datetime >= ?", startDate)
	}
	if endDate := c.Query("endDate"); endDate != "" {
		query = query.Where("end_datetime <= ?", endDate)
	}
	if apptType := c.Query("type"); apptType != "" {
		query = query.Where("type = ?", apptType)
	}
	if patientID := c.Query("patientId"); patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Label").
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		First(&appointment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentRequest represents the request body for updating an appointment.
type UpdateAppointmentRequest struct {
	Type            *string    `json:"type" binding:"omitempty,oneof=consultation commitment"`
	PatientID       *string    `json:"patientId"`
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	StartDatetime   *time.Time `json:"startDatetime"`
	EndDatetime     *time.Time `json:"endDatetime"`
	DurationMinutes *int       `json:"durationMinutes"`
	Observation     *string    `json:"observation"`
	FollowUpDate    *string    `json:"followUpDate"`
	SendReminder    *bool      `json:"sendReminder"`
	LabelID         *string    `json:"labelId"`
	Status          *string    `json:"status"`
}

// UpdateAppointment handles updating an appointment and recomputing its
// reminder schedule. Changing the type away from consultation clears any
// scheduled reminders.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&appointment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Type != nil {
		appointment.Type = models.AppointmentType(*req.Type)
	}
	if req.PatientID != nil {
		if appointment.Type == models.TypeConsultation {
			var patient models.Patient
			if err := h.DB.Where("id = ? AND user_id = ?", *req.PatientID, userID).First(&patient).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					utils.NotFound(c, "Patient not found")
				} else {
					utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
				}
				return
			}
			appointment.PatientID = req.PatientID
			appointment.Title = patient.FullName
		} else {
			appointment.PatientID = nil
		}
	}
	if req.Title != nil {
		appointment.Title = *req.Title
	}
	if req.Description != nil {
		appointment.Description = *req.Description
	}
	if req.StartDatetime != nil {
		appointment.StartDatetime = *req.StartDatetime
	}
	if req.DurationMinutes != nil {
		appointment.DurationMinutes = req.DurationMinutes
	}
	// A moved start also shifts a duration-derived end.
	if req.EndDatetime != nil || req.DurationMinutes != nil ||
		(req.StartDatetime != nil && appointment.DurationMinutes != nil) {
		end, ok := resolveEnd(c, appointment.StartDatetime, req.EndDatetime, appointment.DurationMinutes)
		if !ok {
			return
		}
		appointment.EndDatetime = end
	}
	if req.Observation != nil {
		appointment.Observation = *req.Observation
	}
	if req.FollowUpDate != nil {
		appointment.FollowUpDate = *req.FollowUpDate
	}
	if req.SendReminder != nil {
		appointment.SendReminder = *req.SendReminder
	}
	if req.LabelID != nil {
		appointment.LabelID = req.LabelID
	}
	if req.Status != nil {
		appointment.Status = models.AppointmentStatus(*req.Status)
	}

	if !appointment.EndDatetime.After(appointment.StartDatetime) {
		utils.BadRequest(c, "endDatetime must be after startDatetime")
		return
	}

	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	// Recompute the reminder schedule for the new timing; a type change away
	// from consultation degenerates to clearing pending items.
	start := appointment.StartDatetime
	enabled := appointment.SendReminder && appointment.Type == models.TypeConsultation
	if err := h.Scheduler.Recompute(c.Request.Context(), appointment.ID, &start, enabled); err != nil {
		utils.InternalServerError(c, "Failed to reschedule reminders: "+err.Error())
		return
	}

	utils.Success(c, "Appointment updated successfully", appointment)
}

// DeleteAppointment removes an appointment. Reminder rows hold a foreign
// reference to the appointment, so they are deleted first.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var appointment models.Appointment
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&appointment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.Store.DeleteAll(c.Request.Context(), appointment.ID); err != nil {
		utils.InternalServerError(c, "Failed to delete reminders: "+err.Error())
		return
	}

	if err := h.DB.Delete(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete appointment: "+err.Error())
		return
	}

	utils.Success(c, "Appointment deleted successfully", nil)
}

// resolveEnd computes the end time from an explicit value or a duration and
// validates that it falls after the start. Responds with 400 and returns
// ok=false on invalid input.
func resolveEnd(c *gin.Context, start time.Time, end *time.Time, durationMinutes *int) (time.Time, bool) {
	var resolved time.Time
	switch {
	case durationMinutes != nil && *durationMinutes > 0:
		resolved = start.Add(time.Duration(*durationMinutes) * time.Minute)
	case end != nil:
		resolved = *end
	default:
		utils.BadRequest(c, "endDatetime or durationMinutes is required")
		return time.Time{}, false
	}

	if !resolved.After(start) {
		utils.BadRequest(c, "endDatetime must be after startDatetime")
		return time.Time{}, false
	}
	return resolved, true
}
