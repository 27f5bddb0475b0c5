package handlers

import (
	"time"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PatientHandler handles patient record requests.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// PatientRequest represents the request body for creating or updating a patient.
type PatientRequest struct {
	FullName     string     `json:"fullName" binding:"required"`
	Gender       string     `json:"gender"`
	Phone        string     `json:"phone"`
	Street       string     `json:"street"`
	Neighborhood string     `json:"neighborhood"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	ZipCode      string     `json:"zipCode"`
	BirthDate    *time.Time `json:"birthDate"`
	CPF          string     `json:"cpf" binding:"required"`
}

// CreatePatient registers a new patient under the authenticated user,
// assigning the next sequential patient number.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req PatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.Patient
	if err := h.DB.Where("user_id = ? AND cpf = ?", userID, req.CPF).First(&existing).Error; err == nil {
		utils.Conflict(c, "A patient with this CPF already exists in your account")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	patient := models.Patient{
		UserID:       userID,
		FullName:     req.FullName,
		Gender:       req.Gender,
		Phone:        req.Phone,
		Street:       req.Street,
		Neighborhood: req.Neighborhood,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		BirthDate:    req.BirthDate,
		CPF:          req.CPF,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var lastNumber int64
		if err := tx.Model(&models.Patient{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(patient_number), 0)").
			Scan(&lastNumber).Error; err != nil {
			return err
		}
		patient.PatientNumber = int(lastNumber) + 1
		return tx.Create(&patient).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient created successfully", patient)
}

// patientWithAge decorates the stored patient with the computed age.
type patientWithAge struct {
	models.Patient
	Age *int `json:"age"`
}

// GetPatients lists the user's patients, optionally filtered by a search
// term matched against name and CPF.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Where("user_id = ?", userID).Order("patient_number asc")
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR cpf LIKE ?", like, like)
	}

	var patients []models.Patient
	if err := query.Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	now := time.Now()
	result := make([]patientWithAge, 0, len(patients))
	for _, p := range patients {
		result = append(result, patientWithAge{Patient: p, Age: p.Age(now)})
	}

	utils.Success(c, "Patients fetched successfully", result)
}

// GetPatientByID fetches a single patient owned by the user.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Patient fetched successfully", patientWithAge{Patient: patient, Age: patient.Age(time.Now())})
}

// UpdatePatient updates a patient's record.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req PatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.CPF != patient.CPF {
		var existing models.Patient
		if err := h.DB.Where("user_id = ? AND cpf = ? AND id <> ?", userID, req.CPF, patient.ID).
			First(&existing).Error; err == nil {
			utils.Conflict(c, "A patient with this CPF already exists in your account")
			return
		} else if err != gorm.ErrRecordNotFound {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
	}

	patient.FullName = req.FullName
	patient.Gender = req.Gender
	patient.Phone = req.Phone
	patient.Street = req.Street
	patient.Neighborhood = req.Neighborhood
	patient.City = req.City
	patient.State = req.State
	patient.ZipCode = req.ZipCode
	patient.BirthDate = req.BirthDate
	patient.CPF = req.CPF

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient updated successfully", patient)
}

// DeletePatient removes a patient record.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	result := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).Delete(&models.Patient{})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to delete patient: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Patient not found")
		return
	}

	utils.Success(c, "Patient deleted successfully", nil)
}

// GetPatientInvoices lists the paid income transactions linked to a patient.
func (h *PatientHandler) GetPatientInvoices(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var invoices []models.Transaction
	if err := h.DB.
		Where("user_id = ? AND patient_id = ? AND type = ? AND is_paid = ?",
			userID, patient.ID, models.TransactionIncome, true).
		Order("payment_date desc").
		Find(&invoices).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch invoices: "+err.Error())
		return
	}

	utils.Success(c, "Invoices fetched successfully", invoices)
}
