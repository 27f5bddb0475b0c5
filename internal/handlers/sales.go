package handlers

import (
	"time"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SalesHandler handles the sales pipeline endpoints.
type SalesHandler struct {
	DB *gorm.DB
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(db *gorm.DB) *SalesHandler {
	return &SalesHandler{DB: db}
}

// GetStages lists the user's pipeline stages in board order.
func (h *SalesHandler) GetStages(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var stages []models.SalesStage
	if err := h.DB.Where("user_id = ?", userID).
		Order("order_position asc").
		Find(&stages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch stages: "+err.Error())
		return
	}

	utils.Success(c, "Stages fetched successfully", stages)
}

// CreateStageRequest represents the request body for creating a stage.
type CreateStageRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateStage appends a new stage to the end of the board.
func (h *SalesHandler) CreateStage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateStageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var maxPosition int
	if err := h.DB.Model(&models.SalesStage{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(order_position), 0)").
		Scan(&maxPosition).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	stage := models.SalesStage{
		UserID:        userID,
		Name:          req.Name,
		OrderPosition: maxPosition + 1,
	}
	if err := h.DB.Create(&stage).Error; err != nil {
		utils.InternalServerError(c, "Failed to create stage: "+err.Error())
		return
	}

	utils.Created(c, "Stage created successfully", stage)
}

// UpdateStageRequest represents the request body for updating a stage.
type UpdateStageRequest struct {
	Name          string `json:"name" binding:"required"`
	OrderPosition *int   `json:"orderPosition"`
}

// UpdateStage renames a stage or moves it on the board.
func (h *SalesHandler) UpdateStage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var stage models.SalesStage
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&stage).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Stage not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req UpdateStageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	stage.Name = req.Name
	if req.OrderPosition != nil {
		stage.OrderPosition = *req.OrderPosition
	}
	if err := h.DB.Save(&stage).Error; err != nil {
		utils.InternalServerError(c, "Failed to update stage: "+err.Error())
		return
	}

	utils.Success(c, "Stage updated successfully", stage)
}

// DeleteStage removes an empty stage. Stages still holding opportunities
// cannot be deleted.
func (h *SalesHandler) DeleteStage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var stage models.SalesStage
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&stage).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Stage not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var count int64
	if err := h.DB.Model(&models.SalesOpportunity{}).
		Where("stage_id = ?", stage.ID).Count(&count).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if count > 0 {
		utils.BadRequest(c, "Move or delete the opportunities in this stage first")
		return
	}

	if err := h.DB.Delete(&stage).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete stage: "+err.Error())
		return
	}

	utils.Success(c, "Stage deleted successfully", nil)
}

// GetOpportunities lists opportunities, optionally filtered by stage.
func (h *SalesHandler) GetOpportunities(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	query := h.DB.Preload("Patient").Preload("Notes").Where("user_id = ?", userID)
	if stageID := c.Query("stageId"); stageID != "" {
		query = query.Where("stage_id = ?", stageID)
	}

	var opportunities []models.SalesOpportunity
	if err := query.Order("created_at desc").Find(&opportunities).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch opportunities: "+err.Error())
		return
	}

	utils.Success(c, "Opportunities fetched successfully", opportunities)
}

// OpportunityRequest represents the request body for creating or updating
// an opportunity.
type OpportunityRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	StageID        string     `json:"stageId" binding:"required"`
	PatientID      *string    `json:"patientId"`
	EstimatedValue float64    `json:"estimatedValue"`
	Label          string     `json:"label"`
	ContactDate    *time.Time `json:"contactDate"`
	NextActionDate *time.Time `json:"nextActionDate"`
}

func (h *SalesHandler) verifyStage(c *gin.Context, userID, stageID string) bool {
	var stage models.SalesStage
	if err := h.DB.Where("id = ? AND user_id = ?", stageID, userID).First(&stage).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Stage not found")
		} else {
			utils.InternalServerError(c, "Database error verifying stage: "+err.Error())
		}
		return false
	}
	return true
}

// CreateOpportunity adds an opportunity to a stage.
func (h *SalesHandler) CreateOpportunity(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req OpportunityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !h.verifyStage(c, userID, req.StageID) {
		return
	}

	opportunity := models.SalesOpportunity{
		UserID:         userID,
		PatientID:      req.PatientID,
		StageID:        req.StageID,
		Title:          req.Title,
		Description:    req.Description,
		EstimatedValue: req.EstimatedValue,
		Label:          req.Label,
		ContactDate:    req.ContactDate,
		NextActionDate: req.NextActionDate,
	}
	if err := h.DB.Create(&opportunity).Error; err != nil {
		utils.InternalServerError(c, "Failed to create opportunity: "+err.Error())
		return
	}

	utils.Created(c, "Opportunity created successfully", opportunity)
}

// UpdateOpportunity updates an opportunity, including stage moves.
func (h *SalesHandler) UpdateOpportunity(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var opportunity models.SalesOpportunity
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&opportunity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Opportunity not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req OpportunityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.StageID != opportunity.StageID && !h.verifyStage(c, userID, req.StageID) {
		return
	}

	opportunity.Title = req.Title
	opportunity.Description = req.Description
	opportunity.StageID = req.StageID
	opportunity.PatientID = req.PatientID
	opportunity.EstimatedValue = req.EstimatedValue
	opportunity.Label = req.Label
	opportunity.ContactDate = req.ContactDate
	opportunity.NextActionDate = req.NextActionDate

	if err := h.DB.Save(&opportunity).Error; err != nil {
		utils.InternalServerError(c, "Failed to update opportunity: "+err.Error())
		return
	}

	utils.Success(c, "Opportunity updated successfully", opportunity)
}

// DeleteOpportunity removes an opportunity and its notes.
func (h *SalesHandler) DeleteOpportunity(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var opportunity models.SalesOpportunity
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&opportunity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Opportunity not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("opportunity_id = ?", opportunity.ID).
			Delete(&models.SalesNote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&opportunity).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete opportunity: "+err.Error())
		return
	}

	utils.Success(c, "Opportunity deleted successfully", nil)
}

// NoteRequest represents the request body for creating a note.
type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateNote attaches a note to an opportunity.
func (h *SalesHandler) CreateNote(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var opportunity models.SalesOpportunity
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&opportunity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Opportunity not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req NoteRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	note := models.SalesNote{
		OpportunityID: opportunity.ID,
		UserID:        userID,
		Content:       req.Content,
	}
	if err := h.DB.Create(&note).Error; err != nil {
		utils.InternalServerError(c, "Failed to create note: "+err.Error())
		return
	}

	utils.Created(c, "Note created successfully", note)
}

// DeleteNote removes a note from an opportunity.
func (h *SalesHandler) DeleteNote(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	result := h.DB.Where("id = ? AND user_id = ?", c.Param("noteId"), userID).
		Delete(&models.SalesNote{})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to delete note: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Note not found")
		return
	}

	utils.Success(c, "Note deleted successfully", nil)
}
