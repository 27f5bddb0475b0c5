package handlers

import (
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LabelHandler handles appointment label endpoints.
type LabelHandler struct {
	DB *gorm.DB
}

// NewLabelHandler creates a new LabelHandler.
func NewLabelHandler(db *gorm.DB) *LabelHandler {
	return &LabelHandler{DB: db}
}

// GetLabels lists the user's active labels.
func (h *LabelHandler) GetLabels(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var labels []models.Label
	if err := h.DB.Where("user_id = ? AND is_active = ?", userID, true).
		Order("name asc").
		Find(&labels).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch labels: "+err.Error())
		return
	}

	utils.Success(c, "Labels fetched successfully", labels)
}

// LabelRequest represents the request body for creating or updating a label.
type LabelRequest struct {
	Name        string `json:"name" binding:"required"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// CreateLabel creates a label.
func (h *LabelHandler) CreateLabel(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req LabelRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	label := models.Label{
		UserID:      userID,
		Name:        req.Name,
		Color:       req.Color,
		Icon:        req.Icon,
		Description: req.Description,
		IsActive:    true,
	}
	if err := h.DB.Create(&label).Error; err != nil {
		utils.InternalServerError(c, "Failed to create label: "+err.Error())
		return
	}

	utils.Created(c, "Label created successfully", label)
}

// UpdateLabel updates a label.
func (h *LabelHandler) UpdateLabel(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var label models.Label
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&label).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Label not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req LabelRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	label.Name = req.Name
	label.Color = req.Color
	label.Icon = req.Icon
	label.Description = req.Description
	if err := h.DB.Save(&label).Error; err != nil {
		utils.InternalServerError(c, "Failed to update label: "+err.Error())
		return
	}

	utils.Success(c, "Label updated successfully", label)
}

// DeleteLabel deactivates a label. Appointments keep their reference so the
// row is soft-disabled rather than removed.
func (h *LabelHandler) DeleteLabel(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	result := h.DB.Model(&models.Label{}).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Update("is_active", false)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to delete label: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Label not found")
		return
	}

	utils.Success(c, "Label deleted successfully", nil)
}
