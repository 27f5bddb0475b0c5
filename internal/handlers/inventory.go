package handlers

import (
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InventoryHandler handles clinic supply tracking endpoints.
type InventoryHandler struct {
	DB *gorm.DB
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(db *gorm.DB) *InventoryHandler {
	return &InventoryHandler{DB: db}
}

// GetItems lists all inventory items for the user.
func (h *InventoryHandler) GetItems(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var items []models.InventoryItem
	if err := h.DB.Where("user_id = ?", userID).
		Order("name asc").
		Find(&items).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch items: "+err.Error())
		return
	}

	utils.Success(c, "Items fetched successfully", items)
}

// InventoryItemRequest represents the request body for creating or updating
// an inventory item.
type InventoryItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity *int   `json:"quantity" binding:"required,min=0"`
}

// CreateItem creates an inventory item.
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req InventoryItemRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	item := models.InventoryItem{
		UserID:   userID,
		Name:     req.Name,
		Quantity: *req.Quantity,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		utils.InternalServerError(c, "Failed to create item: "+err.Error())
		return
	}

	utils.Created(c, "Item created successfully", item)
}

// UpdateItem updates an inventory item's name and quantity.
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var item models.InventoryItem
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Item not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req InventoryItemRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	item.Name = req.Name
	item.Quantity = *req.Quantity
	if err := h.DB.Save(&item).Error; err != nil {
		utils.InternalServerError(c, "Failed to update item: "+err.Error())
		return
	}

	utils.Success(c, "Item updated successfully", item)
}

// DeleteItem removes an inventory item.
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	result := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.InventoryItem{})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to delete item: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Item not found")
		return
	}

	utils.Success(c, "Item deleted successfully", nil)
}
