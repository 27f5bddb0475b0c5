package handlers

import (
	"crypto/subtle"
	"time"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubscriptionHandler handles billing status queries and the provider
// webhook that keeps the user's subscription columns in sync.
type SubscriptionHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(db *gorm.DB, cfg *config.Config) *SubscriptionHandler {
	return &SubscriptionHandler{DB: db, Cfg: cfg}
}

// GetStatus returns the user's subscription state and whether paid features
// are currently reachable.
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch user: "+err.Error())
		return
	}

	utils.Success(c, "Subscription status fetched", gin.H{
		"status":    user.SubscriptionStatus,
		"hasAccess": user.HasSubscriptionAccess(time.Now()),
		"startDate": user.SubscriptionStartDate,
		"endDate":   user.SubscriptionEndDate,
	})
}

// Cancel marks the subscription canceled; access remains until the paid
// period ends.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch user: "+err.Error())
		return
	}

	if user.SubscriptionStatus != models.SubscriptionActive &&
		user.SubscriptionStatus != models.SubscriptionTrialing {
		utils.BadRequest(c, "No active subscription to cancel")
		return
	}

	user.SubscriptionStatus = models.SubscriptionCanceled
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to cancel subscription: "+err.Error())
		return
	}

	utils.Success(c, "Subscription canceled", gin.H{
		"status":  user.SubscriptionStatus,
		"endDate": user.SubscriptionEndDate,
	})
}

// Reactivate restores a canceled subscription that is still inside its paid
// period.
func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch user: "+err.Error())
		return
	}

	if user.SubscriptionStatus != models.SubscriptionCanceled {
		utils.BadRequest(c, "Only canceled subscriptions can be reactivated")
		return
	}
	if user.SubscriptionEndDate == nil || !user.SubscriptionEndDate.After(time.Now()) {
		utils.BadRequest(c, "Subscription period has already ended")
		return
	}

	user.SubscriptionStatus = models.SubscriptionActive
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to reactivate subscription: "+err.Error())
		return
	}

	utils.Success(c, "Subscription reactivated", gin.H{"status": user.SubscriptionStatus})
}

// WebhookEvent is the payload the billing provider posts on subscription
// lifecycle changes.
type WebhookEvent struct {
	Event          string     `json:"event" binding:"required"`
	CustomerID     string     `json:"customerId" binding:"required"`
	SubscriptionID string     `json:"subscriptionId"`
	CustomerEmail  string     `json:"customerEmail"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
}

// Webhook applies a billing-provider event to the matching user row. The
// request must carry the shared secret in the X-Webhook-Secret header.
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	secret := h.Cfg.Billing.WebhookSecret
	if secret == "" {
		utils.InternalServerError(c, "Webhook secret not configured")
		return
	}
	provided := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		utils.Unauthorized(c, "Invalid webhook secret")
		return
	}

	var event WebhookEvent
	if !utils.BindAndValidate(c, &event) {
		return
	}

	var user models.User
	query := h.DB.Where("billing_customer_id = ?", event.CustomerID)
	if event.CustomerEmail != "" {
		query = h.DB.Where("billing_customer_id = ? OR email = ?", event.CustomerID, event.CustomerEmail)
	}
	if err := query.First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "No account matches this customer")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	user.BillingCustomerID = event.CustomerID
	if event.SubscriptionID != "" {
		user.SubscriptionID = event.SubscriptionID
	}

	switch event.Event {
	case "subscription.created", "subscription.renewed", "payment.confirmed":
		user.SubscriptionStatus = models.SubscriptionActive
		user.SubscriptionStartDate = event.StartDate
		user.SubscriptionEndDate = event.EndDate
	case "subscription.trial_started":
		user.SubscriptionStatus = models.SubscriptionTrialing
		user.SubscriptionStartDate = event.StartDate
		user.SubscriptionEndDate = event.EndDate
	case "subscription.canceled":
		user.SubscriptionStatus = models.SubscriptionCanceled
		if event.EndDate != nil {
			user.SubscriptionEndDate = event.EndDate
		}
	case "payment.failed":
		user.SubscriptionStatus = models.SubscriptionPastDue
	case "subscription.expired":
		user.SubscriptionStatus = models.SubscriptionInactive
	default:
		utils.BadRequest(c, "Unknown event type: "+event.Event)
		return
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to apply event: "+err.Error())
		return
	}

	utils.Success(c, "Event applied", gin.H{"status": user.SubscriptionStatus})
}
