package middleware

import (
	"time"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubscriptionMiddleware gates paid features. It must run after
// AuthMiddleware. Access requires an active or trialing subscription, or a
// canceled one whose paid period has not yet ended.
func SubscriptionMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserIDFromContext(c)
		if !exists {
			utils.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}

		var user models.User
		if err := db.Select("subscription_status", "subscription_end_date").
			First(&user, "id = ?", userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "User not found")
			} else {
				utils.InternalServerError(c, "Database error checking subscription: "+err.Error())
			}
			c.Abort()
			return
		}

		if !user.HasSubscriptionAccess(time.Now()) {
			utils.Forbidden(c, "An active subscription is required to access this feature.")
			c.Abort()
			return
		}

		c.Next()
	}
}
