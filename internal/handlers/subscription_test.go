package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newSubscriptionRouter(t *testing.T, db *gorm.DB, cfg *config.Config, userID string) *gin.Engine {
	t.Helper()
	h := NewSubscriptionHandler(db, cfg)
	r := gin.New()
	r.POST("/subscription/webhook", h.Webhook)
	authed := r.Group("")
	authed.Use(asUser(userID))
	{
		authed.GET("/subscription/status", h.GetStatus)
		authed.POST("/subscription/cancel", h.Cancel)
		authed.POST("/subscription/reactivate", h.Reactivate)
	}
	return r
}

func TestSubscriptionWebhook(t *testing.T) {
	cfg := testConfig()
	cfg.Billing.WebhookSecret = "whsec_test"

	postEvent := func(t *testing.T, r *gin.Engine, secret string, body gin.H) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/subscription/webhook", jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set("X-Webhook-Secret", secret)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("activation event updates the user", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		user.SubscriptionStatus = models.SubscriptionInactive
		if err := db.Save(&user).Error; err != nil {
			t.Fatal(err)
		}
		r := newSubscriptionRouter(t, db, cfg, user.ID)

		end := time.Now().Add(30 * 24 * time.Hour)
		w := postEvent(t, r, "whsec_test", gin.H{
			"event":          "subscription.created",
			"customerId":     "cus_123",
			"subscriptionId": "sub_456",
			"customerEmail":  "dr@example.com",
			"endDate":        end,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var updated models.User
		if err := db.First(&updated, "id = ?", user.ID).Error; err != nil {
			t.Fatal(err)
		}
		if updated.SubscriptionStatus != models.SubscriptionActive {
			t.Errorf("status = %s, want active", updated.SubscriptionStatus)
		}
		if updated.BillingCustomerID != "cus_123" || updated.SubscriptionID != "sub_456" {
			t.Errorf("billing identifiers = %q/%q", updated.BillingCustomerID, updated.SubscriptionID)
		}
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		r := newSubscriptionRouter(t, db, cfg, user.ID)

		w := postEvent(t, r, "wrong", gin.H{
			"event": "subscription.created", "customerId": "cus_123",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("payment failure moves to past_due", func(t *testing.T) {
		db := newTestDB(t)
		user := seedUser(t, db, "dr@example.com")
		user.BillingCustomerID = "cus_123"
		if err := db.Save(&user).Error; err != nil {
			t.Fatal(err)
		}
		r := newSubscriptionRouter(t, db, cfg, user.ID)

		w := postEvent(t, r, "whsec_test", gin.H{
			"event": "payment.failed", "customerId": "cus_123",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var updated models.User
		if err := db.First(&updated, "id = ?", user.ID).Error; err != nil {
			t.Fatal(err)
		}
		if updated.SubscriptionStatus != models.SubscriptionPastDue {
			t.Errorf("status = %s, want past_due", updated.SubscriptionStatus)
		}
	})
}

func TestCancelAndReactivate(t *testing.T) {
	cfg := testConfig()
	db := newTestDB(t)
	user := seedUser(t, db, "dr@example.com")
	end := time.Now().Add(20 * 24 * time.Hour)
	user.SubscriptionEndDate = &end
	if err := db.Save(&user).Error; err != nil {
		t.Fatal(err)
	}
	r := newSubscriptionRouter(t, db, cfg, user.ID)

	w := doJSON(t, r, http.MethodPost, "/subscription/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %s", w.Code, w.Body.String())
	}

	// Canceled inside the paid period still grants access.
	var canceled models.User
	if err := db.First(&canceled, "id = ?", user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if canceled.SubscriptionStatus != models.SubscriptionCanceled {
		t.Fatalf("status = %s, want canceled", canceled.SubscriptionStatus)
	}
	if !canceled.HasSubscriptionAccess(time.Now()) {
		t.Fatal("canceled subscription inside paid period lost access")
	}

	w = doJSON(t, r, http.MethodPost, "/subscription/reactivate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reactivate status = %d, body = %s", w.Code, w.Body.String())
	}
	var reactivated models.User
	if err := db.First(&reactivated, "id = ?", user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if reactivated.SubscriptionStatus != models.SubscriptionActive {
		t.Fatalf("status = %s, want active", reactivated.SubscriptionStatus)
	}
}

func TestSubscriptionMiddlewareGatesPaidFeatures(t *testing.T) {
	db := newTestDB(t)
	active := seedUser(t, db, "active@example.com")
	inactive := seedUser(t, db, "inactive@example.com")
	inactive.SubscriptionStatus = models.SubscriptionInactive
	if err := db.Save(&inactive).Error; err != nil {
		t.Fatal(err)
	}

	newRouter := func(userID string) *gin.Engine {
		r := gin.New()
		r.Use(asUser(userID), middleware.SubscriptionMiddleware(db))
		r.GET("/paid", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	if w := doJSON(t, newRouter(active.ID), http.MethodGet, "/paid", nil); w.Code != http.StatusOK {
		t.Fatalf("active user status = %d, want 200", w.Code)
	}
	if w := doJSON(t, newRouter(inactive.ID), http.MethodGet, "/paid", nil); w.Code != http.StatusForbidden {
		t.Fatalf("inactive user status = %d, want 403", w.Code)
	}
}
