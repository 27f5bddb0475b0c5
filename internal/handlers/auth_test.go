package handlers

import (
	"net/http"
	"testing"

	"clinic-app-server/internal/models"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *AuthHandler) {
	t.Helper()
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig())
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh-token", h.RefreshToken)
	return r, h
}

func TestRegister(t *testing.T) {
	t.Run("creates the account with default pipeline stages", func(t *testing.T) {
		r, h := newAuthRouter(t)

		w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
			"name":     "Dr. Souza",
			"email":    "Dr.Souza@Example.com",
			"phone":    "11987654321",
			"password": "strongpassword",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var user models.User
		if err := h.DB.First(&user, "email = ?", "dr.souza@example.com").Error; err != nil {
			t.Fatalf("user not stored under normalized email: %v", err)
		}
		if user.SubscriptionStatus != models.SubscriptionInactive {
			t.Errorf("subscription status = %s, want inactive", user.SubscriptionStatus)
		}

		var stages []models.SalesStage
		if err := h.DB.Where("user_id = ?", user.ID).Order("order_position asc").Find(&stages).Error; err != nil {
			t.Fatal(err)
		}
		if len(stages) != len(models.DefaultSalesStages) {
			t.Fatalf("got %d stages, want %d", len(stages), len(models.DefaultSalesStages))
		}
		for i, name := range models.DefaultSalesStages {
			if stages[i].Name != name {
				t.Errorf("stage %d = %q, want %q", i, stages[i].Name, name)
			}
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		r, _ := newAuthRouter(t)
		body := gin.H{"name": "A", "email": "a@b.com", "phone": "1", "password": "strongpassword"}

		if w := doJSON(t, r, http.MethodPost, "/auth/register", body); w.Code != http.StatusCreated {
			t.Fatalf("first register status = %d", w.Code)
		}
		if w := doJSON(t, r, http.MethodPost, "/auth/register", body); w.Code != http.StatusConflict {
			t.Fatalf("second register status = %d, want 409", w.Code)
		}
	})

	t.Run("short password rejected", func(t *testing.T) {
		r, _ := newAuthRouter(t)
		w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
			"name": "A", "email": "a@b.com", "phone": "1", "password": "short",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestLogin(t *testing.T) {
	r, h := newAuthRouter(t)
	seedUser(t, h.DB, "dr@example.com")

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
			"email": "dr@example.com", "password": "strongpassword",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var resp LoginResponse
		decodeData(t, w, &resp)
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			t.Fatal("missing tokens in response")
		}

		var stored models.RefreshToken
		if err := h.DB.First(&stored, "token = ?", resp.RefreshToken).Error; err != nil {
			t.Fatalf("refresh token not persisted: %v", err)
		}
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
			"email": "dr@example.com", "password": "wrongpassword",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("unknown email is unauthorized", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
			"email": "nobody@example.com", "password": "strongpassword",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestRefreshTokenRotation(t *testing.T) {
	r, h := newAuthRouter(t)
	seedUser(t, h.DB, "dr@example.com")

	login := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email": "dr@example.com", "password": "strongpassword",
	})
	var loginResp LoginResponse
	decodeData(t, login, &loginResp)

	w := doJSON(t, r, http.MethodPost, "/auth/refresh-token", gin.H{
		"refreshToken": loginResp.RefreshToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", w.Code, w.Body.String())
	}
	var refreshResp RefreshTokenResponse
	decodeData(t, w, &refreshResp)
	if refreshResp.RefreshToken == loginResp.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The old token is revoked and cannot be used again.
	var old models.RefreshToken
	if err := h.DB.First(&old, "token = ?", loginResp.RefreshToken).Error; err != nil {
		t.Fatal(err)
	}
	if !old.IsRevoked {
		t.Fatal("old refresh token not revoked")
	}
	again := doJSON(t, r, http.MethodPost, "/auth/refresh-token", gin.H{
		"refreshToken": loginResp.RefreshToken,
	})
	if again.Code != http.StatusUnauthorized {
		t.Fatalf("reusing revoked token status = %d, want 401", again.Code)
	}
}
