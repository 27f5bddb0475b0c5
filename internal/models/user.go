package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SubscriptionStatus enum
type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// User represents a practitioner account. Each user is a tenant: every
// patient, appointment, transaction and pipeline row hangs off a user.
type User struct {
	BaseModel
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Name     string `gorm:"size:255;not null" json:"name"`
	Phone    string `gorm:"size:50" json:"phone,omitempty"`

	// Billing-provider state, kept in sync by the subscription webhook
	BillingCustomerID     string             `gorm:"size:255" json:"-"`
	SubscriptionID        string             `gorm:"size:255" json:"-"`
	SubscriptionStatus    SubscriptionStatus `gorm:"size:20;default:'inactive'" json:"subscriptionStatus"`
	SubscriptionStartDate *time.Time         `json:"subscriptionStartDate,omitempty"`
	SubscriptionEndDate   *time.Time         `json:"subscriptionEndDate,omitempty"`

	// Relations (not always preloaded)
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	Patients      []Patient      `gorm:"foreignKey:UserID" json:"-"`
	Appointments  []Appointment  `gorm:"foreignKey:UserID" json:"-"`
	Transactions  []Transaction  `gorm:"foreignKey:UserID" json:"-"`
}

// HasSubscriptionAccess reports whether the user may reach paid features:
// an active or trialing subscription, or a canceled one still inside the
// period that was already paid for.
func (u *User) HasSubscriptionAccess(now time.Time) bool {
	switch u.SubscriptionStatus {
	case SubscriptionActive, SubscriptionTrialing:
		return true
	case SubscriptionCanceled:
		return u.SubscriptionEndDate != nil && u.SubscriptionEndDate.After(now)
	default:
		return false
	}
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	Phone              string             `json:"phone,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Phone:              u.Phone,
		SubscriptionStatus: u.SubscriptionStatus,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
