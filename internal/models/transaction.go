package models

import (
	"time"
)

// TransactionType separates income from expenses in the cash flow.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Payment types accepted by the cash flow endpoints.
var ValidPaymentTypes = []string{"Dinheiro", "PIX", "Cartão", "Transferência"}

// Transaction represents a cash flow entry. An installment plan keeps the
// per-installment amounts in Installments and zeroes Amount on the parent.
type Transaction struct {
	BaseModel
	UserID      string          `gorm:"size:36;index;not null" json:"userId"`
	PatientID   *string         `gorm:"size:36;index" json:"patientId,omitempty"`
	Type        TransactionType `gorm:"size:50;not null" json:"type"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Category    string          `gorm:"size:100" json:"category,omitempty"`
	Amount      float64         `gorm:"type:decimal(10,2);not null" json:"amount"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	PaymentDate *time.Time      `json:"paymentDate,omitempty"`
	IsPaid      bool            `gorm:"default:false" json:"isPaid"`
	Recurrence  string          `gorm:"type:text" json:"recurrence,omitempty"`
	PaymentType string          `gorm:"size:50" json:"paymentType,omitempty"`

	User         User          `gorm:"foreignKey:UserID" json:"-"`
	Patient      *Patient      `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Installments []Installment `gorm:"foreignKey:TransactionID" json:"installments,omitempty"`
}

// Installment is one slice of an installment plan attached to a transaction.
type Installment struct {
	BaseModel
	TransactionID     string     `gorm:"size:36;index;not null" json:"transactionId"`
	InstallmentNumber int        `gorm:"not null" json:"installmentNumber"`
	Amount            float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	DueDate           time.Time  `gorm:"not null" json:"dueDate"`
	PaymentDate       *time.Time `json:"paymentDate,omitempty"`
	IsPaid            bool       `gorm:"default:false" json:"isPaid"`

	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"-"`
}
