package models

import (
	"time"
)

// SalesStage is one column of the per-user sales pipeline board.
type SalesStage struct {
	BaseModel
	UserID        string `gorm:"size:36;index;not null" json:"userId"`
	Name          string `gorm:"size:255;not null" json:"name"`
	OrderPosition int    `gorm:"not null" json:"orderPosition"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// DefaultSalesStages are seeded for every new account on registration.
var DefaultSalesStages = []string{"Primeiro Contato", "Pendentes", "Negociação", "Fechamento"}

// SalesOpportunity is a prospective sale tracked through the pipeline.
type SalesOpportunity struct {
	BaseModel
	UserID         string     `gorm:"size:36;index;not null" json:"userId"`
	PatientID      *string    `gorm:"size:36;index" json:"patientId,omitempty"`
	StageID        string     `gorm:"size:36;index;not null" json:"stageId"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description,omitempty"`
	EstimatedValue float64    `gorm:"type:decimal(10,2)" json:"estimatedValue"`
	Label          string     `gorm:"size:100" json:"label,omitempty"`
	ContactDate    *time.Time `json:"contactDate,omitempty"`
	NextActionDate *time.Time `json:"nextActionDate,omitempty"`

	User    User        `gorm:"foreignKey:UserID" json:"-"`
	Patient *Patient    `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Stage   SalesStage  `gorm:"foreignKey:StageID" json:"-"`
	Notes   []SalesNote `gorm:"foreignKey:OpportunityID" json:"notes,omitempty"`
}

// SalesNote is a free-text annotation on an opportunity.
type SalesNote struct {
	BaseModel
	OpportunityID string `gorm:"size:36;index;not null" json:"opportunityId"`
	UserID        string `gorm:"size:36;index;not null" json:"userId"`
	Content       string `gorm:"type:text;not null" json:"content"`

	Opportunity SalesOpportunity `gorm:"foreignKey:OpportunityID" json:"-"`
	User        User             `gorm:"foreignKey:UserID" json:"-"`
}
