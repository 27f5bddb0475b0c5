package models

import (
	"time"
)

// Patient represents a patient record owned by a clinic user.
// PatientNumber is a per-user sequential number shown on the chart.
type Patient struct {
	BaseModel
	UserID        string     `gorm:"size:36;index;index:idx_patients_user_cpf,unique;not null" json:"userId"`
	PatientNumber int        `gorm:"not null" json:"patientNumber"`
	FullName      string     `gorm:"size:255;not null" json:"fullName"`
	Gender        string     `gorm:"size:50" json:"gender,omitempty"`
	Phone         string     `gorm:"size:50" json:"phone,omitempty"`
	Street        string     `gorm:"size:255" json:"street,omitempty"`
	Neighborhood  string     `gorm:"size:255" json:"neighborhood,omitempty"`
	City          string     `gorm:"size:255" json:"city,omitempty"`
	State         string     `gorm:"size:10" json:"state,omitempty"`
	ZipCode       string     `gorm:"size:20" json:"zipCode,omitempty"`
	BirthDate     *time.Time `json:"birthDate,omitempty"`
	CPF           string     `gorm:"size:20;index:idx_patients_user_cpf,unique" json:"cpf"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Age computes the patient's age in full years at the given instant.
// Returns nil when no birth date is on file.
func (p *Patient) Age(now time.Time) *int {
	if p.BirthDate == nil {
		return nil
	}
	age := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	return &age
}
