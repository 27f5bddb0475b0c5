package models

// Label is a user-defined tag that can be attached to appointments.
type Label struct {
	BaseModel
	UserID      string `gorm:"size:36;index;not null" json:"userId"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Color       string `gorm:"size:50" json:"color,omitempty"`
	Icon        string `gorm:"size:50" json:"icon,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
