package models

// InventoryItem tracks clinic supplies by name and quantity.
type InventoryItem struct {
	BaseModel
	UserID   string `gorm:"size:36;index;not null" json:"userId"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Quantity int    `gorm:"default:0" json:"quantity"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
