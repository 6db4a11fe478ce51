package models

import "time"

type Table struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	RestaurantID    uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant      Restaurant `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	TableNumber     string     `gorm:"type:varchar(50);not null" json:"table_number"`
	Capacity        int        `gorm:"not null;default:4" json:"capacity"`
	EnforceCapacity bool       `gorm:"not null;default:true" json:"enforce_capacity"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}
