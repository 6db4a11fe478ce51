package models

import "time"

type Order struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	RestaurantID uint             `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant       `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	TableID      *uint            `gorm:"index" json:"table_id,omitempty"`
	Table        *Table           `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	Status       OrderStatus      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount  float64          `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	Version      uint             `gorm:"not null;default:0" json:"version"`
	CreatedBy    string           `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt    time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"not null" json:"updated_at"`
	OrderItems   []OrderItem      `gorm:"foreignKey:OrderID" json:"order_items"`
	StatusLogs   []OrderStatusLog `gorm:"foreignKey:OrderID" json:"status_logs"`
}

// OrderStatusLog is append-only; rows are never updated or deleted.
type OrderStatusLog struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	ChangedBy string      `gorm:"type:varchar(64);not null" json:"changed_by"`
	ChangedAt time.Time   `gorm:"not null" json:"changed_at"`
}
