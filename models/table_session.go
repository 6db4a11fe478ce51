package models

import "time"

// TableSession is the single source of truth for table occupancy. CurrentCount
// caches the number of active GuestSession rows; Version is bumped on every
// occupant mutation and is the compare-and-swap token for concurrent joins.
type TableSession struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TableID      uint      `gorm:"uniqueIndex;not null" json:"table_id"`
	Table        Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CurrentCount int       `gorm:"not null;default:0" json:"current_count"`
	Version      uint      `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

const (
	GuestSessionActive  = "active"
	GuestSessionLeft    = "left"
	GuestSessionExpired = "expired"
)

type GuestSession struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionKey  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_key"`
	TableID     uint      `gorm:"not null;index" json:"table_id"`
	Table       Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	DeviceToken string    `gorm:"type:varchar(128);not null;index" json:"-"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
	LastSeenAt  time.Time `gorm:"not null" json:"last_seen_at"`
}
