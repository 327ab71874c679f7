package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketType labels a tier of admission within an event (GA, VIP, crew).
type TicketType struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (TicketType) TableName() string {
	return "ticket_types"
}
