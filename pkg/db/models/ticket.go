package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// Ticket is the unit of admission. SecretToken never leaves the backend
// except inside the signed QR payload and the offline scanner dataset.
type Ticket struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID          `gorm:"column:event_id;type:uuid;not null;index"`
	TicketTypeID uuid.UUID          `gorm:"column:ticket_type_id;type:uuid;not null"`
	Code         string             `gorm:"column:code;not null;uniqueIndex"`
	SecretToken  string             `gorm:"column:secret_token;not null"`
	Status       enums.TicketStatus `gorm:"column:status;type:ticket_status_enum;not null;default:'valid'"`
	HolderName   *string            `gorm:"column:holder_name"`
	UsedAt       *time.Time         `gorm:"column:used_at"`
	RefundedAt   *time.Time         `gorm:"column:refunded_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Event      *Event      `gorm:"foreignKey:EventID"`
	TicketType *TicketType `gorm:"foreignKey:TicketTypeID"`
}

func (Ticket) TableName() string {
	return "tickets"
}
