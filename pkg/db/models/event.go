package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Event is a scannable occasion owned by one organization.
type Event struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID      `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string         `gorm:"column:name;not null"`
	Venue          *string        `gorm:"column:venue"`
	GateNames      pq.StringArray `gorm:"column:gate_names;type:text[]"`
	StartsAt       time.Time      `gorm:"column:starts_at;not null"`
	EndsAt         *time.Time     `gorm:"column:ends_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	Organization *Organization `gorm:"foreignKey:OrganizationID"`
}

func (Event) TableName() string {
	return "events"
}
