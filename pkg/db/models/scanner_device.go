package models

import (
	"time"

	"github.com/google/uuid"
)

// ScannerDevice tracks a handheld or gate scanner known to a tenant.
// Rows are upserted on contact and never deleted.
type ScannerDevice struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_scanner_devices_org_device"`
	DeviceID       string     `gorm:"column:device_id;not null;uniqueIndex:idx_scanner_devices_org_device"`
	Label          *string    `gorm:"column:label"`
	LastSyncAt     *time.Time `gorm:"column:last_sync_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ScannerDevice) TableName() string {
	return "scanner_devices"
}
