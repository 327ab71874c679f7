package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// ScanLog is one immutable row per scan attempt. The table is append-only;
// no repository exposes update or delete for it.
type ScanLog struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TicketID       uuid.UUID        `gorm:"column:ticket_id;type:uuid;not null;index"`
	EventID        *uuid.UUID       `gorm:"column:event_id;type:uuid;index"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	DeviceID       string           `gorm:"column:device_id;not null"`
	OperatorID     *uuid.UUID       `gorm:"column:operator_id;type:uuid"`
	Result         enums.ScanResult `gorm:"column:result;type:scan_result_enum;not null"`
	Reason         *string          `gorm:"column:reason"`
	ScannedAt      time.Time        `gorm:"column:scanned_at;not null;index"`
	OfflineSync    bool             `gorm:"column:offline_sync;not null;default:false"`
	SyncedAt       *time.Time       `gorm:"column:synced_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (ScanLog) TableName() string {
	return "scan_logs"
}
