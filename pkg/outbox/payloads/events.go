package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// TicketUsedEvent is emitted when a scan transitions a ticket to used.
type TicketUsedEvent struct {
	TicketID       uuid.UUID `json:"ticket_id"`
	EventID        uuid.UUID `json:"event_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	DeviceID       string    `json:"device_id"`
	ScannedAt      time.Time `json:"scanned_at"`
	OfflineSync    bool      `json:"offline_sync"`
}

// ScanRejectedEvent is emitted for rejections worth alerting on, notably
// cross-organization scan attempts and signature failures.
type ScanRejectedEvent struct {
	TicketID       uuid.UUID        `json:"ticket_id"`
	EventID        uuid.UUID        `json:"event_id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	DeviceID       string           `json:"device_id"`
	Result         enums.ScanResult `json:"result"`
	Reason         string           `json:"reason"`
	ScannedAt      time.Time        `json:"scanned_at"`
}

// DeviceSyncedEvent reports a completed offline batch reconciliation.
type DeviceSyncedEvent struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	DeviceID       string    `json:"device_id"`
	Processed      int       `json:"processed"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	Conflicts      int       `json:"conflicts"`
	SyncedAt       time.Time `json:"synced_at"`
}
