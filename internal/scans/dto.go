package scans

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// ScanInput carries one live scan attempt from a terminal.
type ScanInput struct {
	QRData         string
	OrganizationID uuid.UUID
	OperatorID     *uuid.UUID
	DeviceID       string
}

// AttemptInput is the shared decision-chain input. The live path fills it
// from a decoded QR payload; the batch path fills it from an offline record.
type AttemptInput struct {
	TicketID       uuid.UUID
	Signature      string
	HasSignature   bool
	OrganizationID uuid.UUID
	OperatorID     *uuid.UUID
	DeviceID       string
	ScannedAt      time.Time
	OfflineSync    bool
}

// TicketSummary is the operator-facing slice of a ticket.
type TicketSummary struct {
	ID         uuid.UUID          `json:"id"`
	Code       string             `json:"code"`
	Status     enums.TicketStatus `json:"status"`
	HolderName *string            `json:"holder_name,omitempty"`
	TicketType string             `json:"ticket_type,omitempty"`
	UsedAt     *time.Time         `json:"used_at,omitempty"`
}

// ScanOutcome is the structured result of one scan attempt. Every outcome
// a terminal can see is a value here, never an error.
type ScanOutcome struct {
	Success        bool             `json:"success"`
	Result         enums.ScanResult `json:"result"`
	Message        string           `json:"message"`
	Conflict       bool             `json:"conflict,omitempty"`
	Ticket         *TicketSummary   `json:"ticket,omitempty"`
	FirstScannedAt *time.Time       `json:"first_scanned_at,omitempty"`
	FirstDeviceID  string           `json:"first_device_id,omitempty"`
}
