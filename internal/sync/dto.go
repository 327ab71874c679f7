package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// BatchRecord is one offline scan as reported by a scanner device. The
// timestamp is the device's local clock reading at scan time, RFC 3339.
type BatchRecord struct {
	TicketID  string `json:"ticket_id" validate:"required"`
	ScannedAt string `json:"scanned_at" validate:"required"`
	Result    string `json:"result,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
}

// BatchInput is a device's queued offline scans submitted for reconciliation.
type BatchInput struct {
	Records        []BatchRecord
	OrganizationID uuid.UUID
	OperatorID     *uuid.UUID
	DeviceID       string
}

// RecordError describes why one record could not be admitted.
type RecordError struct {
	TicketID string `json:"ticket_id"`
	Error    string `json:"error"`
}

// BatchResult summarizes one reconciliation run. A record that wins a
// timestamp conflict counts as both successful and a conflict.
type BatchResult struct {
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Conflicts  int           `json:"conflicts"`
	Errors     []RecordError `json:"errors"`
}

// DatasetInput requests the offline validation dataset for one event.
type DatasetInput struct {
	EventID        uuid.UUID
	OrganizationID uuid.UUID
	OperatorID     *uuid.UUID
	DeviceID       string
}

// DatasetEvent is the event header shipped with an offline dataset.
type DatasetEvent struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Venue     *string    `json:"venue,omitempty"`
	GateNames []string   `json:"gate_names,omitempty"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

// DatasetTicket carries everything a device needs to validate a ticket
// without network access, including the per-ticket signing token.
type DatasetTicket struct {
	ID          uuid.UUID          `json:"id"`
	Code        string             `json:"code"`
	SecretToken string             `json:"secret_token"`
	Status      enums.TicketStatus `json:"status"`
	TicketType  string             `json:"ticket_type,omitempty"`
	HolderName  *string            `json:"holder_name,omitempty"`
	UsedAt      *time.Time         `json:"used_at,omitempty"`
}

// DatasetOutput is the complete offline validation dataset for one event.
type DatasetOutput struct {
	Event    DatasetEvent    `json:"event"`
	Tickets  []DatasetTicket `json:"tickets"`
	DeviceID string          `json:"device_id"`
	SyncedAt time.Time       `json:"synced_at"`
}
