package enums

// OutboxEventType names the domain events emitted by the scan engine.
type OutboxEventType string

const (
	EventTicketUsed   OutboxEventType = "scan.ticket_used"
	EventScanRejected OutboxEventType = "scan.rejected"
	EventDeviceSynced OutboxEventType = "scan.device_synced"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTicketUsed,
	EventScanRejected,
	EventDeviceSynced,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateTicket        OutboxAggregateType = "ticket"
	AggregateScannerDevice OutboxAggregateType = "scanner_device"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	return t == AggregateTicket || t == AggregateScannerDevice
}

// OutboxDLQErrorReason classifies why an outbox event was dead-lettered.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts     OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonInvalidPayload  OutboxDLQErrorReason = "invalid_payload"
	DLQReasonPublishRejected OutboxDLQErrorReason = "publish_rejected"
)
