package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/venuetix/venuetix-backend/internal/devices"
	"github.com/venuetix/venuetix-backend/internal/scans"
	"github.com/venuetix/venuetix-backend/internal/tickets"
	"github.com/venuetix/venuetix-backend/pkg/enums"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
	"github.com/venuetix/venuetix-backend/pkg/metrics"
	"github.com/venuetix/venuetix-backend/pkg/outbox"
	"github.com/venuetix/venuetix-backend/pkg/outbox/payloads"
)

const msgBadTimestamp = "Invalid scannedAt timestamp"

// Engine is the per-record decision chain shared with the live scan path.
type Engine interface {
	Attempt(ctx context.Context, input scans.AttemptInput) (*scans.ScanOutcome, error)
}

// TxRunner abstracts the transaction boundary for event emission.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues domain events.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles offline scan batches and prepares offline datasets.
type Service struct {
	engine  Engine
	tickets tickets.Repository
	devices devices.Repository
	emitter Emitter
	tx      TxRunner
	metrics *metrics.ScanMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// Deps wires the sync service's collaborators.
type Deps struct {
	Engine  Engine
	Tickets tickets.Repository
	Devices devices.Repository
	Emitter Emitter
	Tx      TxRunner
	Metrics *metrics.ScanMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// NewService validates and assembles the sync service.
func NewService(deps Deps) (*Service, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("scan engine required")
	}
	if deps.Tickets == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		engine:  deps.Engine,
		tickets: deps.Tickets,
		devices: deps.Devices,
		emitter: deps.Emitter,
		tx:      deps.Tx,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		now:     deps.Now,
	}, nil
}

// ProcessBatch reconciles a device's queued offline scans. Records are
// independent units: one record's failure never blocks the rest, and there
// is no batch-wide transaction.
func (s *Service) ProcessBatch(ctx context.Context, input BatchInput) (*BatchResult, error) {
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	if input.DeviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}

	syncedAt := s.now()
	if _, err := s.devices.Upsert(ctx, input.OrganizationID, input.DeviceID, syncedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "registering scanner device")
	}

	result := &BatchResult{Errors: []RecordError{}}
	var recordErrs error

	for _, record := range input.Records {
		result.Processed++

		outcome, err := s.processRecord(ctx, record, input)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RecordError{TicketID: record.TicketID, Error: err.Error()})
			recordErrs = multierr.Append(recordErrs, fmt.Errorf("ticket %s: %w", record.TicketID, err))
			s.metrics.IncSyncRecord("failed")
			continue
		}

		if outcome.Conflict {
			result.Conflicts++
			s.metrics.IncSyncRecord("conflict")
		}
		switch {
		case outcome.Success:
			result.Successful++
			if !outcome.Conflict {
				s.metrics.IncSyncRecord("successful")
			}
		case outcome.Conflict:
			// Genuine duplicate: counted above, surfaced to the caller.
			result.Errors = append(result.Errors, RecordError{TicketID: record.TicketID, Error: outcome.Message})
		default:
			result.Failed++
			result.Errors = append(result.Errors, RecordError{TicketID: record.TicketID, Error: outcome.Message})
			s.metrics.IncSyncRecord("failed")
		}
	}

	if recordErrs != nil {
		s.logg.Error(ctx, "batch records rejected before validation", recordErrs)
	}

	s.emitDeviceSynced(ctx, input, result, syncedAt)
	return result, nil
}

// processRecord validates record-local inputs and runs the shared engine.
// An error return means the engine was never consulted.
func (s *Service) processRecord(ctx context.Context, record BatchRecord, input BatchInput) (*scans.ScanOutcome, error) {
	scannedAt, err := time.Parse(time.RFC3339, record.ScannedAt)
	if err != nil {
		return nil, errors.New(msgBadTimestamp)
	}
	ticketID, err := uuid.Parse(record.TicketID)
	if err != nil {
		return nil, errors.New("Invalid ticket id")
	}

	deviceID := record.DeviceID
	if deviceID == "" {
		deviceID = input.DeviceID
	}

	return s.engine.Attempt(ctx, scans.AttemptInput{
		TicketID:       ticketID,
		OrganizationID: input.OrganizationID,
		OperatorID:     input.OperatorID,
		DeviceID:       deviceID,
		ScannedAt:      scannedAt,
		OfflineSync:    true,
	})
}

func (s *Service) emitDeviceSynced(ctx context.Context, input BatchInput, result *BatchResult, syncedAt time.Time) {
	if s.emitter == nil {
		return
	}
	device, err := s.devices.Find(ctx, input.OrganizationID, input.DeviceID)
	if err != nil || device == nil {
		s.logg.Error(ctx, "device lookup for sync event failed", err)
		return
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		actor := &outbox.ActorRef{OrganizationID: input.OrganizationID, DeviceID: input.DeviceID}
		if input.OperatorID != nil {
			actor.OperatorID = *input.OperatorID
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeviceSynced,
			AggregateType: enums.AggregateScannerDevice,
			AggregateID:   device.ID,
			Actor:         actor,
			Version:       1,
			OccurredAt:    syncedAt,
			Data: payloads.DeviceSyncedEvent{
				OrganizationID: input.OrganizationID,
				DeviceID:       input.DeviceID,
				Processed:      result.Processed,
				Successful:     result.Successful,
				Failed:         result.Failed,
				Conflicts:      result.Conflicts,
				SyncedAt:       syncedAt,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "emit device synced event", err)
	}
}
