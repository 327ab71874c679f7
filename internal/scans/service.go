package scans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuetix/venuetix-backend/internal/scanlogs"
	"github.com/venuetix/venuetix-backend/internal/tickets"
	"github.com/venuetix/venuetix-backend/pkg/db/models"
	"github.com/venuetix/venuetix-backend/pkg/enums"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
	"github.com/venuetix/venuetix-backend/pkg/metrics"
	"github.com/venuetix/venuetix-backend/pkg/outbox"
	"github.com/venuetix/venuetix-backend/pkg/outbox/payloads"
	"github.com/venuetix/venuetix-backend/pkg/security"
)

const (
	msgInvalidFormat  = "Invalid QR code format"
	msgTicketNotFound = "Ticket not found"
	msgTenantMismatch = "Ticket does not belong to this organization"
	msgBadSignature   = "Invalid QR code signature"
	msgRefunded       = "This ticket has been refunded and cannot be used"
	msgAlreadyUsed    = "This ticket has already been used"
	msgValidated      = "Ticket validated successfully"
	msgStorageFailure = "An error occurred while processing the scan"
)

// errTransitionLost signals that the compare-and-swap found the ticket no
// longer valid, meaning a concurrent scan committed first.
var errTransitionLost = errors.New("ticket transition lost")

// TxRunner abstracts the transaction boundary around the success path.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues domain events inside the success transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the single-scan validation engine. Both the live endpoint and
// the batch reconciler funnel every attempt through Attempt so the decision
// chain exists exactly once.
type Service struct {
	codec   *security.Codec
	tickets tickets.Repository
	logs    scanlogs.Repository
	writer  Writer
	emitter Emitter
	tx      TxRunner
	metrics *metrics.ScanMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// Deps wires the engine's collaborators.
type Deps struct {
	Codec    *security.Codec
	Tickets  tickets.Repository
	ScanLogs scanlogs.Repository
	Writer   Writer
	Emitter  Emitter
	Tx       TxRunner
	Metrics  *metrics.ScanMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService validates and assembles the engine.
func NewService(deps Deps) (*Service, error) {
	if deps.Codec == nil {
		return nil, fmt.Errorf("token codec required")
	}
	if deps.Tickets == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if deps.ScanLogs == nil {
		return nil, fmt.Errorf("scan log repository required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("ticket writer required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		codec:   deps.Codec,
		tickets: deps.Tickets,
		logs:    deps.ScanLogs,
		writer:  deps.Writer,
		emitter: deps.Emitter,
		tx:      deps.Tx,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		now:     deps.Now,
	}, nil
}

// Scan processes one live scan. Terminal-facing outcomes are structured
// results; an error return means the request itself was unusable.
func (s *Service) Scan(ctx context.Context, input ScanInput) (*ScanOutcome, error) {
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	if input.DeviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}

	start := s.now()
	defer func() {
		s.metrics.ObserveDuration("live", s.now().Sub(start))
	}()

	outcome := s.scan(ctx, input)
	s.metrics.IncResult(outcome.Result.String(), "live")
	return outcome, nil
}

func (s *Service) scan(ctx context.Context, input ScanInput) *ScanOutcome {
	rawID, signature, err := s.codec.Decode(input.QRData)
	if err != nil {
		s.metrics.IncUndecodable()
		return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgInvalidFormat}
	}
	ticketID, err := uuid.Parse(rawID)
	if err != nil {
		// A payload carrying a non-UUID ticket id has no identity to log
		// against, same as an undecodable one.
		s.metrics.IncUndecodable()
		return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgInvalidFormat}
	}

	outcome, err := s.Attempt(ctx, AttemptInput{
		TicketID:       ticketID,
		Signature:      signature,
		HasSignature:   true,
		OrganizationID: input.OrganizationID,
		OperatorID:     input.OperatorID,
		DeviceID:       input.DeviceID,
		ScannedAt:      s.now(),
	})
	if err != nil {
		s.logg.Error(ctx, "scan attempt failed", err)
		return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgStorageFailure}
	}
	return outcome
}

// Attempt runs the ordered decision chain for one resolved ticket identity.
// Every path with a ticket identity writes exactly one scan log row.
func (s *Service) Attempt(ctx context.Context, input AttemptInput) (*ScanOutcome, error) {
	ticket, err := s.tickets.FindForScanning(ctx, input.TicketID)
	if err != nil {
		s.logg.Error(ctx, "ticket lookup failed", err)
		return s.storageFailure(ctx, nil, input), nil
	}

	if ticket == nil {
		s.logAttempt(ctx, nil, input, enums.ScanResultInvalid, msgTicketNotFound)
		return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgTicketNotFound}, nil
	}

	if ticket.Event == nil || ticket.Event.OrganizationID != input.OrganizationID {
		s.metrics.IncTenantMismatch()
		s.logRejectionWithEvent(ctx, ticket, input, enums.ScanResultInvalid, msgTenantMismatch)
		return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgTenantMismatch}, nil
	}

	if input.HasSignature && !s.codec.Verify(ticket.ID.String(), ticket.SecretToken, input.Signature) {
		s.logRejectionWithEvent(ctx, ticket, input, enums.ScanResultInvalid, msgBadSignature)
		return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgBadSignature}, nil
	}

	if ticket.Status == enums.TicketStatusRefunded {
		s.logAttempt(ctx, ticket, input, enums.ScanResultRefunded, msgRefunded)
		return &ScanOutcome{Result: enums.ScanResultRefunded, Message: msgRefunded, Ticket: summarize(ticket)}, nil
	}

	if ticket.Status == enums.TicketStatusUsed {
		return s.resolveUsed(ctx, ticket, input)
	}

	return s.commitSuccess(ctx, ticket, input, false)
}

// resolveUsed handles a ticket that is already used. Offline records that
// predate the winning scan are resolved in the offline record's favor.
func (s *Service) resolveUsed(ctx context.Context, ticket *models.Ticket, input AttemptInput) (*ScanOutcome, error) {
	first, err := s.logs.FirstValidScan(ctx, ticket.ID)
	if err != nil {
		s.logg.Error(ctx, "first valid scan lookup failed", err)
		return s.storageFailure(ctx, ticket, input), nil
	}

	if input.OfflineSync && first != nil && input.ScannedAt.Before(first.ScannedAt) {
		outcome, err := s.commitSuccess(ctx, ticket, input, true)
		if err != nil {
			return outcome, err
		}
		// A storage failure during the rewrite is a failure, not a
		// resolved conflict.
		if outcome.Success {
			outcome.Conflict = true
		}
		return outcome, nil
	}

	s.logAttempt(ctx, ticket, input, enums.ScanResultAlreadyUsed, msgAlreadyUsed)
	outcome := &ScanOutcome{
		Result:   enums.ScanResultAlreadyUsed,
		Message:  msgAlreadyUsed,
		Conflict: input.OfflineSync,
		Ticket:   summarize(ticket),
	}
	if first != nil {
		scannedAt := first.ScannedAt
		outcome.FirstScannedAt = &scannedAt
		outcome.FirstDeviceID = first.DeviceID
	}
	return outcome, nil
}

// commitSuccess runs the atomic success path: ticket transition, valid scan
// log row, and the ticket-used event, all in one transaction.
func (s *Service) commitSuccess(ctx context.Context, ticket *models.Ticket, input AttemptInput, rewrite bool) (*ScanOutcome, error) {
	row := s.buildLog(ticket, input, enums.ScanResultValid, "")

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if rewrite {
			if err := s.writer.RewriteUsedAt(tx, ticket.ID, input.ScannedAt); err != nil {
				return err
			}
		} else {
			won, err := s.writer.MarkUsed(tx, ticket.ID, input.ScannedAt)
			if err != nil {
				return err
			}
			if !won {
				return errTransitionLost
			}
		}
		if err := s.logs.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.emitTicketUsed(ctx, tx, ticket, input)
	})

	if errors.Is(err, errTransitionLost) {
		// A concurrent scan committed between our read and the update.
		refreshed := *ticket
		refreshed.Status = enums.TicketStatusUsed
		return s.resolveUsed(ctx, &refreshed, input)
	}
	if err != nil {
		s.logg.Error(ctx, "scan success transaction failed", err)
		return s.storageFailure(ctx, ticket, input), nil
	}

	usedAt := input.ScannedAt
	summary := summarize(ticket)
	summary.Status = enums.TicketStatusUsed
	summary.UsedAt = &usedAt
	return &ScanOutcome{
		Success: true,
		Result:  enums.ScanResultValid,
		Message: msgValidated,
		Ticket:  summary,
	}, nil
}

func (s *Service) emitTicketUsed(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, input AttemptInput) error {
	if s.emitter == nil {
		return nil
	}
	return s.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTicketUsed,
		AggregateType: enums.AggregateTicket,
		AggregateID:   ticket.ID,
		Actor:         actorRef(input),
		Version:       1,
		OccurredAt:    input.ScannedAt,
		Data: payloads.TicketUsedEvent{
			TicketID:       ticket.ID,
			EventID:        ticket.EventID,
			OrganizationID: input.OrganizationID,
			DeviceID:       input.DeviceID,
			ScannedAt:      input.ScannedAt,
			OfflineSync:    input.OfflineSync,
		},
	})
}

// logRejectionWithEvent writes the audit row and a scan.rejected event in a
// small transaction of their own. Tenant mismatches and forged signatures
// feed security monitoring.
func (s *Service) logRejectionWithEvent(ctx context.Context, ticket *models.Ticket, input AttemptInput, result enums.ScanResult, reason string) {
	row := s.buildLog(ticket, input, result, reason)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.logs.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventScanRejected,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Actor:         actorRef(input),
			Version:       1,
			OccurredAt:    input.ScannedAt,
			Data: payloads.ScanRejectedEvent{
				TicketID:       ticket.ID,
				EventID:        ticket.EventID,
				OrganizationID: input.OrganizationID,
				DeviceID:       input.DeviceID,
				Result:         result,
				Reason:         reason,
				ScannedAt:      input.ScannedAt,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "record scan rejection", err)
	}
}

// logAttempt writes the audit row outside any transaction. Best effort: a
// logging failure is reported but never turns into a terminal error.
func (s *Service) logAttempt(ctx context.Context, ticket *models.Ticket, input AttemptInput, result enums.ScanResult, reason string) {
	row := s.buildLog(ticket, input, result, reason)
	if err := s.logs.Create(ctx, row); err != nil {
		s.logg.Error(ctx, "record scan attempt", err)
	}
}

func (s *Service) storageFailure(ctx context.Context, ticket *models.Ticket, input AttemptInput) *ScanOutcome {
	if ticket != nil {
		s.logAttempt(ctx, ticket, input, enums.ScanResultInvalid, msgStorageFailure)
	}
	return &ScanOutcome{Result: enums.ScanResultInvalid, Message: msgStorageFailure}
}

func (s *Service) buildLog(ticket *models.Ticket, input AttemptInput, result enums.ScanResult, reason string) *models.ScanLog {
	row := &models.ScanLog{
		ID:             uuid.New(),
		TicketID:       input.TicketID,
		OrganizationID: input.OrganizationID,
		DeviceID:       input.DeviceID,
		OperatorID:     input.OperatorID,
		Result:         result,
		ScannedAt:      input.ScannedAt,
		OfflineSync:    input.OfflineSync,
	}
	if ticket != nil {
		eventID := ticket.EventID
		row.TicketID = ticket.ID
		row.EventID = &eventID
	}
	if reason != "" {
		row.Reason = &reason
	}
	if input.OfflineSync {
		syncedAt := s.now()
		row.SyncedAt = &syncedAt
	}
	return row
}

func summarize(ticket *models.Ticket) *TicketSummary {
	if ticket == nil {
		return nil
	}
	summary := &TicketSummary{
		ID:         ticket.ID,
		Code:       ticket.Code,
		Status:     ticket.Status,
		HolderName: ticket.HolderName,
		UsedAt:     ticket.UsedAt,
	}
	if ticket.TicketType != nil {
		summary.TicketType = ticket.TicketType.Name
	}
	return summary
}

func actorRef(input AttemptInput) *outbox.ActorRef {
	ref := &outbox.ActorRef{
		OrganizationID: input.OrganizationID,
		DeviceID:       input.DeviceID,
	}
	if input.OperatorID != nil {
		ref.OperatorID = *input.OperatorID
	}
	return ref
}
