package scans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuetix/venuetix-backend/internal/scanlogs"
	"github.com/venuetix/venuetix-backend/internal/tickets"
	"github.com/venuetix/venuetix-backend/pkg/db/models"
	"github.com/venuetix/venuetix-backend/pkg/enums"
	"github.com/venuetix/venuetix-backend/pkg/outbox"
	"github.com/venuetix/venuetix-backend/pkg/pagination"
	"github.com/venuetix/venuetix-backend/pkg/security"
)

type fakeTickets struct {
	findFn func(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

func (f *fakeTickets) WithTx(tx *gorm.DB) tickets.Repository { return f }

func (f *fakeTickets) FindForScanning(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeTickets) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	return nil, nil
}

func (f *fakeTickets) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	return nil, nil
}

type fakeLogs struct {
	created      []*models.ScanLog
	createErr    error
	firstValidFn func(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error)
}

func (f *fakeLogs) WithTx(tx *gorm.DB) scanlogs.Repository { return f }

func (f *fakeLogs) Create(ctx context.Context, log *models.ScanLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, log)
	return nil
}

func (f *fakeLogs) FirstValidScan(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
	if f.firstValidFn != nil {
		return f.firstValidFn(ctx, ticketID)
	}
	return nil, nil
}

func (f *fakeLogs) ListByTicket(ctx context.Context, ticketID uuid.UUID, params pagination.Params) ([]models.ScanLog, string, error) {
	return nil, "", nil
}

type fakeWriter struct {
	markUsedFn  func(ticketID uuid.UUID, usedAt time.Time) (bool, error)
	rewriteFn   func(ticketID uuid.UUID, usedAt time.Time) error
	markCalls   int
	rewriteCall int
}

func (f *fakeWriter) MarkUsed(tx *gorm.DB, ticketID uuid.UUID, usedAt time.Time) (bool, error) {
	f.markCalls++
	if f.markUsedFn != nil {
		return f.markUsedFn(ticketID, usedAt)
	}
	return true, nil
}

func (f *fakeWriter) RewriteUsedAt(tx *gorm.DB, ticketID uuid.UUID, usedAt time.Time) error {
	f.rewriteCall++
	if f.rewriteFn != nil {
		return f.rewriteFn(ticketID, usedAt)
	}
	return nil
}

type fakeTx struct {
	err error
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(&gorm.DB{})
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return f.Emit(ctx, tx, event)
}

type engineFixture struct {
	svc     *Service
	codec   *security.Codec
	tickets *fakeTickets
	logs    *fakeLogs
	writer  *fakeWriter
	tx      *fakeTx
	emitter *fakeEmitter
	orgID   uuid.UUID
	now     time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		codec:   security.NewCodec("engine-test-secret", ""),
		tickets: &fakeTickets{},
		logs:    &fakeLogs{},
		writer:  &fakeWriter{},
		tx:      &fakeTx{},
		emitter: &fakeEmitter{},
		orgID:   uuid.New(),
		now:     time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
	}

	svc, err := NewService(Deps{
		Codec:    f.codec,
		Tickets:  f.tickets,
		ScanLogs: f.logs,
		Writer:   f.writer,
		Emitter:  f.emitter,
		Tx:       f.tx,
		Now:      func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	f.svc = svc
	return f
}

func (f *engineFixture) ticket(status enums.TicketStatus) *models.Ticket {
	id := uuid.New()
	return &models.Ticket{
		ID:          id,
		EventID:     uuid.New(),
		Code:        "VTX-" + id.String()[:8],
		SecretToken: "secret-" + id.String()[:8],
		Status:      status,
		Event:       &models.Event{OrganizationID: f.orgID},
		TicketType:  &models.TicketType{Name: "General Admission"},
	}
}

func (f *engineFixture) qrFor(t *testing.T, ticket *models.Ticket) string {
	t.Helper()
	qr, err := f.codec.Encode(ticket.ID.String(), ticket.SecretToken)
	if err != nil {
		t.Fatalf("encode qr: %v", err)
	}
	return qr
}

func (f *engineFixture) scanInput(qr string) ScanInput {
	return ScanInput{QRData: qr, OrganizationID: f.orgID, DeviceID: "gate-a-01"}
}

func TestScanInvalidFormatLogsNothing(t *testing.T) {
	f := newEngineFixture(t)

	outcome, err := f.svc.Scan(context.Background(), f.scanInput("garbage-payload"))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultInvalid || outcome.Message != "Invalid QR code format" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(f.logs.created) != 0 {
		t.Fatalf("undecodable payload must not create a scan log")
	}
}

func TestScanTicketNotFoundStillLogged(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusValid)
	qr := f.qrFor(t, ticket)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return nil, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultInvalid || outcome.Message != "Ticket not found" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(f.logs.created) != 1 {
		t.Fatalf("expected one audit row, got %d", len(f.logs.created))
	}
	if f.logs.created[0].TicketID != ticket.ID {
		t.Fatalf("audit row should carry the presented ticket id")
	}
}

func TestScanTenantMismatchRejected(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusValid)
	ticket.Event.OrganizationID = uuid.New()
	qr := f.qrFor(t, ticket)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultInvalid || outcome.Message != "Ticket does not belong to this organization" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if f.writer.markCalls != 0 {
		t.Fatalf("tenant mismatch must never touch the ticket row")
	}
	if len(f.logs.created) != 1 {
		t.Fatalf("expected one audit row, got %d", len(f.logs.created))
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventScanRejected {
		t.Fatalf("expected a scan.rejected event, got %+v", f.emitter.events)
	}
}

func TestScanForgedSignatureRejected(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusValid)
	forged := *ticket
	forged.SecretToken = "some-other-token"
	qr := f.qrFor(t, &forged)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultInvalid || outcome.Message != "Invalid QR code signature" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if f.writer.markCalls != 0 {
		t.Fatalf("forged signature must never touch the ticket row")
	}
	if len(f.logs.created) != 1 {
		t.Fatalf("expected one audit row, got %d", len(f.logs.created))
	}
}

func TestScanRefundedTicketBlocked(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusRefunded)
	qr := f.qrFor(t, ticket)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultRefunded {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if f.writer.markCalls != 0 {
		t.Fatalf("refunded ticket must never transition")
	}
	if len(f.logs.created) != 1 || f.logs.created[0].Result != enums.ScanResultRefunded {
		t.Fatalf("expected one refunded audit row")
	}
}

func TestScanDuplicateReportsFirstScan(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusUsed)
	qr := f.qrFor(t, ticket)
	firstAt := f.now.Add(-30 * time.Minute)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}
	f.logs.firstValidFn = func(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
		return &models.ScanLog{TicketID: ticketID, DeviceID: "gate-b-02", Result: enums.ScanResultValid, ScannedAt: firstAt}, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultAlreadyUsed || outcome.Message != "This ticket has already been used" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.FirstScannedAt == nil || !outcome.FirstScannedAt.Equal(firstAt) {
		t.Fatalf("expected first scan time %v, got %+v", firstAt, outcome.FirstScannedAt)
	}
	if outcome.FirstDeviceID != "gate-b-02" {
		t.Fatalf("expected first device id, got %q", outcome.FirstDeviceID)
	}
	if len(f.logs.created) != 1 || f.logs.created[0].Result != enums.ScanResultAlreadyUsed {
		t.Fatalf("duplicate attempt must be logged as already_used")
	}
}

func TestScanSuccessPath(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusValid)
	qr := f.qrFor(t, ticket)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if !outcome.Success || outcome.Result != enums.ScanResultValid {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Ticket == nil || outcome.Ticket.Status != enums.TicketStatusUsed {
		t.Fatalf("outcome should carry the post-update ticket")
	}
	if outcome.Ticket.UsedAt == nil || !outcome.Ticket.UsedAt.Equal(f.now) {
		t.Fatalf("used_at should be the scan time")
	}
	if f.writer.markCalls != 1 {
		t.Fatalf("expected one CAS attempt, got %d", f.writer.markCalls)
	}
	if len(f.logs.created) != 1 || f.logs.created[0].Result != enums.ScanResultValid {
		t.Fatalf("success must log exactly one valid row")
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventTicketUsed {
		t.Fatalf("expected a ticket used event")
	}
}

func TestScanConcurrentLoserSeesAlreadyUsed(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusValid)
	qr := f.qrFor(t, ticket)
	firstAt := f.now.Add(-time.Second)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}
	f.writer.markUsedFn = func(ticketID uuid.UUID, usedAt time.Time) (bool, error) {
		return false, nil
	}
	f.logs.firstValidFn = func(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
		return &models.ScanLog{TicketID: ticketID, DeviceID: "gate-c-03", Result: enums.ScanResultValid, ScannedAt: firstAt}, nil
	}

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Result != enums.ScanResultAlreadyUsed {
		t.Fatalf("losing a CAS race should surface already_used, got %+v", outcome)
	}
	if outcome.FirstScannedAt == nil || !outcome.FirstScannedAt.Equal(firstAt) {
		t.Fatalf("expected the winner's scan time")
	}
}

func TestAttemptOfflineEarlierWinsConflict(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusUsed)
	serverScanAt := f.now.Add(-10 * time.Minute)
	offlineScanAt := serverScanAt.Add(-20 * time.Minute)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}
	f.logs.firstValidFn = func(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
		return &models.ScanLog{TicketID: ticketID, Result: enums.ScanResultValid, ScannedAt: serverScanAt}, nil
	}

	outcome, err := f.svc.Attempt(context.Background(), AttemptInput{
		TicketID:       ticket.ID,
		OrganizationID: f.orgID,
		DeviceID:       "gate-offline-01",
		ScannedAt:      offlineScanAt,
		OfflineSync:    true,
	})
	if err != nil {
		t.Fatalf("Attempt error: %v", err)
	}
	if !outcome.Success || outcome.Result != enums.ScanResultValid {
		t.Fatalf("earlier offline scan should win, got %+v", outcome)
	}
	if !outcome.Conflict {
		t.Fatalf("earlier offline win must still count as a conflict")
	}
	if f.writer.rewriteCall != 1 {
		t.Fatalf("expected used_at rewrite, got %d calls", f.writer.rewriteCall)
	}
	if f.writer.markCalls != 0 {
		t.Fatalf("rewrite path must not run the CAS")
	}
	if len(f.logs.created) != 1 || !f.logs.created[0].OfflineSync {
		t.Fatalf("offline win must log a valid offline row")
	}
	if f.logs.created[0].SyncedAt == nil {
		t.Fatalf("offline row should record synced_at")
	}
}

func TestAttemptOfflineLaterIsDuplicateConflict(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusUsed)
	serverScanAt := f.now.Add(-30 * time.Minute)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}
	f.logs.firstValidFn = func(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
		return &models.ScanLog{TicketID: ticketID, Result: enums.ScanResultValid, ScannedAt: serverScanAt}, nil
	}

	outcome, err := f.svc.Attempt(context.Background(), AttemptInput{
		TicketID:       ticket.ID,
		OrganizationID: f.orgID,
		DeviceID:       "gate-offline-01",
		ScannedAt:      serverScanAt.Add(5 * time.Minute),
		OfflineSync:    true,
	})
	if err != nil {
		t.Fatalf("Attempt error: %v", err)
	}
	if outcome.Result != enums.ScanResultAlreadyUsed || !outcome.Conflict {
		t.Fatalf("later offline scan is a duplicate conflict, got %+v", outcome)
	}
	if f.writer.rewriteCall != 0 {
		t.Fatalf("duplicate must not rewrite used_at")
	}
}

func TestScanStorageFailureFallsBack(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusValid)
	qr := f.qrFor(t, ticket)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}
	f.tx.err = errors.New("connection reset")

	outcome, err := f.svc.Scan(context.Background(), f.scanInput(qr))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if outcome.Success || outcome.Result != enums.ScanResultInvalid {
		t.Fatalf("storage failure must surface the generic invalid result, got %+v", outcome)
	}
	if outcome.Message != "An error occurred while processing the scan" {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
	if len(f.logs.created) != 1 {
		t.Fatalf("expected the best-effort audit row")
	}
}

func TestScanValidatesRequest(t *testing.T) {
	f := newEngineFixture(t)

	if _, err := f.svc.Scan(context.Background(), ScanInput{QRData: "x", DeviceID: "d"}); err == nil {
		t.Fatal("expected missing organization to error")
	}
	if _, err := f.svc.Scan(context.Background(), ScanInput{QRData: "x", OrganizationID: uuid.New()}); err == nil {
		t.Fatal("expected missing device id to error")
	}
}

func TestAttemptOfflineEarlierRewriteFailureIsNotConflict(t *testing.T) {
	f := newEngineFixture(t)
	ticket := f.ticket(enums.TicketStatusUsed)
	serverScanAt := f.now.Add(-10 * time.Minute)
	offlineScanAt := serverScanAt.Add(-20 * time.Minute)
	f.tickets.findFn = func(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
		return ticket, nil
	}
	f.logs.firstValidFn = func(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
		return &models.ScanLog{TicketID: ticketID, Result: enums.ScanResultValid, ScannedAt: serverScanAt}, nil
	}
	f.tx.err = errors.New("connection reset")

	outcome, err := f.svc.Attempt(context.Background(), AttemptInput{
		TicketID:       ticket.ID,
		OrganizationID: f.orgID,
		DeviceID:       "gate-offline-01",
		ScannedAt:      offlineScanAt,
		OfflineSync:    true,
	})
	if err != nil {
		t.Fatalf("Attempt error: %v", err)
	}
	if outcome.Success {
		t.Fatalf("failed rewrite must not report success, got %+v", outcome)
	}
	if outcome.Conflict {
		t.Fatalf("failed rewrite must not count as a resolved conflict")
	}
	if outcome.Result != enums.ScanResultInvalid || outcome.Message != msgStorageFailure {
		t.Fatalf("expected storage failure outcome, got %+v", outcome)
	}
}
