package scanlogs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuetix/venuetix-backend/pkg/db/models"
	"github.com/venuetix/venuetix-backend/pkg/enums"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/pagination"
)

// Repository persists scan attempts. The log is append-only; there is no
// update or delete surface on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *models.ScanLog) error
	FirstValidScan(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID, params pagination.Params) ([]models.ScanLog, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a scan log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, log *models.ScanLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FirstValidScan returns the chronologically earliest valid scan for the
// ticket. The earliest scanned_at is authoritative for dispute resolution
// even when a later server-side scan committed the status transition first.
func (r *repository) FirstValidScan(ctx context.Context, ticketID uuid.UUID) (*models.ScanLog, error) {
	var row models.ScanLog
	err := r.db.WithContext(ctx).
		Where("ticket_id = ? AND result = ?", ticketID, enums.ScanResultValid).
		Order("scanned_at ASC").
		Order("id ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByTicket pages through a ticket's scan history, newest first.
func (r *repository) ListByTicket(ctx context.Context, ticketID uuid.UUID, params pagination.Params) ([]models.ScanLog, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("scanned_at DESC").
		Order("id DESC").
		Limit(limit + 1)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(scanned_at < ?) OR (scanned_at = ? AND id < ?)",
			cursor.Timestamp, cursor.Timestamp, cursor.ID,
		)
	}

	var rows []models.ScanLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{Timestamp: last.ScannedAt, ID: last.ID})
	}
	return rows, next, nil
}
