package scans

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuetix/venuetix-backend/pkg/db/models"
	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// Writer performs the ticket status transition. It is the only code path
// allowed to mutate a ticket row.
type Writer interface {
	MarkUsed(tx *gorm.DB, ticketID uuid.UUID, usedAt time.Time) (bool, error)
	RewriteUsedAt(tx *gorm.DB, ticketID uuid.UUID, usedAt time.Time) error
}

type writer struct {
	db *gorm.DB
}

// NewWriter returns a ticket writer bound to the provided database.
func NewWriter(db *gorm.DB) Writer {
	return &writer{db: db}
}

// MarkUsed flips a valid ticket to used via compare-and-swap. A false
// return with nil error means another scan won the transition first.
func (w *writer) MarkUsed(tx *gorm.DB, ticketID uuid.UUID, usedAt time.Time) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	res := tx.Model(&models.Ticket{}).
		Where("id = ? AND status = ?", ticketID, enums.TicketStatusValid).
		Updates(map[string]any{
			"status":  enums.TicketStatusUsed,
			"used_at": usedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RewriteUsedAt moves used_at to an earlier timestamp when an offline scan
// turns out to predate the scan that committed the transition.
func (w *writer) RewriteUsedAt(tx *gorm.DB, ticketID uuid.UUID, usedAt time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.Ticket{}).
		Where("id = ? AND status = ?", ticketID, enums.TicketStatusUsed).
		Update("used_at", usedAt).Error
}
