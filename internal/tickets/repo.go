package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuetix/venuetix-backend/pkg/db/models"
)

// Repository provides read access to tickets for the scan engine. Status
// transitions go through the scan engine's own writer, not this interface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForScanning(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ticket repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindForScanning loads the ticket with its event (tenant boundary) and
// ticket type in one query. Returns nil when the ticket does not exist.
func (r *repository) FindForScanning(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("TicketType").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).First(&event, "id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	var rows []models.Ticket
	err := r.db.WithContext(ctx).
		Preload("TicketType").
		Where("event_id = ?", eventID).
		Order("code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
