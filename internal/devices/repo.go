package devices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venuetix/venuetix-backend/pkg/db/models"
)

// Repository tracks scanner devices per organization. Devices are upserted
// on contact and never deleted; concurrent upserts are last-writer-wins.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, orgID uuid.UUID, deviceID string, syncedAt time.Time) (*models.ScannerDevice, error)
	Find(ctx context.Context, orgID uuid.UUID, deviceID string) (*models.ScannerDevice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a device repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, orgID uuid.UUID, deviceID string, syncedAt time.Time) (*models.ScannerDevice, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}

	row := models.ScannerDevice{
		ID:             uuid.New(),
		OrganizationID: orgID,
		DeviceID:       deviceID,
		LastSyncAt:     &syncedAt,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "device_id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_sync_at": syncedAt, "updated_at": syncedAt}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, orgID, deviceID)
}

func (r *repository) Find(ctx context.Context, orgID uuid.UUID, deviceID string) (*models.ScannerDevice, error) {
	var row models.ScannerDevice
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND device_id = ?", orgID, deviceID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
