package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/api/responses"
	"github.com/venuetix/venuetix-backend/api/validators"
	syncsvc "github.com/venuetix/venuetix-backend/internal/sync"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
)

type syncRecordRequest struct {
	TicketID  string `json:"ticket_id" validate:"required"`
	ScannedAt string `json:"scanned_at" validate:"required"`
	Result    string `json:"result,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
}

type syncRequest struct {
	Records  []syncRecordRequest `json:"records" validate:"required,min=1,max=1000,dive"`
	DeviceID string              `json:"device_id,omitempty"`
}

// SyncScans reconciles a device's queued offline scans.
func SyncScans(svc *syncsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}

		identity, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload syncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deviceID := identity.deviceID
		if v := validators.SanitizeString(payload.DeviceID, 128); v != "" {
			deviceID = v
		}
		if deviceID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "device_id is required"))
			return
		}

		records := make([]syncsvc.BatchRecord, 0, len(payload.Records))
		for _, record := range payload.Records {
			records = append(records, syncsvc.BatchRecord{
				TicketID:  validators.SanitizeString(record.TicketID, 64),
				ScannedAt: validators.SanitizeString(record.ScannedAt, 64),
				Result:    validators.SanitizeString(record.Result, 32),
				DeviceID:  validators.SanitizeString(record.DeviceID, 128),
			})
		}

		result, err := svc.ProcessBatch(r.Context(), syncsvc.BatchInput{
			Records:        records,
			OrganizationID: identity.orgID,
			OperatorID:     identity.operatorID,
			DeviceID:       deviceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ScanDataset serves the offline validation snapshot for one event.
func ScanDataset(svc *syncsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}

		identity, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		deviceID := identity.deviceID
		if v := validators.SanitizeString(r.URL.Query().Get("device_id"), 128); v != "" {
			deviceID = v
		}
		if deviceID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "device_id is required"))
			return
		}

		dataset, err := svc.PrepareDataset(r.Context(), syncsvc.DatasetInput{
			EventID:        eventID,
			OrganizationID: identity.orgID,
			OperatorID:     identity.operatorID,
			DeviceID:       deviceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dataset)
	}
}
