package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/api/middleware"
	"github.com/venuetix/venuetix-backend/api/responses"
	"github.com/venuetix/venuetix-backend/api/validators"
	"github.com/venuetix/venuetix-backend/internal/scans"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
)

type scanRequest struct {
	QRData   string `json:"qr_data" validate:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

// ScanTicket handles a live gate scan. The outcome is always a 200 with a
// structured result; scan rejections are data, not HTTP errors.
func ScanTicket(svc *scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		identity, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scanRequest
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

		outcome, err := svc.Scan(r.Context(), scans.ScanInput{
			QRData:         payload.QRData,
			OrganizationID: identity.orgID,
			OperatorID:     identity.operatorID,
			DeviceID:       deviceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

type identity struct {
	orgID      uuid.UUID
	operatorID *uuid.UUID
	deviceID   string
}

func requestIdentity(r *http.Request) (identity, error) {
	orgRaw := middleware.OrgIDFromContext(r.Context())
	if orgRaw == "" {
		return identity{}, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	orgID, err := uuid.Parse(orgRaw)
	if err != nil {
		return identity{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id")
	}

	out := identity{orgID: orgID, deviceID: middleware.DeviceIDFromContext(r.Context())}
	if raw := strings.TrimSpace(middleware.OperatorIDFromContext(r.Context())); raw != "" {
		operatorID, err := uuid.Parse(raw)
		if err != nil {
			return identity{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operator id")
		}
		out.operatorID = &operatorID
	}
	return out, nil
}
