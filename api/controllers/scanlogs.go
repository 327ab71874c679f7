package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/api/responses"
	"github.com/venuetix/venuetix-backend/api/validators"
	"github.com/venuetix/venuetix-backend/internal/scanlogs"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
	"github.com/venuetix/venuetix-backend/pkg/pagination"
	"github.com/venuetix/venuetix-backend/pkg/types"
)

// TicketScanLogs returns a ticket's scan history, newest first. This is the
// dispute-resolution surface: the earliest valid row answers who scanned
// first regardless of which scan committed the status transition.
func TicketScanLogs(repo scanlogs.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan log repository unavailable"))
			return
		}

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticketId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ticket id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := repo.ListByTicket(r.Context(), ticketID, pagination.Params{
			Limit:  limit,
			Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var meta *types.Meta
		if next != "" {
			meta = &types.Meta{NextCursor: next, HasMore: true}
		}
		responses.WriteSuccessMeta(w, rows, meta)
	}
}
