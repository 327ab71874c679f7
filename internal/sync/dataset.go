package sync

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
)

const msgEventDenied = "Event not found or access denied"

// PrepareDataset builds the snapshot a scanner device downloads before
// going offline: the event header plus every ticket with its signing
// token, so the device can verify signatures without a round trip.
// Cross-tenant requests surface as NotFound to avoid leaking existence.
func (s *Service) PrepareDataset(ctx context.Context, input DatasetInput) (*DatasetOutput, error) {
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	if input.DeviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	event, err := s.tickets.FindEvent(ctx, input.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading event")
	}
	if event == nil || event.OrganizationID != input.OrganizationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgEventDenied)
	}

	rows, err := s.tickets.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading event tickets")
	}

	syncedAt := s.now()
	if _, err := s.devices.Upsert(ctx, input.OrganizationID, input.DeviceID, syncedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "registering scanner device")
	}

	fields := map[string]any{
		"event_id":     event.ID.String(),
		"device_id":    input.DeviceID,
		"ticket_count": len(rows),
	}
	if input.OperatorID != nil {
		fields["operator_id"] = input.OperatorID.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "scan dataset prepared")

	out := &DatasetOutput{
		Event: DatasetEvent{
			ID:        event.ID,
			Name:      event.Name,
			Venue:     event.Venue,
			GateNames: event.GateNames,
			StartsAt:  event.StartsAt,
			EndsAt:    event.EndsAt,
		},
		Tickets:  make([]DatasetTicket, 0, len(rows)),
		DeviceID: input.DeviceID,
		SyncedAt: syncedAt,
	}
	for _, ticket := range rows {
		entry := DatasetTicket{
			ID:          ticket.ID,
			Code:        ticket.Code,
			SecretToken: ticket.SecretToken,
			Status:      ticket.Status,
			HolderName:  ticket.HolderName,
			UsedAt:      ticket.UsedAt,
		}
		if ticket.TicketType != nil {
			entry.TicketType = ticket.TicketType.Name
		}
		out.Tickets = append(out.Tickets, entry)
	}
	return out, nil
}
