package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/venuetix/venuetix-backend/pkg/enums"
)

// OperatorTokenPayload captures the data available when minting a JWT for
// a gate operator session.
type OperatorTokenPayload struct {
	OperatorID     uuid.UUID
	OrganizationID uuid.UUID
	DeviceID       string
	Role           enums.OperatorRole
	JTI            string
}

// OperatorClaims represents the typed JWT carried by scanner devices.
type OperatorClaims struct {
	OperatorID     uuid.UUID          `json:"operator_id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	DeviceID       string             `json:"device_id,omitempty"`
	Role           enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
