package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
)

// Codec signs and verifies the ticket tokens embedded in QR codes. The
// signing secret is injected at construction; a ticket is only scannable
// by deployments holding the same secret.
type Codec struct {
	secret  []byte
	baseURL string
}

type tokenPayload struct {
	TicketID  string `json:"tid"`
	Signature string `json:"sig"`
}

func NewCodec(signingSecret, baseURL string) *Codec {
	return &Codec{
		secret:  []byte(signingSecret),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Encode produces the QR payload for a ticket. When a base URL is
// configured the payload is wrapped in a scannable link so generic camera
// apps resolve to something meaningful.
func (c *Codec) Encode(ticketID, secretToken string) (string, error) {
	if ticketID == "" || secretToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "ticket id and secret token are required")
	}

	payload := tokenPayload{
		TicketID:  ticketID,
		Signature: c.sign(ticketID, secretToken),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode token payload")
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	if c.baseURL == "" {
		return encoded, nil
	}
	return c.baseURL + "/t/" + encoded, nil
}

// Decode extracts the ticket identity and claimed signature from scanned
// QR data. It accepts both the raw payload and the URL-wrapped form.
func (c *Codec) Decode(qrData string) (string, string, error) {
	trimmed := strings.TrimSpace(qrData)
	if trimmed == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "empty QR payload")
	}

	if idx := strings.LastIndex(trimmed, "/t/"); idx >= 0 {
		trimmed = trimmed[idx+len("/t/"):]
	}

	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed QR payload")
	}

	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed QR payload")
	}
	if payload.TicketID == "" || payload.Signature == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "incomplete QR payload")
	}

	return payload.TicketID, payload.Signature, nil
}

// Verify recomputes the signature from the stored secret token and
// compares in constant time.
func (c *Codec) Verify(ticketID, secretToken, signature string) bool {
	expected := c.sign(ticketID, secretToken)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Codec) sign(ticketID, secretToken string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(ticketID + ":" + secretToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateSecretToken returns a random per-ticket secret for issuance
// tooling and test fixtures.
func GenerateSecretToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate secret token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
