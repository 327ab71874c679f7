package types

type SuccessEnvelope struct {
	Data any  `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries pagination hints for list responses.
type Meta struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
