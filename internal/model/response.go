package model

// ErrorResponse is the JSON error body for every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}
